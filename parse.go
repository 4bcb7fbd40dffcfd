package email

import (
	"encoding/json"
	"slices"
	"strings"
)

// ParseMessage decodes an untyped JSON payload into a Message. Required
// fields are checked in the order from, to, subject, text; unknown keys end
// up in Message.Extra.
func ParseMessage(data []byte) (Message, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return Message{}, NewInvalidMessageError("message", printable(data))
	}

	var m Message
	input := printable(data)

	if !decodeString(raw["from"], &m.From) {
		return Message{}, NewInvalidMessageError("from", input)
	}
	to, ok := raw["to"]
	if !ok || json.Unmarshal(to, &m.To) != nil || len(m.To) == 0 || slices.Contains(m.To, "") {
		return Message{}, NewInvalidMessageError("to", input)
	}
	if !decodeString(raw["subject"], &m.Subject) {
		return Message{}, NewInvalidMessageError("subject", input)
	}
	if !decodeString(raw["text"], &m.Text) {
		return Message{}, NewInvalidMessageError("text", input)
	}

	for k, v := range raw {
		switch k {
		case "from", "to", "subject", "text":
			continue
		}
		if m.Extra == nil {
			m.Extra = map[string]string{}
		}
		m.Extra[k] = extraValue(v)
	}

	return m, nil
}

// extraValue flattens a pass-through value to text. String arrays, as used
// for cc, bcc and o:tag, become a ", " joined list.
func extraValue(v json.RawMessage) string {
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(v, &list) == nil && list != nil {
		return strings.Join(list, ", ")
	}
	return compact(v)
}

func decodeString(data json.RawMessage, dst *string) bool {
	if data == nil {
		return false
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return false
	}
	*dst = s
	return s != ""
}

func printable(data []byte) string {
	if json.Valid(data) {
		return compact(data)
	}
	return string(data)
}

func compact(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	return dump(v)
}
