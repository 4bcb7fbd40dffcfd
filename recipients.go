package email

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errRecipientsType = errors.New("recipients must be a string or an array of strings")

// Recipients is the to field of a Message. It accepts a single string or a
// list of strings when decoded from JSON.
type Recipients []string

// To builds Recipients from one or more entries.
func To(entries ...string) Recipients {
	return Recipients(entries)
}

func (r *Recipients) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return errRecipientsType
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Recipients{s}
		return nil
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return errRecipientsType
		}
		*r = Recipients(list)
		return nil
	default:
		return errRecipientsType
	}
}

func (r Recipients) MarshalJSON() ([]byte, error) {
	if len(r) == 1 {
		return json.Marshal(r[0])
	}
	return json.Marshal([]string(r))
}
