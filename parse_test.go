package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	m, err := ParseMessage([]byte(`{
		"to": "@test",
		"from": "drew@carey.com",
		"subject": "test subject",
		"text": "test text",
		"html": "<p>test</p>",
		"o:deliverytime": 42
	}`))
	require.NoError(t, err)

	assert.Equal(t, "drew@carey.com", m.From)
	assert.Equal(t, To("@test"), m.To)
	assert.Equal(t, "test subject", m.Subject)
	assert.Equal(t, "test text", m.Text)
	assert.Equal(t, map[string]string{"html": "<p>test</p>", "o:deliverytime": "42"}, m.Extra)
}

func TestParseMessage_ToArray(t *testing.T) {
	m, err := ParseMessage([]byte(`{"to":["a@x","@team"],"from":"f@x","subject":"s","text":"t"}`))
	require.NoError(t, err)
	assert.Equal(t, To("a@x", "@team"), m.To)
	assert.Nil(t, m.Extra)
}

func TestParseMessage_ArrayExtras(t *testing.T) {
	m, err := ParseMessage([]byte(`{
		"from": "f@x",
		"to": "a@x",
		"subject": "s",
		"text": "t",
		"cc": ["c@x", "d@x"],
		"o:tag": ["news", "weekly"],
		"v:ids": [1, 2]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "c@x, d@x", m.Extra["cc"])
	assert.Equal(t, "[1,2]", m.Extra["v:ids"])

	out, err := NewDirectory(nil).Expand(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"c@x", "d@x"}, out.Cc())
	assert.Equal(t, []string{"news", "weekly"}, out.Tags())
}

func TestParseMessage_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{name: "not an object", input: `"hello"`, field: "message"},
		{name: "not json", input: `{from:`, field: "message"},
		{name: "missing from", input: `{"to":"a@x","subject":"s","text":"t"}`, field: "from"},
		{name: "numeric from", input: `{"from":1,"to":"a@x","subject":"s","text":"t"}`, field: "from"},
		{name: "missing to", input: `{"from":"f@x","subject":"s","text":"t"}`, field: "to"},
		{name: "numeric to", input: `{"from":"f@x","to":5,"subject":"s","text":"t"}`, field: "to"},
		{name: "object to", input: `{"from":"f@x","to":{"a":"b"},"subject":"s","text":"t"}`, field: "to"},
		{name: "mixed to array", input: `{"from":"f@x","to":["a@x",1],"subject":"s","text":"t"}`, field: "to"},
		{name: "empty to array", input: `{"from":"f@x","to":[],"subject":"s","text":"t"}`, field: "to"},
		{name: "empty string to", input: `{"from":"f@x","to":"","subject":"s","text":"t"}`, field: "to"},
		{name: "empty entry in to array", input: `{"from":"f@x","to":["a@x",""],"subject":"s","text":"t"}`, field: "to"},
		{name: "null to", input: `{"from":"f@x","to":null,"subject":"s","text":"t"}`, field: "to"},
		{name: "missing subject", input: `{"from":"f@x","to":"a@x","text":"t"}`, field: "subject"},
		{name: "empty text", input: `{"from":"f@x","to":"a@x","subject":"s","text":""}`, field: "text"},
		{name: "array text", input: `{"from":"f@x","to":"a@x","subject":"s","text":["t"]}`, field: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.input))

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, REASON_INVALID_MESSAGE, e.Reason)
			assert.Equal(t, tt.field, e.Field)
		})
	}
}

func TestRecipients_MarshalJSON(t *testing.T) {
	b, err := To("a@x").MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"a@x"`, string(b))

	b, err = To("a@x", "b@x").MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `["a@x","b@x"]`, string(b))
}
