package validation

import (
	"bytes"
	"encoding/json"
)

// nullFields holds the payload keys that were sent as an explicit null.
type nullFields map[string]bool

func nullKeys(b []byte) nullFields {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	var out nullFields
	for k, v := range raw {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			if out == nil {
				out = nullFields{}
			}
			out[k] = true
		}
	}
	return out
}

// UnmarshalJSON decodes the payload and remembers which nullable fields
// were explicitly cleared.
func (in *NodeInput) UnmarshalJSON(b []byte) error {
	type plain NodeInput
	if err := json.Unmarshal(b, (*plain)(in)); err != nil {
		return err
	}
	in.nulls = nullKeys(b)
	return nil
}

// UnmarshalJSON decodes the payload and remembers which nullable fields
// were explicitly cleared.
func (in *PipeInput) UnmarshalJSON(b []byte) error {
	type plain PipeInput
	if err := json.Unmarshal(b, (*plain)(in)); err != nil {
		return err
	}
	in.nulls = nullKeys(b)
	return nil
}
