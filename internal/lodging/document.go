package lodging

import (
	"bytes"
	"encoding/json"
	"errors"
)

// object is a JSON object that keeps its keys in document order, so an
// enriched itinerary diffs cleanly against the one it was built from.
type object struct {
	keys   []string
	fields map[string]json.RawMessage
}

func (o *object) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("not a JSON object")
	}
	o.keys, o.fields = nil, make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		o.set(key, raw)
	}
	_, err = dec.Token()
	return err
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(o.fields[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *object) get(key string) (json.RawMessage, bool) {
	raw, ok := o.fields[key]
	return raw, ok
}

// set replaces key in place, or appends it when new.
func (o *object) set(key string, raw json.RawMessage) {
	if o.fields == nil {
		o.fields = make(map[string]json.RawMessage)
	}
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = raw
}

func (o *object) str(key string) string {
	var s string
	if raw, ok := o.fields[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}
