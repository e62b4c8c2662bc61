package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Serializer is the external contract a caller supplies to turn keys and
// values into the bytes the L2 framing adapter puts on the wire. It is out
// of scope for this package to implement a production serializer (spec
// §1) — JSONSerializer below exists only as a default for tests and for
// callers happy with JSON.
type Serializer[K any, V any] interface {
	// Version changes whenever the encoding changes, so that incompatible
	// writers and readers cannot collide on the same distributed key
	// (spec §3: "schema_version comes from the value serializer").
	Version() int
	StringifyKey(key K) string
	SerializeValue(sink valueSink, value V) error
	DeserializeValue(source valueSource) (V, error)
}

// JSONSerializer is a default Serializer using encoding/json and
// fmt.Sprint for key stringification. It is adequate for tests and for
// simple key/value types; production callers are expected to supply their
// own Serializer tuned to their wire format.
type JSONSerializer[K any, V any] struct{}

func (JSONSerializer[K, V]) Version() int { return 1 }

func (JSONSerializer[K, V]) StringifyKey(key K) string {
	return fmt.Sprint(key)
}

func (JSONSerializer[K, V]) SerializeValue(sink valueSink, value V) error {
	enc := json.NewEncoder(sink)
	return enc.Encode(value)
}

func (JSONSerializer[K, V]) DeserializeValue(source valueSource) (V, error) {
	var value V
	dec := json.NewDecoder(source)
	if err := dec.Decode(&value); err != nil {
		return value, fmt.Errorf("cache: json deserialize: %w", err)
	}
	return value, nil
}

// serializeValueBytes is a convenience wrapper used by the L2 adapter: it
// serializes value into a growable buffer and returns the bytes. The L2
// adapter calls it only for entries that carry a value; a value-less entry
// is framed with no value bytes.
func serializeValueBytes[K any, V any](s Serializer[K, V], value V) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.SerializeValue(&buf, value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deserializeValueBytes[K any, V any](s Serializer[K, V], data []byte) (V, error) {
	return s.DeserializeValue(bytes.NewReader(data))
}
