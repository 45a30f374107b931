// Package codec serializes arbitrary values for the persistent topic
// stores and the Redis bus using encoding/gob.
//
// Callers must ensure that values are gob-encodable and that their
// concrete types have been registered with gob.Register where needed.
package codec

import (
	"bytes"
	"encoding/gob"
)

// Encode gob-encodes v.
func Encode(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	iv := v
	if err := gob.NewEncoder(&buf).Encode(&iv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode gob-decodes data back into an any.
func Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var iv any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&iv); err != nil {
		return nil, err
	}
	return iv, nil
}
