// Package codec serializes polymorphic task payloads for the durable store
// and the event bus.
//
// Keys are plain text; values are self-describing JSON. A value whose
// concrete Go type was registered with Register is wrapped in an envelope
// carrying a type hint, so the reader decodes it back to the correct kind
// without knowing the expected type in advance. Plain values (strings,
// numbers, booleans, nested maps, ordered sequences, null) pass through
// untouched, including when they appear inside maps and slices.
//
// Numbers decode as float64, the JSON default.
package codec

import (
	"encoding/json"
	"reflect"
	"sync"

	"github.com/irtaza129/datashare/errors"
)

const (
	typeField  = "@type"
	valueField = "@value"
)

var (
	regMu  sync.RWMutex
	byName = make(map[string]reflect.Type)
	byType = make(map[reflect.Type]string)
)

// Register associates a type hint name with a concrete pointer type.
// The prototype must be a non-nil pointer to a struct; registering the
// same name twice replaces the earlier entry.
func Register(name string, prototype interface{}) {
	t := reflect.TypeOf(prototype)
	if t == nil || t.Kind() != reflect.Ptr {
		panic("codec: prototype must be a pointer")
	}

	regMu.Lock()
	defer regMu.Unlock()
	byName[name] = t
	byType[t] = name
}

// Encode serializes a value, tagging registered concrete types.
func Encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(wrap(v))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "encoding value")
	}
	return data, nil
}

// Decode deserializes a value previously produced by Encode, rebuilding
// registered concrete types from their hints.
func Decode(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeCorruption, "decoding value")
	}
	return unwrap(raw)
}

// wrap recursively replaces registered values with hint envelopes.
func wrap(v interface{}) interface{} {
	if v == nil {
		return nil
	}

	if name, ok := nameFor(v); ok {
		return map[string]interface{}{typeField: name, valueField: v}
	}

	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = wrap(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = wrap(item)
		}
		return out
	default:
		return v
	}
}

// unwrap recursively rebuilds hint envelopes into concrete types.
func unwrap(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		if name, ok := val[typeField].(string); ok {
			return rebuild(name, val[valueField])
		}
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			u, err := unwrap(item)
			if err != nil {
				return nil, err
			}
			out[k] = u
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			u, err := unwrap(item)
			if err != nil {
				return nil, err
			}
			out[i] = u
		}
		return out, nil
	default:
		return v, nil
	}
}

// rebuild turns a hint envelope payload back into its registered type.
func rebuild(name string, payload interface{}) (interface{}, error) {
	regMu.RLock()
	t, ok := byName[name]
	regMu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.ErrCodeCorruption, "unregistered type hint %q", name)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeCorruption, "re-encoding hinted value")
	}

	out := reflect.New(t.Elem()).Interface()
	if err := json.Unmarshal(data, out); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeCorruption, "rebuilding "+name)
	}
	return out, nil
}

// nameFor looks up the registered hint name for a value's concrete type.
func nameFor(v interface{}) (string, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	name, ok := byType[reflect.TypeOf(v)]
	return name, ok
}
