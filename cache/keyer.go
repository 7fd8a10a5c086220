package cache

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Keyer derives deterministic cache keys from call arguments.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map
//   iteration order or the order named arguments were supplied in.
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: arguments that cannot be rendered deterministically return an
//   error wrapping ErrUnkeyable; callers then skip caching.
type Keyer interface {
	// Key derives a key for identity within namespace.
	Key(namespace, identity string, args []any, kwargs map[string]any) (string, error)
}

// DefaultKeyer hashes a canonical JSON rendering of the arguments with xxhash.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic cache key.
// Format: <namespace>:<identity>:<digest>
// where digest is the xxhash64 of the canonical arguments as 16 hex characters.
func (k *DefaultKeyer) Key(namespace, identity string, args []any, kwargs map[string]any) (string, error) {
	canonical, err := canonicalArgs(args, kwargs)
	if err != nil {
		return "", err
	}
	return namespace + ":" + identity + ":" + Digest(canonical), nil
}

// Digest returns the fixed-length key digest for data.
func Digest(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// canonicalArgs renders {"args":[...],"kwargs":{...}} with kwargs sorted by name.
func canonicalArgs(args []any, kwargs map[string]any) ([]byte, error) {
	positional, err := canonicalizeSlice(args)
	if err != nil {
		return nil, err
	}
	named, err := canonicalizeMap(kwargs)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(positional)+len(named)+20)
	out = append(out, `{"args":`...)
	out = append(out, positional...)
	out = append(out, `,"kwargs":`...)
	out = append(out, named...)
	out = append(out, '}')
	return out, nil
}

// canonicalize produces a deterministic representation of v.
// Maps are sorted by key; values JSON cannot encode fall back to a
// structural rendering.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	}

	rv := reflect.ValueOf(v)
	data, err := json.Marshal(v)
	if err == nil && !hidesState(rv, 0) {
		if isStruct(rv) {
			return typed(v, data)
		}
		return data, nil
	}

	// JSON rejects things like map[struct]T, NaN and complex numbers, and
	// silently drops unexported fields; fmt renders all of them structurally
	// with sorted map keys.
	if err := checkStructural(rv, 0); err != nil {
		return nil, err
	}
	return json.Marshal(fmt.Sprintf("%T%#v", v, v))
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

// typed tags the JSON form of a struct with its type, so that structs of
// different types with equal fields do not share a key.
func typed(v any, data []byte) ([]byte, error) {
	name, err := json.Marshal(fmt.Sprintf("%T", v))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(name)+len(data)+18)
	out = append(out, `{"type":`...)
	out = append(out, name...)
	out = append(out, `,"value":`...)
	out = append(out, data...)
	out = append(out, '}')
	return out, nil
}

func isStruct(v reflect.Value) bool {
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	return v.Kind() == reflect.Struct
}

func isStructType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// hidesState reports whether v holds state its JSON form leaves out: a
// struct with unexported fields that does not marshal itself. Errors built
// by errors.New are such values.
func hidesState(v reflect.Value, depth int) bool {
	if !v.IsValid() || depth > maxKeyDepth {
		return false
	}
	t := v.Type()
	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		return false
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return false
		}
		return hidesState(v.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return false
		}
		for i := 0; i < v.Len(); i++ {
			if hidesState(v.Index(i), depth+1) {
				return true
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if hidesState(iter.Value(), depth+1) {
				return true
			}
		}
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			// Embedded structs contribute their exported fields even when
			// the embedded type itself is unexported.
			if !f.IsExported() && !(f.Anonymous && isStructType(f.Type)) {
				return true
			}
			if hidesState(v.Field(i), depth+1) {
				return true
			}
		}
	}
	return false
}

const maxKeyDepth = 32

// checkStructural rejects values whose %#v rendering depends on memory
// layout or that have no value semantics at all.
func checkStructural(v reflect.Value, depth int) error {
	if depth > maxKeyDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrUnkeyable, maxKeyDepth)
	}
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Errorf("%w: %s value", ErrUnkeyable, v.Kind())
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		// Only the outermost pointer is dereferenced by %#v.
		if depth > 0 {
			return fmt.Errorf("%w: nested pointer %s", ErrUnkeyable, v.Type())
		}
		return checkStructural(v.Elem(), depth+1)
	case reflect.Interface:
		return checkStructural(v.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := checkStructural(v.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkStructural(iter.Key(), depth+1); err != nil {
				return err
			}
			if err := checkStructural(iter.Value(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if err := checkStructural(v.Field(i), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
