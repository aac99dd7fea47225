package engine

import (
	"maps"

	"github.com/pkg/errors"
)

// NamedValuesMap maps option names to values of the types accepted at the runtime
// boundary: string, int64, []int64, float32 and bool. Engines receive it on Compile
// and interpret the entries they recognize.
type NamedValuesMap map[string]any

// Validate checks that every value in the map is of a supported type.
func (m NamedValuesMap) Validate() error {
	for key, anyValue := range m {
		switch anyValue.(type) {
		case string, int64, []int64, float32, bool:
			// Supported.
		default:
			return errors.Errorf("option (NamedValuesMap) %q was set to unsupported type %T (value=%v). "+
				"Only values of type string, int64, []int64, float32 and bool are supported.",
				key, anyValue, anyValue)
		}
	}
	return nil
}

// Clone returns a shallow copy of the map. A nil map clones to nil.
func (m NamedValuesMap) Clone() NamedValuesMap {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// GetStringOr returns the string value stored under key, or defaultValue if the key
// is absent or holds a different type.
func (m NamedValuesMap) GetStringOr(key, defaultValue string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return defaultValue
}

// GetBoolOr returns the bool value stored under key, or defaultValue if the key is
// absent or holds a different type.
func (m NamedValuesMap) GetBoolOr(key string, defaultValue bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return defaultValue
}

// GetInt64Or returns the int64 value stored under key, or defaultValue if the key is
// absent or holds a different type.
func (m NamedValuesMap) GetInt64Or(key string, defaultValue int64) int64 {
	if v, ok := m[key].(int64); ok {
		return v
	}
	return defaultValue
}
