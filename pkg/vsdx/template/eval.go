package template

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// EvaluateVariable looks up a plain identifier in data. Missing keys
// evaluate to nil.
func EvaluateVariable(name string, data Data) (interface{}, error) {
	name = strings.TrimSpace(name)
	if data == nil || name == "" {
		return nil, nil
	}
	return data[name], nil
}

// accessMapField accesses a field in a map-like structure
func accessMapField(current interface{}, field string) interface{} {
	if current == nil {
		return nil
	}

	switch v := current.(type) {
	case Data:
		return v[field]
	case map[string]interface{}:
		return v[field]
	case map[string]string:
		return v[field]
	case map[string]int:
		return v[field]
	case map[string]float64:
		return v[field]
	case map[string]bool:
		return v[field]
	case map[interface{}]interface{}:
		return v[field]
	}

	// Fall back to reflection for other maps and exported struct fields
	rv := reflect.ValueOf(current)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		val := rv.MapIndex(reflect.ValueOf(field).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil
		}
		return val.Interface()
	case reflect.Struct:
		f := rv.FieldByName(field)
		if !f.IsValid() || !f.CanInterface() {
			return nil
		}
		return f.Interface()
	}
	return nil
}

// accessArrayIndex accesses an array element by index. Negative indices
// count from the end.
func accessArrayIndex(current interface{}, index int) interface{} {
	if current == nil {
		return nil
	}

	if v, ok := current.([]interface{}); ok {
		if index < 0 {
			index = len(v) + index
		}
		if index >= 0 && index < len(v) {
			return v[index]
		}
		return nil
	}

	rv := reflect.ValueOf(current)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	if index < 0 {
		index = rv.Len() + index
	}
	if index >= 0 && index < rv.Len() {
		return rv.Index(index).Interface()
	}
	return nil
}

// toSlice converts various types to []interface{} for iteration
func toSlice(val interface{}) ([]interface{}, error) {
	if val == nil {
		return []interface{}{}, nil
	}

	switch v := val.(type) {
	case []interface{}:
		return v, nil
	case string:
		// Iterate over characters
		result := make([]interface{}, 0, len(v))
		for _, char := range v {
			result = append(result, string(char))
		}
		return result, nil
	case Data:
		return mapEntries(v), nil
	case map[string]interface{}:
		return mapEntries(v), nil
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		result := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			result[i] = rv.Index(i).Interface()
		}
		return result, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// Iterating a number yields 0..n-1
		n := int(rv.Int())
		result := make([]interface{}, 0, n)
		for i := 0; i < n; i++ {
			result = append(result, i)
		}
		return result, nil
	}

	return nil, fmt.Errorf("type %T is not iterable", val)
}

// mapEntries converts a map to a key-sorted slice of key/value pairs
func mapEntries(m map[string]interface{}) []interface{} {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	result := make([]interface{}, 0, len(m))
	for _, k := range keys {
		result = append(result, map[string]interface{}{
			"key":   k,
			"value": m[k],
		})
	}
	return result
}

// FormatValue converts a value to its string representation
func FormatValue(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', 15, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IsTruthy reports whether a value counts as true in a condition. nil,
// false, zero numbers and empty strings or collections are falsy.
func IsTruthy(val interface{}) bool {
	if val == nil {
		return false
	}

	switch v := val.(type) {
	case bool:
		return v
	case int, int8, int16, int32, int64:
		n, _ := toFloat64(v)
		return n != 0
	case uint, uint8, uint16, uint32, uint64:
		n, _ := toFloat64(v)
		return n != 0
	case float32:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func toFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func toInt(val interface{}) (int, bool) {
	f, ok := toFloat64(val)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func isInteger(val interface{}) bool {
	switch val.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}
