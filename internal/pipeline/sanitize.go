package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/askagent/askagent/internal/helpers"
)

// Sanitize recursively converts v into JSON-safe primitives and containers:
// nil, bool, string, int64, float64, []any and map[string]any. Non-finite
// floats become nil, binary blobs become base64 strings, timestamps become
// RFC 3339 strings, and anything unrepresentable falls back to its string
// form. Sanitize is total (never fails) and idempotent.
func Sanitize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		return t
	case string:
		return t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return fmt.Sprintf("%d", t)
		}
		return int64(t)
	case float32:
		return sanitizeFloat(float64(t))
	case float64:
		return sanitizeFloat(t)
	case json.Number:
		return t.String()
	case []byte:
		return base64.StdEncoding.EncodeToString(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case time.Duration:
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Sanitize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Sanitize(val)
		}
		return out
	}
	return sanitizeReflected(v)
}

func sanitizeFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// sanitizeReflected handles typed maps, slices, structs and pointers that the
// fast paths above do not cover.
func sanitizeReflected(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Sanitize(rv.Elem().Interface())
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[helpers.Str(iter.Key().Interface())] = Sanitize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Sanitize(rv.Index(i).Interface())
		}
		return out
	case reflect.Struct:
		// Round-trip through JSON so tags and omitempty behave as callers
		// expect. Marshal failures (e.g. NaN fields) fall back to a string.
		b, err := json.Marshal(v)
		if err != nil {
			return helpers.Str(v)
		}
		var decoded any
		if err := json.Unmarshal(b, &decoded); err != nil {
			return helpers.Str(v)
		}
		return Sanitize(decoded)
	}
	return helpers.Str(v)
}
