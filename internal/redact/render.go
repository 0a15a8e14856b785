package redact

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// stackTracer is implemented by errors that carry a formatted stack.
type stackTracer interface {
	StackTrace() string
}

// Render converts any value to its display string. Errors render as
// "<Type>: <message>" plus a stack trace when the error exposes one;
// structured values render via JSON; primitives via fmt; nil as a
// literal marker.
func Render(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return val
	case error:
		s := fmt.Sprintf("%T: %s", val, val.Error())
		if st, ok := val.(stackTracer); ok {
			s += " " + st.StackTrace()
		}
		return s
	case fmt.Stringer:
		return val.String()
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Ptr:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
