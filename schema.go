package filebox

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Describe reflects the JSON Schema of T from its fields and
// `jsonschema:"..."` struct tags. It gives JSON-encoded box files a
// published shape without hand-maintaining a schema document. T must be a
// struct or pointer to struct.
func Describe[T any]() (*jsonschema.Schema, error) {
	t := reflect.TypeFor[T]()
	switch t.Kind() {
	case reflect.Pointer:
		if t.Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
		}
		t = t.Elem()
	case reflect.Struct:
	default:
		return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
	}

	// Inline properties (no $ref) so the schema stands alone.
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	return r.ReflectFromType(t), nil
}
