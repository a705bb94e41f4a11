package filebox

import (
	"gopkg.in/yaml.v3"
)

// YAML returns a [Codec] backed by gopkg.in/yaml.v3, for box files meant to
// be edited by hand.
//
// yaml.Unmarshal turns empty input into a zero value instead of failing.
// The box rejects empty files before any codec sees them, so that leniency
// never manufactures a value out of a truncated file.
func YAML[T any]() Codec[T] {
	return yamlCodec[T]{}
}

type yamlCodec[T any] struct{}

func (yamlCodec[T]) Encode(value T) ([]byte, error) {
	return yaml.Marshal(value)
}

func (yamlCodec[T]) Decode(data []byte) (T, error) {
	var value T
	if err := yaml.Unmarshal(data, &value); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}
