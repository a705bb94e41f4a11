package filebox

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
)

// Codec converts values of type T to and from the bytes stored in a box
// file. Encode and Decode must be inverses for every value the box will
// hold; beyond that the format is opaque to this package.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSON returns a [Codec] backed by encoding/json. It is the codec of choice
// when box files are read by other tools or by people.
func JSON[T any]() Codec[T] {
	return jsonCodec[T]{}
}

type jsonCodec[T any] struct{}

func (jsonCodec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (jsonCodec[T]) Decode(data []byte) (T, error) {
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

// Gob returns a [Codec] backed by encoding/gob, a compact binary format for
// box files that never leave Go programs. Gob cannot describe all types;
// channels and functions fail at encode time.
func Gob[T any]() Codec[T] {
	return gobCodec[T]{}
}

type gobCodec[T any] struct{}

func (gobCodec[T]) Encode(value T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec[T]) Decode(data []byte) (T, error) {
	var value T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&value); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}
