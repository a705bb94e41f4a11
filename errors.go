package filebox

import (
	"errors"
	"fmt"
)

var (
	// ErrReleased is returned when a box is used after Close or Delete.
	ErrReleased = errors.New("box already released")

	// ErrEmptyFile is the cause of the [DecodeError] returned when opening a
	// zero length file. An empty file is never a valid encoding, even under
	// codecs that would happily decode zero bytes into a zero value.
	ErrEmptyFile = errors.New("file is empty")
)

// DecodeError reports that a file's contents are not a valid encoding of
// the box's value type. The file itself was readable; errors.Is still
// matches the underlying codec error through Unwrap.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports that the in-memory value could not be serialized
// during a flush. The backing file is left as the previous flush wrote it.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %s", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
