package filebox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
)

// Box binds a value of type T to a backing file. The value is decoded or
// seeded at construction, lives in the exported Value field for the box's
// lifetime, and is encoded back to the file by [Box.Close] or an
// intermediate [Box.Flush]. A box is not safe for concurrent use.
type Box[T any] struct {
	// Value is the contained value. Read and mutate it directly.
	Value T

	path     string
	f        *os.File
	codec    Codec[T]
	cfg      config
	released bool
}

// Create opens path for writing, truncating any existing contents
// immediately, and returns a live box holding value. Nothing is written
// until the first flush; until then the file is empty. Create fails when
// the file cannot be opened, for example when the parent directory does not
// exist.
func Create[T any](path string, codec Codec[T], value T, opts ...Option) (*Box[T], error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return newBox(path, f, codec, value, opts), nil
}

// Open reads path, decodes its full contents, and returns a live box
// holding the decoded value. The file is then reopened with truncation in
// preparation for the flush, so a successfully opened box has already
// discarded its on-disk bytes; Close writes them back.
//
// Open fails with a wrapped filesystem error when the file cannot be read,
// with a [DecodeError] when the contents are not a valid encoding, an empty
// file included, and with a distinct filesystem error when the reopen after
// a successful decode fails. A failed open leaves the file untouched.
func Open[T any](path string, codec Codec[T], opts ...Option) (*Box[T], error) {
	value, err := load(path, codec)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen %s for writing: %w", path, err)
	}
	return newBox(path, f, codec, value, opts), nil
}

// CreateDefault is [Create] with the type's default value: the result of
// DefaultValue when T implements interface{ DefaultValue() T } on its zero
// value, the zero value itself otherwise.
func CreateDefault[T any](path string, codec Codec[T], opts ...Option) (*Box[T], error) {
	return Create(path, codec, defaultValue[T](), opts...)
}

// OpenOrCreate opens the box at path when the file exists and otherwise
// creates it with the default value. The existence check and the open are
// separate steps, not one atomic operation; single writer discipline is
// assumed here as everywhere else.
func OpenOrCreate[T any](path string, codec Codec[T], opts ...Option) (*Box[T], error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return CreateDefault(path, codec, opts...)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return Open(path, codec, opts...)
}

// Peek decodes the value stored at path without constructing a box. No
// handle is kept and the file's contents are left untouched, so Peek is the
// safe way to inspect a box file that another part of the program, or
// another process, may own.
func Peek[T any](path string, codec Codec[T]) (T, error) {
	return load(path, codec)
}

func load[T any](path string, codec Codec[T]) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("failed to open %s: %w", path, err)
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return zero, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return zero, &DecodeError{Path: path, Err: ErrEmptyFile}
	}
	value, err := codec.Decode(data)
	if err != nil {
		return zero, &DecodeError{Path: path, Err: err}
	}
	return value, nil
}

func newBox[T any](path string, f *os.File, codec Codec[T], value T, opts []Option) *Box[T] {
	b := &Box[T]{
		Value: value,
		path:  path,
		f:     f,
		codec: codec,
		cfg:   applyOptions(opts),
	}
	if !b.cfg.noFinalizer {
		runtime.SetFinalizer(b, finalize[T])
	}
	return b
}

// finalize flushes boxes that became garbage without an explicit release.
// It runs at an unspecified time, possibly never; losing the race against
// process exit loses the final value. A finalizer failure has no caller to
// report to, so it goes to the box's logger.
func finalize[T any](b *Box[T]) {
	b.cfg.logger.Warn("box released by finalizer, not Close", "path", b.path)
	if err := b.Close(); err != nil {
		b.cfg.logger.Error("finalizer flush failed", "path", b.path, "error", err)
	}
}

// Flush encodes the current value and overwrites the backing file, keeping
// the box live. Close flushes on its own; Flush exists for holders that
// need durability points before release. When encoding fails the file is
// left as the previous flush wrote it.
func (b *Box[T]) Flush() error {
	if b.released {
		return ErrReleased
	}
	return b.flush()
}

func (b *Box[T]) flush() error {
	// Encode before touching the file so an EncodeError never destroys the
	// previous flush.
	data, err := b.codec.Encode(b.Value)
	if err != nil {
		return &EncodeError{Path: b.path, Err: err}
	}
	if _, err := b.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek %s: %w", b.path, err)
	}
	if err := b.f.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", b.path, err)
	}
	if _, err := b.f.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", b.path, err)
	}
	var errs error
	for _, o := range b.cfg.observers {
		if err := o.OnFlush(b.path); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// Close flushes the current value and releases the file handle. It is the
// normal end of a box's life. Calling Close after either release path
// returns [ErrReleased]; a failed Close still releases the box.
func (b *Box[T]) Close() error {
	if b.released {
		return ErrReleased
	}
	b.released = true
	runtime.SetFinalizer(b, nil)
	err := b.flush()
	if cerr := b.f.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close %s: %w", b.path, cerr))
	}
	return err
}

// Delete releases the file handle and removes the backing file. The
// in-memory value is discarded without a flush. On success the file no
// longer exists, so a later [Open] of the same path fails.
func (b *Box[T]) Delete() error {
	if b.released {
		return ErrReleased
	}
	b.released = true
	runtime.SetFinalizer(b, nil)
	var errs error
	if err := b.f.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to close %s: %w", b.path, err))
	}
	if err := os.Remove(b.path); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to remove %s: %w", b.path, err))
	}
	return errs
}

// Path returns the backing file's path as given at construction.
func (b *Box[T]) Path() string {
	return b.path
}

// String formats the contained value like fmt.Sprint.
func (b *Box[T]) String() string {
	return fmt.Sprint(b.Value)
}

func defaultValue[T any]() T {
	var zero T
	if d, ok := any(zero).(interface{ DefaultValue() T }); ok {
		return d.DefaultValue()
	}
	return zero
}
