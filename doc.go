// Package filebox provides a value container durably backed by a single
// file.
//
// # Overview
//
// The package centers on [Box], a generic container that decodes its value
// from a file when opened and encodes it back when released. In between,
// the value lives in memory and is read and mutated directly through the
// exported [Box.Value] field. The on-disk byte format is delegated to a
// [Codec]; codecs for JSON, gob and YAML are provided, plus [Sealed], an
// encrypting wrapper around any of them.
//
// # Lifecycle
//
// A box is constructed by [Create], [Open], [CreateDefault] or
// [OpenOrCreate] and released exactly once, by [Box.Close] (encode the
// current value, overwrite the file) or by [Box.Delete] (discard the value,
// remove the file). Pair every successful construction with a deferred
// Close:
//
//	b, err := filebox.Create(path, filebox.JSON[int](), 15)
//	if err != nil {
//		return err
//	}
//	defer b.Close()
//	b.Value += 2
//
// A finalizer flushes boxes that become garbage without an explicit
// release. Finalizers run at an unspecified time and possibly never before
// process exit, so the finalizer is a safety net against leaks, not a
// release path.
//
// # Durability
//
// Between flushes the file holds a valid encoding of some past value, not
// necessarily the current one. Opening a box truncates the file up front,
// so an open box's bytes live only in memory until the next flush. There is
// no locking and no fsync: exactly one live box per path, upheld by the
// caller, is the concurrency model. Do not use this package where several
// processes write the same file or where crash safety between flushes is
// required.
package filebox
