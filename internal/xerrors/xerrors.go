package xerrors

import (
	"errors"
	iofs "io/fs"
)

// Kind classifies pipeline errors.
type Kind int

const (
	KindInternal Kind = iota
	// KindAccess is an I/O failure reading a path (permission denied, EIO, ...).
	KindAccess
	// KindNotAFile is a path that vanished or does not name a regular file.
	KindNotAFile
	// KindUnidentified means every detector in the classification chain declined.
	KindUnidentified
	// KindUnsupportedFormat means an algorithm cannot process this content.
	KindUnsupportedFormat
	// KindUnknownAlgorithm is a requested algorithm name that is not registered.
	KindUnknownAlgorithm
	// KindStorage is a failure of the persistent store.
	KindStorage
)

// Error wraps an underlying error with additional metadata.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Kind.String()
	if e.Op != "" {
		base = e.Op + ": " + base
	}
	if e.Path != "" {
		base += " " + e.Path
	}
	if e.Err != nil {
		return base + ": " + e.Err.Error()
	}
	return base
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a kind sentinel matching e, so callers can write
// errors.Is(err, xerrors.ErrUnsupportedFormat).
func (e *Error) Is(target error) bool {
	var s sentinel
	if errors.As(target, &s) {
		return s.kind == e.Kind
	}
	return false
}

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access error"
	case KindNotAFile:
		return "not a regular file"
	case KindUnidentified:
		return "unidentified file type"
	case KindUnsupportedFormat:
		return "unsupported format"
	case KindUnknownAlgorithm:
		return "unknown algorithm"
	case KindStorage:
		return "storage error"
	default:
		return "internal error"
	}
}

type sentinel struct{ kind Kind }

func (s sentinel) Error() string { return s.kind.String() }

// Sentinels usable with errors.Is.
var (
	ErrAccess            error = sentinel{KindAccess}
	ErrNotAFile          error = sentinel{KindNotAFile}
	ErrUnidentified      error = sentinel{KindUnidentified}
	ErrUnsupportedFormat error = sentinel{KindUnsupportedFormat}
	ErrUnknownAlgorithm  error = sentinel{KindUnknownAlgorithm}
	ErrStorage           error = sentinel{KindStorage}
)

// Wrap annotates err with the given metadata. If err is nil, Wrap returns nil.
func Wrap(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// E creates a new error with the provided metadata (no underlying error).
func E(kind Kind, op, path string) error {
	return &Error{Kind: kind, Op: op, Path: path}
}

// KindOf extracts the Kind from err, walking wrapped errors as needed.
// Bare filesystem errors are mapped: a missing path is KindNotAFile,
// everything else from the filesystem is KindAccess.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var s sentinel
	if errors.As(err, &s) {
		return s.kind
	}
	var pathErr *iofs.PathError
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		return KindNotAFile
	case errors.Is(err, iofs.ErrPermission), errors.As(err, &pathErr):
		return KindAccess
	default:
		return KindInternal
	}
}
