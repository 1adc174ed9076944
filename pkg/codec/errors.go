package codec

import "fmt"

const (
	recordHeader     = "header"
	recordDescriptor = "app image descriptor"
)

// Errors
var (
	ErrBufferTooShort    = &CodecError{"buffer too short"}
	ErrSizeFieldMismatch = &CodecError{"size field mismatch"}
)

// CodecError is the kind of a decode failure.
type CodecError struct {
	Message string
}

func (e *CodecError) Error() string {
	return e.Message
}

// LayoutError reports why a record could not be decoded. Err is one of
// ErrBufferTooShort or ErrSizeFieldMismatch.
type LayoutError struct {
	Record string
	Field  string
	Got    uint32
	Want   uint32
	Err    error
}

func (e *LayoutError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %v: %s is %d, want %d", e.Record, e.Err, e.Field, e.Got, e.Want)
	}
	return fmt.Sprintf("%s: %v: got %d bytes, want %d", e.Record, e.Err, e.Got, e.Want)
}

func (e *LayoutError) Unwrap() error {
	return e.Err
}
