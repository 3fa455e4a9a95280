package globimap

import "errors"

var (
	// ErrInvalidConfiguration is returned by Configure when the requested
	// dimensions cannot be used. The previous configuration is kept.
	ErrInvalidConfiguration = errors.New("globimap: invalid configuration")

	// ErrNotConfigured is returned by operations that need a configured
	// structure.
	ErrNotConfigured = errors.New("globimap: not configured")

	// ErrBufferSize is returned when a bit buffer does not match the
	// configured size of a Bitmap.
	ErrBufferSize = errors.New("globimap: buffer size mismatch")
)
