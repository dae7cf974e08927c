// internal/fetch/body.go
package fetch

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var (
	ErrBodyTooLarge    = errors.New("fetch: response body exceeds fetch buffer")
	ErrInvalidEncoding = errors.New("fetch: response body is not valid UTF-8")
)

// ReadBody reads the whole body into buf and returns the length.
// A body that exactly fills buf is accepted; one more byte is an error.
func ReadBody(body io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(body, buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return n, nil
	case err != nil:
		return n, fmt.Errorf("fetch: read body: %w", err)
	}

	// buf is full: probe for overflow
	var probe [1]byte
	m, err := io.ReadFull(body, probe[:])
	switch {
	case m > 0:
		return n, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, len(buf))
	case errors.Is(err, io.EOF):
		return n, nil
	default:
		return n, fmt.Errorf("fetch: read body: %w", err)
	}
}

// CheckText rejects a body that is not UTF-8 text. The bytes are not copied.
func CheckText(b []byte) error {
	if !utf8.Valid(b) {
		return ErrInvalidEncoding
	}
	return nil
}
