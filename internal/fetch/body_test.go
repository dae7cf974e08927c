// internal/fetch/body_test.go
package fetch

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBody_Sizes(t *testing.T) {
	buf := make([]byte, 8)

	cases := []struct {
		name    string
		body    string
		want    int
		wantErr error
	}{
		{"empty", "", 0, nil},
		{"short", "abc", 3, nil},
		{"exact fit", "abcdefgh", 8, nil},
		{"one over", "abcdefghi", 8, ErrBodyTooLarge},
		{"far over", strings.Repeat("x", 100), 8, ErrBodyTooLarge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := ReadBody(strings.NewReader(tc.body), buf)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, n)
			assert.Equal(t, tc.body, string(buf[:n]))
		})
	}
}

func TestReadBody_ShortReads(t *testing.T) {
	buf := make([]byte, 8)
	n, err := ReadBody(iotest.OneByteReader(strings.NewReader("abcdefgh")), buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestReadBody_ReaderError(t *testing.T) {
	boom := errors.New("connection reset")
	buf := make([]byte, 8)

	_, err := ReadBody(iotest.ErrReader(boom), buf)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrBodyTooLarge)

	// error right after an exact fill
	_, err = ReadBody(iotest.DataErrReader(bytes.NewReader([]byte("abcdefgh"))), buf)
	assert.NoError(t, err)
}

func TestCheckText(t *testing.T) {
	assert.NoError(t, CheckText([]byte("hello, wörld")))
	assert.NoError(t, CheckText(nil))
	assert.ErrorIs(t, CheckText([]byte{0xff, 0xfe}), ErrInvalidEncoding)
}
