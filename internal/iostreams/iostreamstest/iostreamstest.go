// Package iostreamstest provides test doubles for the iostreams package.
package iostreamstest

import (
	"bytes"
	"sync"

	"github.com/schmitthub/crashloop/internal/iostreams"
)

// Buffer is a bytes.Buffer safe for concurrent writers. Workers write
// attempt start lines to the shared output stream in parallel, so the
// test doubles have to tolerate that.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Read(p)
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) WriteString(s string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.WriteString(s)
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// TestIOStreams wraps IOStreams for testing with accessible buffers.
type TestIOStreams struct {
	*iostreams.IOStreams
	InBuf  *Buffer
	OutBuf *Buffer
	ErrBuf *Buffer
}

// New creates IOStreams backed by buffers. Buffers are not *os.File, so
// the streams report non-TTY and colors stay disabled.
func New() *TestIOStreams {
	in := &Buffer{}
	out := &Buffer{}
	errOut := &Buffer{}

	return &TestIOStreams{
		IOStreams: &iostreams.IOStreams{
			In:     in,
			Out:    out,
			ErrOut: errOut,
		},
		InBuf:  in,
		OutBuf: out,
		ErrBuf: errOut,
	}
}
