package supervisor

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog"
)

// maxLine bounds a buffered partial line; longer output is emitted in chunks.
const maxLine = 64 << 10

// lineWriter logs complete lines written by a child process.
type lineWriter struct {
	mu  sync.Mutex
	log zerolog.Logger
	buf []byte
}

func newLineWriter(l zerolog.Logger, name, stream string) *lineWriter {
	return &lineWriter{log: l.With().Str("service", name).Str("stream", stream).Logger()}
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		lw.emit(lw.buf[:idx])
		lw.buf = lw.buf[idx+1:]
	}
	if len(lw.buf) > maxLine {
		lw.emit(lw.buf)
		lw.buf = nil
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (lw *lineWriter) Flush() {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if len(lw.buf) > 0 {
		lw.emit(lw.buf)
		lw.buf = nil
	}
}

func (lw *lineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}
	lw.log.Info().Msg(string(line))
}
