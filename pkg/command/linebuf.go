package command

// MaxLineLen bounds the command line length, terminator excluded. Lines that
// grow past it are discarded wholesale and accumulation restarts empty.
const MaxLineLen = 64

// LineBuffer accumulates incoming console bytes into newline-terminated
// lines. It accepts bytes one chunk at a time, in whatever sizes the
// transport delivers them.
type LineBuffer struct {
	buf      []byte
	overflow bool
}

// NewLineBuffer creates an empty buffer.
func NewLineBuffer() *LineBuffer {
	return &LineBuffer{buf: make([]byte, 0, MaxLineLen)}
}

// Feed consumes a chunk of input and returns the complete lines it finished,
// stripped of their terminators. CR and LF both terminate, so CRLF, bare LF
// and bare CR consoles all work; the empty line a CRLF pair produces is
// dropped. An over-length line is discarded up to and including the next
// terminator.
func (b *LineBuffer) Feed(data []byte) []string {
	var lines []string
	for _, c := range data {
		switch c {
		case '\n', '\r':
			if !b.overflow && len(b.buf) > 0 {
				lines = append(lines, string(b.buf))
			}
			b.buf = b.buf[:0]
			b.overflow = false
		default:
			if b.overflow {
				continue
			}
			if len(b.buf) >= MaxLineLen {
				b.buf = b.buf[:0]
				b.overflow = true
				continue
			}
			b.buf = append(b.buf, c)
		}
	}
	return lines
}
