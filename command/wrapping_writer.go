package command

import (
	"fmt"
	"strings"
	"unicode"
)

// WrappingWriter accumulates text, wrapping lines at word boundaries so they do not exceed a given width. Each line
// after a wrap or a newline starts with the current line prefix.
type WrappingWriter struct {
	data                   []rune
	width                  int
	remainingToNextNewLine int
	linePrefix             []rune
}

func NewWrappingWriter(width int) (*WrappingWriter, error) {
	if width <= 0 {
		return nil, fmt.Errorf("illegal width: %d", width)
	}
	return &WrappingWriter{width: width, remainingToNextNewLine: width}, nil
}

func (w *WrappingWriter) SetLinePrefix(prefix string) error {
	runes := []rune(prefix)
	if len(runes) >= w.width {
		return fmt.Errorf("invalid prefix '%s': too long for width %d", prefix, w.width)
	} else if strings.ContainsRune(prefix, '\n') {
		return fmt.Errorf("invalid prefix '%s': cannot contain new lines", prefix)
	}
	w.linePrefix = runes
	return nil
}

func (w *WrappingWriter) atLineStart() bool {
	return len(w.data) == 0 || w.data[len(w.data)-1] == '\n'
}

// wrap moves the word currently being written to a new line, breaking at the last space of the current line. If the
// current line has no space (or the word alone fills a line), the rune is appended as-is.
func (w *WrappingWriter) wrap(r rune) {
	for j := len(w.data) - 1; j >= 0; j-- {
		rr := w.data[j]
		if rr == '\n' || len(w.data)-j+len(w.linePrefix) >= w.width {
			w.data = append(w.data, r)
			return
		} else if unicode.IsSpace(rr) {
			word := append([]rune(nil), w.data[j+1:]...)
			w.data = append(w.data[:j+1], '\n')
			w.data = append(w.data, w.linePrefix...)
			w.data = append(w.data, word...)
			w.data = append(w.data, r)

			// Remaining characters now equal width minus the prefix, the moved word, and the rune we just wrote
			w.remainingToNextNewLine = max(w.width-len(w.linePrefix)-len(word)-1, 0)
			return
		}
	}
	w.data = append(w.data, r)
}

func (w *WrappingWriter) Write(p []byte) (n int, err error) {
	for _, r := range string(p) {
		switch {
		case r == '\n':
			w.data = append(w.data, r)
			w.remainingToNextNewLine = w.width
		case w.remainingToNextNewLine == 0:
			w.wrap(r)
		default:
			if w.atLineStart() {
				w.data = append(w.data, w.linePrefix...)
				w.remainingToNextNewLine -= len(w.linePrefix)
			}
			w.data = append(w.data, r)
			w.remainingToNextNewLine--
		}
	}
	return len(p), nil
}

func (w *WrappingWriter) String() string {
	return string(w.data)
}
