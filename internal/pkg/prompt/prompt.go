package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Source abstracts where interactive answers come from so the planning logic
// can be driven without a live terminal.
type Source interface {
	Ask(label string) (string, error)
}

type readerSource struct {
	in  *bufio.Reader
	out io.Writer
}

// New returns a Source reading line-oriented answers from in and writing
// prompts to out.
func New(in io.Reader, out io.Writer) Source {
	return &readerSource{in: bufio.NewReader(in), out: out}
}

func (s *readerSource) Ask(label string) (string, error) {
	fmt.Fprintf(s.out, "%s: ", label)
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading answer for %q: %w", label, err)
	}
	return strings.TrimSpace(line), nil
}

// ReadAll consumes a payload from in until end-of-stream. Used for the pull
// secret, which is pasted or piped on stdin.
func ReadAll(in io.Reader) ([]byte, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	return data, nil
}
