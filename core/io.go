package core

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sarchlab/tacvm/value"
)

// InputSource provides the values INPUT reads.
type InputSource interface {
	ReadValue(kind value.Kind) (value.Value, error)
}

// OutputSink receives the values PRINT writes.
type OutputSink interface {
	WriteValue(v value.Value) error
}

// ReaderInput reads one value per line from a reader.
type ReaderInput struct {
	scanner *bufio.Scanner
}

// NewReaderInput creates an input source over r.
func NewReaderInput(r io.Reader) *ReaderInput {
	return &ReaderInput{scanner: bufio.NewScanner(r)}
}

// ReadValue parses the next line as a value of the given kind.
func (in *ReaderInput) ReadValue(kind value.Kind) (value.Value, error) {
	if !in.scanner.Scan() {
		if err := in.scanner.Err(); err != nil {
			return value.Value{}, err
		}

		return value.Value{}, io.EOF
	}

	return value.Parse(kind, in.scanner.Text())
}

// LinesInput serves a fixed list of lines.
type LinesInput struct {
	lines []string
}

// NewLinesInput creates an input source that returns lines in order.
func NewLinesInput(lines ...string) *LinesInput {
	return &LinesInput{lines: lines}
}

// ReadValue parses the next line as a value of the given kind.
func (in *LinesInput) ReadValue(kind value.Kind) (value.Value, error) {
	if len(in.lines) == 0 {
		return value.Value{}, io.EOF
	}

	line := in.lines[0]
	in.lines = in.lines[1:]

	return value.Parse(kind, line)
}

// WriterOutput writes one value per line.
type WriterOutput struct {
	w io.Writer
}

// NewWriterOutput creates an output sink over w.
func NewWriterOutput(w io.Writer) *WriterOutput {
	return &WriterOutput{w: w}
}

// WriteValue writes the printed form of v.
func (out *WriterOutput) WriteValue(v value.Value) error {
	_, err := fmt.Fprintln(out.w, v.String())
	return err
}

// BufferOutput keeps every printed value.
type BufferOutput struct {
	Values []value.Value
}

// WriteValue records v.
func (out *BufferOutput) WriteValue(v value.Value) error {
	out.Values = append(out.Values, v)
	return nil
}

// Lines returns the printed form of every recorded value.
func (out *BufferOutput) Lines() []string {
	lines := make([]string, len(out.Values))
	for n, v := range out.Values {
		lines[n] = v.String()
	}

	return lines
}
