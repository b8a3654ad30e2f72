package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// TeeWriter fans a log line out to several sinks. A failing sink does not
// stop the others from receiving the line.
type TeeWriter struct {
	sinks []io.Writer
}

func NewTeeWriter(sinks ...io.Writer) *TeeWriter {
	tw := &TeeWriter{sinks: make([]io.Writer, 0, len(sinks))}
	for _, s := range sinks {
		if s != nil {
			tw.sinks = append(tw.sinks, s)
		}
	}
	return tw
}

func (tw *TeeWriter) Sinks() int {
	return len(tw.sinks)
}

// Write reports len(p) when at least one sink took the whole line, together
// with the combined errors of the sinks that did not.
func (tw *TeeWriter) Write(p []byte) (int, error) {
	var (
		errs      error
		delivered bool
	)
	for _, s := range tw.sinks {
		n, err := s.Write(p)
		if err == nil && n < len(p) {
			err = io.ErrShortWrite
		}
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		delivered = true
	}

	if !delivered && len(tw.sinks) > 0 {
		return 0, errs
	}
	return len(p), errs
}
