package core

import (
	"bufio"
	"context"
	"errors"
	"io"
)

// DefaultMaxLineBytes is the longest line content kept; the rest is dropped.
const DefaultMaxLineBytes = 8192

// ctxCheckEvery is how many lines pass between context checks.
const ctxCheckEvery = 1024

// ScanLines reads r and calls fn once per line with the terminating '\n'
// removed. A line longer than max bytes is passed truncated to max and the
// remainder up to the next newline is discarded. A final line without a
// newline is still delivered. The slice passed to fn is only valid during the
// call. It returns the number of lines delivered.
func ScanLines(ctx context.Context, r io.Reader, max int, fn func(line []byte) error) (int, error) {
	if max <= 0 {
		max = DefaultMaxLineBytes
	}
	br := bufio.NewReaderSize(r, max+1)

	n := 0
	for {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}

		line, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			if len(line) > max {
				line = line[:max]
			}
			n++
			if ferr := fn(line); ferr != nil {
				return n, ferr
			}
			if derr := discardLine(br); derr != nil {
				if errors.Is(derr, io.EOF) {
					return n, nil
				}
				return n, derr
			}
			continue
		}

		if len(line) > 0 && line[len(line)-1] == '\n' {
			line = line[:len(line)-1]
		}
		if len(line) > max {
			line = line[:max]
		}
		if err == nil || len(line) > 0 {
			n++
			if ferr := fn(line); ferr != nil {
				return n, ferr
			}
		}

		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

// discardLine skips input up to and including the next newline.
func discardLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return err
	}
}
