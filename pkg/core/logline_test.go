package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, input string, max int) []string {
	t.Helper()
	var got []string
	n, err := ScanLines(context.Background(), strings.NewReader(input), max, func(line []byte) error {
		got = append(got, string(line))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, len(got), n)
	return got
}

func TestScanLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  []string
	}{
		{"empty input", "", 0, nil},
		{"single line", "a\n", 0, []string{"a"}},
		{"missing final newline", "a\nb", 0, []string{"a", "b"}},
		{"blank lines kept", "a\n\n\nb\n", 0, []string{"a", "", "", "b"}},
		{"crlf kept", "a\r\n", 0, []string{"a\r"}},
		{"exactly max", "abcd\nef\n", 4, []string{"abcd", "ef"}},
		{"truncated short buffer", "abcdefghij\nxy\n", 4, []string{"abcd", "xy"}},
		{"truncated at eof", "abcdefghij", 4, []string{"abcd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collect(t, tt.input, tt.max))
		})
	}
}

func TestScanLinesTruncatesLongLines(t *testing.T) {
	long := strings.Repeat("x", 100)
	input := long + "\n" + "short\n" + long + long + "\n" + "tail"

	got := collect(t, input, 32)
	require.Len(t, got, 4)
	assert.Equal(t, strings.Repeat("x", 32), got[0])
	assert.Equal(t, "short", got[1])
	assert.Equal(t, strings.Repeat("x", 32), got[2])
	assert.Equal(t, "tail", got[3])
}

func TestScanLinesDefaultMax(t *testing.T) {
	long := strings.Repeat("y", DefaultMaxLineBytes+10)
	got := collect(t, long+"\nok\n", 0)
	require.Len(t, got, 2)
	assert.Len(t, got[0], DefaultMaxLineBytes)
	assert.Equal(t, "ok", got[1])
}

func TestScanLinesStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	n, err := ScanLines(context.Background(), strings.NewReader("a\nb\nc\n"), 0, func(line []byte) error {
		if string(line) == "b" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, n)
}

func TestScanLinesHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := ScanLines(ctx, strings.NewReader("a\n"), 0, func([]byte) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}
