package repl

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func init() {
	color.NoColor = true
}

func collect(lines *[]string) Handler {
	return func(ctx context.Context, line string) error {
		*lines = append(*lines, line)
		return nil
	}
}

func TestRun_EOF(t *testing.T) {
	var got []string
	var out strings.Builder
	err := Run(context.Background(), strings.NewReader("first\n\n   \nsecond\n"), &out, "> ", collect(&got))

	assert.NilError(t, err)
	assert.DeepEqual(t, got, []string{"first", "second"})
	assert.Equal(t, strings.Count(out.String(), "> "), 5)
}

func TestRun_Quit(t *testing.T) {
	for _, word := range []string{"quit", "EXIT", " q "} {
		var got []string
		err := Run(context.Background(), strings.NewReader("one\n"+word+"\ntwo\n"), io.Discard, "", collect(&got))
		assert.NilError(t, err)
		assert.DeepEqual(t, got, []string{"one"})
	}
}

func TestRun_QuitReleasesReader(t *testing.T) {
	before := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		err := Run(context.Background(), strings.NewReader("quit\nleft\nover\n"), io.Discard, "", collect(new([]string)))
		assert.NilError(t, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Assert(t, runtime.NumGoroutine() <= before, "reader goroutines still running: %d > %d", runtime.NumGoroutine(), before)
}

func TestRun_HandlerErrorContinues(t *testing.T) {
	calls := 0
	var out strings.Builder
	err := Run(context.Background(), strings.NewReader("a\nb\n"), &out, "", func(ctx context.Context, line string) error {
		calls++
		if line == "a" {
			return errors.New("rate limited")
		}
		return nil
	})

	assert.NilError(t, err)
	assert.Equal(t, calls, 2)
	assert.Assert(t, is.Contains(out.String(), "Error: rate limited"))
}

func TestRun_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, pr, io.Discard, "", collect(new([]string)))
	}()

	cancel()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestIsQuit(t *testing.T) {
	assert.Assert(t, IsQuit("Quit"))
	assert.Assert(t, IsQuit("q"))
	assert.Assert(t, !IsQuit("question"))
	assert.Assert(t, !IsQuit(""))
}
