package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/seanblong/paperrag/internal/console"
)

// Handler processes one line of input.
type Handler func(ctx context.Context, line string) error

// IsQuit reports whether line asks to leave the loop.
func IsQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

// Run reads lines from in and passes each non-blank one to handle. It
// returns on EOF, on a quit command or when ctx is done. Handler errors are
// written to out and the loop continues.
func Run(ctx context.Context, in io.Reader, out io.Writer, prompt string, handle Handler) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		_, _ = fmt.Fprint(out, prompt)
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				_, _ = fmt.Fprintln(out)
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			if IsQuit(line) {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := handle(ctx, strings.TrimSpace(line)); err != nil {
				if ctx.Err() != nil {
					_, _ = fmt.Fprintln(out)
					return nil
				}
				console.Error(out, "Error: %v", err)
			}
		}
	}
}
