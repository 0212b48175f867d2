package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// RunLines is the non-interactive prompt loop: one prompt per input line,
// replies written to out. It returns when input ends, a quit word is read
// or ctx is cancelled.
func RunLines(ctx context.Context, in io.Reader, out io.Writer, acquire AcquireFunc, expand ExpandFunc) error {
	if expand == nil {
		expand = func(p string) string { return p }
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		text := strings.TrimSpace(scanner.Text())
		if IsQuit(text) {
			return nil
		}
		if text == "" {
			fmt.Fprintln(out, "Empty prompt, type something first.")
			continue
		}

		result, err := acquire(ctx, expand(text))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		switch {
		case result.OK():
			fmt.Fprintln(out, result.Text)
		case result.Degraded():
			fmt.Fprintf(out, "(fallback) %s\n", result.Text)
		default:
			fmt.Fprintf(out, "error: %v\n", result.Err())
		}
		if result.Location != "" {
			fmt.Fprintf(out, "saved to %s\n", result.Location)
		}
	}
}
