package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var ChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat interactively, type /help for commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		cmd.SetContext(ctx)

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		out := cmd.OutOrStdout()
		lines := readLines(cmd.InOrStdin())
		r := newREPL(a, out, &linePrompter{out: out, lines: lines})

		fmt.Fprintln(out, "parlante, type /help for commands")
		a.Renderer.PrintSessions(a.Manager.List())
		_, active := a.Manager.Active()
		a.Renderer.PrintTranscript(active)

		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			return runLoop(ctx, r, lines, out)
		})
		err = eg.Wait()
		r.wait()
		return err
	},
}

// readLines scans in until EOF. The scanner goroutine cannot be
// interrupted and is left behind when the loop ends first.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func runLoop(ctx context.Context, r *repl, lines <-chan string, out io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := r.handle(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}
