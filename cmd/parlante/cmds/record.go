package cmds

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a voice message and send its transcription to the active chat",
	Long: `Record from the configured recorder command until enter is pressed,
the duration elapses or the command is interrupted. The recording is then
transcribed and sent like a typed message.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		duration, err := cmd.Flags().GetDuration("duration")
		cobra.CheckErr(err)

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		ctx := cmd.Context()
		if err := a.Recorder.Start(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "recording, press enter to stop")

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		defer signal.Stop(interrupt)

		var timeout <-chan time.Time
		if duration > 0 {
			timer := time.NewTimer(duration)
			defer timer.Stop()
			timeout = timer.C
		}

		lines := readLines(cmd.InOrStdin())
	wait:
		for {
			select {
			case _, ok := <-lines:
				if ok || timeout == nil {
					break wait
				}
				// stdin is closed, only the duration can end the capture
				lines = nil
			case <-interrupt:
				break wait
			case <-timeout:
				break wait
			case <-ctx.Done():
				break wait
			}
		}

		outcome, err := a.Recorder.Stop(ctx)
		if err != nil {
			return err
		}
		if outcome != nil && outcome.Err != nil {
			return outcome.Err
		}
		return nil
	},
}

func init() {
	RecordCmd.Flags().Duration("duration", 0, "Stop recording after this long (0 waits for enter)")
}
