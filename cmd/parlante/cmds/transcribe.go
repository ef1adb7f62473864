package cmds

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/parlante/pkg/app"
	"github.com/go-go-golems/parlante/pkg/audio"
	"github.com/go-go-golems/parlante/pkg/backend"
)

var TranscribeCmd = &cobra.Command{
	Use:   "transcribe FILE",
	Short: "Transcribe a WAV file and send the text to the active chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		printOnly, err := cmd.Flags().GetBool("print-only")
		cobra.CheckErr(err)

		device := audio.NewFileDevice(args[0])
		options := []app.Option{app.WithDevice(device)}
		if printOnly {
			options = append(options, app.WithoutRenderer())
		}
		a, err := openApp(cmd, options...)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		ctx := cmd.Context()
		if printOnly {
			rec, err := device.Open(ctx)
			if err != nil {
				return err
			}
			chunks, err := rec.Stop()
			if err != nil {
				return err
			}
			if len(chunks) == 0 {
				return errors.Errorf("%s is empty", args[0])
			}
			text, err := a.Transcriber.Transcribe(ctx, backend.NewClip(bytes.Join(chunks, nil)))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		}

		if err := a.Recorder.Start(ctx); err != nil {
			return err
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
	TranscribeCmd.Flags().Bool("print-only", false, "Print the transcription instead of sending it")
}
