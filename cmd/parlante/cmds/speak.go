package cmds

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var SpeakCmd = &cobra.Command{
	Use:   "speak [TEXT...]",
	Short: "Read text, or a reply of the active chat, aloud",
	RunE: func(cmd *cobra.Command, args []string) error {
		message, err := cmd.Flags().GetInt("message")
		cobra.CheckErr(err)

		text := strings.Join(args, " ")
		if message == 0 && strings.TrimSpace(text) == "" {
			return errors.New("pass the text to speak or --message N")
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		ctx := cmd.Context()
		if message != 0 {
			if message < 0 {
				return errors.Errorf("%d is not a message number", message)
			}
			return a.Speech.SpeakMessage(ctx, a.Manager.ActiveID(), message-1)
		}
		return a.Speech.Speak(ctx, text)
	},
}

func init() {
	SpeakCmd.Flags().IntP("message", "m", 0, "Speak reply N of the active chat instead of TEXT")
}
