package cmds

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/parlante/pkg/conversation"
)

var SendCmd = &cobra.Command{
	Use:   "send [flags] TEXT...",
	Short: "Send one message to the active chat and print the reply",
	RunE: func(cmd *cobra.Command, args []string) error {
		attach, err := cmd.Flags().GetString("attach")
		cobra.CheckErr(err)

		text := strings.Join(args, " ")
		if strings.TrimSpace(text) == "" && attach == "" {
			return errors.New("nothing to send, pass a message or --attach")
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		if attach != "" {
			att, err := conversation.LoadAttachment(attach)
			if err != nil {
				return err
			}
			a.Dispatcher.SetDraft(att)
		}

		outcome, err := a.Dispatcher.Send(cmd.Context(), text)
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
	SendCmd.Flags().String("attach", "", "File to attach to the message")
}
