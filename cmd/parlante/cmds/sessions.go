package cmds

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/parlante/pkg/app"
	"github.com/go-go-golems/parlante/pkg/conversation"
	"github.com/go-go-golems/parlante/pkg/ui"
)

var SessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"s"},
	Short:   "Manage chats",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		a.Renderer.PrintSessions(a.Manager.List())
		return nil
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new chat and make it active",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		a.Manager.CreateSession(cmd.Context())
		return nil
	},
}

var sessionsSelectCmd = &cobra.Command{
	Use:   "select N",
	Short: "Make chat N active and print it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		if !a.Manager.SelectSession(cmd.Context(), idx) {
			return errors.Errorf("there is no chat %s", args[0])
		}
		_, s := a.Manager.Active()
		a.Renderer.PrintTranscript(s)
		return nil
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename N [TITLE...]",
	Short: "Rename chat N, asking for the title if none is given",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		s, ok := a.Manager.SessionAt(idx)
		if !ok {
			return errors.Errorf("there is no chat %s", args[0])
		}
		title := strings.Join(args[1:], " ")
		if strings.TrimSpace(title) == "" {
			title, err = ui.NewTTYPrompter().Ask("New title", s.DisplayTitle(idx))
			if err != nil {
				return err
			}
		}
		if !a.Manager.RenameSession(cmd.Context(), idx, title) {
			fmt.Fprintln(cmd.OutOrStdout(), "title unchanged")
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete N",
	Short: "Delete chat N",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, err := cmd.Flags().GetBool("yes")
		cobra.CheckErr(err)
		idx, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		s, ok := a.Manager.SessionAt(idx)
		if !ok {
			return errors.Errorf("there is no chat %s", args[0])
		}
		if !yes {
			yes, err = ui.NewTTYPrompter().Confirm(fmt.Sprintf("Delete %q?", s.DisplayTitle(idx)))
			if err != nil {
				return err
			}
		}
		if yes {
			a.Manager.DeleteSession(cmd.Context(), idx)
		}
		return nil
	},
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all chats as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := cmd.Flags().GetString("output")
		cobra.CheckErr(err)

		a, err := openApp(cmd, app.WithoutRenderer())
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		e := conversation.NewExport(a.Manager.Snapshot(), time.Now())
		if output == "" || output == "-" {
			return e.WriteYAML(cmd.OutOrStdout())
		}
		f, err := os.Create(output)
		if err != nil {
			return errors.Wrap(err, "could not create export file")
		}
		defer func() {
			_ = f.Close()
		}()
		return e.WriteYAML(f)
	},
}

func init() {
	sessionsDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	sessionsExportCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")

	SessionsCmd.AddCommand(
		sessionsListCmd,
		sessionsNewCmd,
		sessionsSelectCmd,
		sessionsRenameCmd,
		sessionsDeleteCmd,
		sessionsExportCmd,
	)
}
