package cmds

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/parlante/pkg/app"
	"github.com/go-go-golems/parlante/pkg/settings"
)

// openApp builds the application from the current configuration and starts
// its event bus. Callers close it.
func openApp(cmd *cobra.Command, options ...app.Option) (*app.App, error) {
	s, err := settings.FromViper()
	if err != nil {
		return nil, err
	}

	options = append(options, app.WithVerboseEvents(viper.GetBool("verbose")))
	a, err := app.New(s, cmd.OutOrStdout(), options...)
	if err != nil {
		return nil, err
	}
	if err := a.Start(cmd.Context()); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// parsePosition turns a 1-based position typed by the user into an index.
func parsePosition(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, errors.Errorf("%q is not a chat or message number", arg)
	}
	return n - 1, nil
}
