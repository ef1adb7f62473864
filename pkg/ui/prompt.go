package ui

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/tcnksm/go-input"
)

// Prompter asks the user for a value or a confirmation.
type Prompter interface {
	Ask(query string, defaultValue string) (string, error)
	Confirm(query string) (bool, error)
}

// TTYPrompter prompts on the controlling terminal.
type TTYPrompter struct{}

func NewTTYPrompter() *TTYPrompter {
	return &TTYPrompter{}
}

func (p *TTYPrompter) ask(query string, opts *input.Options) (string, error) {
	tty_, err := OpenTTY()
	if err != nil {
		return "", errors.Wrap(err, "could not open terminal")
	}
	defer func() {
		_ = tty_.Close()
	}()

	ui := &input.UI{
		Writer: tty_,
		Reader: tty_,
	}
	return ui.Ask(query, opts)
}

func (p *TTYPrompter) Ask(query string, defaultValue string) (string, error) {
	answer, err := p.ask(query, &input.Options{
		Default:   defaultValue,
		Required:  true,
		Loop:      true,
		HideOrder: true,
	})
	if err != nil {
		return "", errors.Wrap(err, "could not read answer")
	}
	return answer, nil
}

func (p *TTYPrompter) Confirm(query string) (bool, error) {
	answer, err := p.ask(query+" [y/n]", &input.Options{
		Default:   "n",
		Required:  true,
		Loop:      true,
		HideOrder: true,
		ValidateFunc: func(answer string) error {
			switch strings.ToLower(answer) {
			case "y", "n", "yes", "no":
				return nil
			default:
				return fmt.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "could not read answer")
	}
	a := strings.ToLower(answer)
	return a == "y" || a == "yes", nil
}
