package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/go-go-golems/parlante/pkg/conversation"
	"github.com/go-go-golems/parlante/pkg/events"
)

const defaultWidth = 80

// Renderer prints state-change events as a line-oriented transcript. On a
// terminal, bot replies are rendered as markdown and notifications are
// colored; otherwise everything is plain text.
type Renderer struct {
	mu       sync.Mutex
	out      io.Writer
	markdown *glamour.TermRenderer

	user   *color.Color
	bot    *color.Color
	dim    *color.Color
	errorC *color.Color
	infoC  *color.Color
}

type RendererOption func(*Renderer)

// WithMarkdown forces markdown rendering on or off.
func WithMarkdown(enabled bool) RendererOption {
	return func(r *Renderer) {
		if !enabled {
			r.markdown = nil
			return
		}
		r.markdown = newMarkdownRenderer(terminalWidth(r.out))
	}
}

func NewRenderer(out io.Writer, options ...RendererOption) *Renderer {
	r := &Renderer{
		out:    out,
		user:   color.New(color.FgCyan, color.Bold),
		bot:    color.New(color.FgGreen, color.Bold),
		dim:    color.New(color.Faint),
		errorC: color.New(color.FgRed, color.Bold),
		infoC:  color.New(color.FgYellow),
	}

	tty := IsTerminal(out)
	if tty {
		r.markdown = newMarkdownRenderer(terminalWidth(out))
	} else {
		for _, c := range []*color.Color{r.user, r.bot, r.dim, r.errorC, r.infoC} {
			c.DisableColor()
		}
	}

	for _, option := range options {
		option(r)
	}
	return r
}

func newMarkdownRenderer(width int) *glamour.TermRenderer {
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Warn().Err(err).Msg("could not create markdown renderer, printing plain text")
		return nil
	}
	return md
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// Handle prints one event. It has the signature of an event router
// handler.
func (r *Renderer) Handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev := e.(type) {
	case *events.EventMessage:
		if ev.Type() == events.EventTypeMessageAppended && ev.Active {
			r.printMessage(conversation.Role(ev.Role), ev.Text, ev.FileInfo, ev.HasImage, ev.Transient)
		}

	case *events.EventSession:
		r.printSession(ev)

	case *events.EventBusy:
		if ev.Busy {
			r.dim.Fprintln(r.out, "  ...")
		}

	case *events.EventNotification:
		if ev.Level == events.NotificationError {
			r.errorC.Fprintf(r.out, "! %s\n", ev.Text)
		} else {
			r.infoC.Fprintf(r.out, "* %s\n", ev.Text)
		}

	case *events.EventRecording:
		switch ev.State {
		case "recording":
			r.errorC.Fprintln(r.out, "● recording, /record again to stop")
		case "transcribing":
			r.dim.Fprintln(r.out, "  transcribing...")
		}

	case *events.EventPlayback:
		if ev.Local {
			r.dim.Fprintln(r.out, "  speaking")
		} else {
			r.dim.Fprintf(r.out, "  playing %s\n", ev.URL)
		}
	}

	return nil
}

func (r *Renderer) printSession(ev *events.EventSession) {
	switch ev.Type() {
	case events.EventTypeSessionCreated:
		r.infoC.Fprintf(r.out, "* new chat %q (%d/%d)\n", ev.Title, ev.Index+1, ev.Count)
	case events.EventTypeSessionSelected:
		r.infoC.Fprintf(r.out, "* switched to %q (%d/%d)\n", ev.Title, ev.Index+1, ev.Count)
	case events.EventTypeSessionRenamed:
		r.infoC.Fprintf(r.out, "* chat %d renamed to %q\n", ev.Index+1, ev.Title)
	case events.EventTypeSessionDeleted:
		r.infoC.Fprintf(r.out, "* deleted %q, now in chat %d of %d\n", ev.Title, ev.ActiveIndex+1, ev.Count)
	}
}

func (r *Renderer) printMessage(role conversation.Role, text string, fileInfo string, hasImage bool, transient bool) {
	if transient {
		r.dim.Fprintf(r.out, "  %s\n", text)
		return
	}

	if role == conversation.RoleUser {
		r.user.Fprint(r.out, "you> ")
		fmt.Fprintln(r.out, text)
		if fileInfo != "" {
			r.dim.Fprintf(r.out, "     📎 %s\n", fileInfo)
		}
		if hasImage {
			r.dim.Fprintln(r.out, "     [image]")
		}
		return
	}

	r.bot.Fprintln(r.out, "bot>")
	fmt.Fprintln(r.out, r.renderMarkdown(text))
}

func (r *Renderer) renderMarkdown(text string) string {
	if r.markdown == nil {
		return text
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		log.Debug().Err(err).Msg("could not render markdown")
		return text
	}
	return strings.TrimRight(out, "\n")
}

// PrintTranscript prints every persisted message of a session.
func (r *Renderer) PrintTranscript(s *conversation.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range s.Messages {
		r.printMessage(m.Role, m.Text, m.FileInfo, m.ImageDataURI != "", m.Transient)
	}
}

// PrintSessions prints the session list, marking the active session.
func (r *Renderer) PrintSessions(sessions []conversation.SessionSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sessions {
		marker := " "
		if s.Active {
			marker = "*"
		}
		line := fmt.Sprintf("%s %2d  %s", marker, s.Index+1, s.Title)
		suffix := fmt.Sprintf("  (%d messages)", s.MessageCount)
		if s.Busy {
			suffix += " busy"
		}
		if s.Active {
			r.user.Fprint(r.out, line)
		} else {
			fmt.Fprint(r.out, line)
		}
		r.dim.Fprintln(r.out, suffix)
	}
}
