package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parlante/pkg/app"
	"github.com/go-go-golems/parlante/pkg/audio"
	"github.com/go-go-golems/parlante/pkg/conversation"
	"github.com/go-go-golems/parlante/pkg/dispatch"
	"github.com/go-go-golems/parlante/pkg/ui"
)

const replHelp = `Type a message and press enter to send it to the active chat.

  /new               start a new chat
  /list              list chats
  /select N          switch to chat N
  /rename N [TITLE]  rename chat N
  /delete N          delete chat N
  /attach PATH       attach a file to the next message
  /detach            drop the attachment
  /record            start or stop a voice recording
  /speak N           read message N of the active chat aloud
  /history           print the active chat
  /export [PATH]     export all chats as YAML
  /quit              leave
`

// repl interprets chat loop input. Sends, recordings and playback run in
// the background so the loop stays responsive while a reply is pending.
type repl struct {
	app    *app.App
	out    io.Writer
	prompt ui.Prompter

	pending sync.WaitGroup
}

func newREPL(a *app.App, out io.Writer, prompt ui.Prompter) *repl {
	return &repl{app: a, out: out, prompt: prompt}
}

// wait blocks until background work finished.
func (r *repl) wait() {
	r.pending.Wait()
}

func (r *repl) background(f func()) {
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		f()
	}()
}

// handle runs one input line. It returns true when the loop should end.
func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		r.send(ctx, line)
		return false, nil
	}

	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	m := r.app.Manager

	switch command {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Fprint(r.out, replHelp)

	case "/new":
		m.CreateSession(ctx)

	case "/list":
		r.app.Renderer.PrintSessions(m.List())

	case "/select":
		idx, err := parsePosition(rest)
		if err != nil {
			return false, err
		}
		if !m.SelectSession(ctx, idx) {
			return false, errors.Errorf("there is no chat %s", rest)
		}
		_, s := m.Active()
		r.app.Renderer.PrintTranscript(s)

	case "/rename":
		return false, r.rename(ctx, rest)

	case "/delete":
		return false, r.delete(ctx, rest)

	case "/attach":
		if rest == "" {
			return false, errors.New("usage: /attach PATH")
		}
		a, err := conversation.LoadAttachment(rest)
		if err != nil {
			return false, err
		}
		r.app.Dispatcher.SetDraft(a)
		fmt.Fprintf(r.out, "attached %s (%s)\n", a.Name, a.MimeType)

	case "/detach":
		r.app.Dispatcher.ClearDraft()

	case "/record":
		return false, r.record(ctx)

	case "/speak":
		idx, err := parsePosition(rest)
		if err != nil {
			return false, err
		}
		id := m.ActiveID()
		r.background(func() {
			if err := r.app.Speech.SpeakMessage(ctx, id, idx); err != nil {
				fmt.Fprintf(r.out, "could not speak message %d: %v\n", idx+1, err)
			}
		})

	case "/history":
		_, s := m.Active()
		r.app.Renderer.PrintTranscript(s)

	case "/export":
		return false, r.export(rest)

	default:
		return false, errors.Errorf("unknown command %s, try /help", command)
	}

	return false, nil
}

func (r *repl) send(ctx context.Context, text string) {
	r.background(func() {
		_, err := r.app.Dispatcher.Send(ctx, text)
		if err != nil && !errors.Is(err, dispatch.ErrSessionBusy) {
			log.Error().Err(err).Msg("could not send message")
		}
	})
}

func (r *repl) rename(ctx context.Context, rest string) error {
	pos, title, _ := strings.Cut(rest, " ")
	idx, err := parsePosition(pos)
	if err != nil {
		return err
	}
	s, ok := r.app.Manager.SessionAt(idx)
	if !ok {
		return errors.Errorf("there is no chat %s", pos)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title, err = r.prompt.Ask("New title", s.DisplayTitle(idx))
		if err != nil {
			return err
		}
	}
	if !r.app.Manager.RenameSession(ctx, idx, title) {
		fmt.Fprintln(r.out, "title unchanged")
	}
	return nil
}

func (r *repl) delete(ctx context.Context, rest string) error {
	idx, err := parsePosition(rest)
	if err != nil {
		return err
	}
	s, ok := r.app.Manager.SessionAt(idx)
	if !ok {
		return errors.Errorf("there is no chat %s", rest)
	}

	ok, err = r.prompt.Confirm(fmt.Sprintf("Delete %q?", s.DisplayTitle(idx)))
	if err != nil {
		return err
	}
	if ok {
		r.app.Manager.DeleteSession(ctx, idx)
	}
	return nil
}

func (r *repl) record(ctx context.Context) error {
	rec := r.app.Recorder
	switch rec.State() {
	case audio.StateIdle:
		return rec.Start(ctx)
	case audio.StateRecording:
		r.background(func() {
			// failures were already reported as notifications
			if _, err := rec.Stop(ctx); err != nil {
				log.Debug().Err(err).Msg("recording did not produce a message")
			}
		})
		return nil
	default:
		return errors.New("still transcribing the last recording")
	}
}

func (r *repl) export(path string) error {
	e := conversation.NewExport(r.app.Manager.Snapshot(), time.Now())
	if path == "" {
		return e.WriteYAML(r.out)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "could not create export file")
	}
	defer func() {
		_ = f.Close()
	}()
	if err := e.WriteYAML(f); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "exported %d chats to %s\n", r.app.Manager.Len(), path)
	return nil
}

// linePrompter answers prompts from the chat loop's own input so that a
// question never races the loop for a line.
type linePrompter struct {
	out   io.Writer
	lines <-chan string
}

func (p *linePrompter) next() (string, error) {
	line, ok := <-p.lines
	if !ok {
		return "", io.EOF
	}
	return strings.TrimSpace(line), nil
}

func (p *linePrompter) Ask(query string, defaultValue string) (string, error) {
	fmt.Fprintf(p.out, "%s [%s]: ", query, defaultValue)
	answer, err := p.next()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return defaultValue, nil
	}
	return answer, nil
}

func (p *linePrompter) Confirm(query string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", query)
	answer, err := p.next()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
