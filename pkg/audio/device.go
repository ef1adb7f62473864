package audio

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parlante/pkg/helpers"
)

// DefaultRecordCommand records WAV to stdout until interrupted.
const DefaultRecordCommand = "arecord -q -f S16_LE -r 16000 -c 1 -t wav"

// DefaultStopTimeout is how long a recorder gets to finish after the
// interrupt before it is killed.
const DefaultStopTimeout = 3 * time.Second

// CommandDevice captures audio from an external recorder process that
// writes the encoded clip to stdout.
type CommandDevice struct {
	Command     string
	ChunkSize   int
	StopTimeout time.Duration
}

func NewCommandDevice(command string) *CommandDevice {
	if command == "" {
		command = DefaultRecordCommand
	}
	return &CommandDevice{
		Command:     command,
		ChunkSize:   defaultChunkBuffer,
		StopTimeout: DefaultStopTimeout,
	}
}

type commandRecording struct {
	cmd         *exec.Cmd
	done        chan struct{}
	stopTimeout time.Duration

	mu     sync.Mutex
	chunks [][]byte
	err    error
}

func (d *CommandDevice) Open(ctx context.Context) (Recording, error) {
	// the recorder outlives the call that started it, Stop ends it
	cmd, err := helpers.ShellCommand(context.WithoutCancel(ctx), d.Command, "", "")
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "could not attach to recorder output")
	}
	// the shell does not forward signals to the recorder it waits on
	startInGroup(cmd)
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "could not start recorder %q", d.Command)
	}

	chunkSize := d.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkBuffer
	}

	stopTimeout := d.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}

	r := &commandRecording{cmd: cmd, done: make(chan struct{}), stopTimeout: stopTimeout}
	go r.read(stdout, chunkSize)

	log.Debug().Str("command", d.Command).Int("pid", cmd.Process.Pid).Msg("recorder started")
	return r, nil
}

func (r *commandRecording) read(stdout io.Reader, chunkSize int) {
	defer close(r.done)
	for {
		buf := make([]byte, chunkSize)
		n, err := stdout.Read(buf)
		if n > 0 {
			r.mu.Lock()
			r.chunks = append(r.chunks, buf[:n])
			r.mu.Unlock()
		}
		if err != nil {
			if err != io.EOF {
				r.mu.Lock()
				r.err = err
				r.mu.Unlock()
			}
			return
		}
	}
}

func (r *commandRecording) Stop() ([][]byte, error) {
	// recorders flush and finalize their header on SIGINT
	if err := interruptGroup(r.cmd); err != nil {
		log.Debug().Err(err).Msg("could not interrupt recorder")
	}

	timer := time.NewTimer(r.stopTimeout)
	defer timer.Stop()
	select {
	case <-r.done:
	case <-timer.C:
		log.Warn().Dur("timeout", r.stopTimeout).Msg("recorder ignored the interrupt, killing it")
		if err := killGroup(r.cmd); err != nil {
			log.Debug().Err(err).Msg("could not kill recorder")
		}
		<-r.done
	}
	_ = r.cmd.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, errors.Wrap(r.err, "could not read recorder output")
	}
	if len(r.chunks) == 0 {
		return nil, errors.New("recorder produced no audio")
	}
	return r.chunks, nil
}

// FileDevice replays an existing audio file as a capture.
type FileDevice struct {
	Path      string
	ChunkSize int
}

func NewFileDevice(path string) *FileDevice {
	return &FileDevice{Path: path, ChunkSize: defaultChunkBuffer}
}

type fileRecording struct {
	chunks [][]byte
}

func (d *FileDevice) Open(_ context.Context) (Recording, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read audio file %s", d.Path)
	}

	chunkSize := d.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkBuffer
	}
	var chunks [][]byte
	for len(data) > 0 {
		n := min(chunkSize, len(data))
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return &fileRecording{chunks: chunks}, nil
}

func (r *fileRecording) Stop() ([][]byte, error) {
	return r.chunks, nil
}
