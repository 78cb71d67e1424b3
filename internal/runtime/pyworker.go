package runtime

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

//go:embed runner.py
var runnerScript string

// gracePeriod is how long Close waits for the worker to exit after its
// stdin closes before killing it.
const gracePeriod = 2 * time.Second

// PyTransport runs the worker as a Python subprocess and speaks
// newline-delimited JSON over its stdin/stdout. Worker stderr is
// drained to the logger so a crashing interpreter is diagnosable.
type PyTransport struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	replies chan Reply
	log     zerolog.Logger

	sendMu    sync.Mutex
	closeOnce sync.Once
	closeErr  error
	waitDone  chan struct{}
}

// NewPyTransport spawns the worker process. pythonBin is the
// interpreter to use, typically "python3".
func NewPyTransport(ctx context.Context, pythonBin string, log zerolog.Logger) (*PyTransport, error) {
	cmd := exec.CommandContext(ctx, pythonBin, "-u", "-c", runnerScript)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker %q: %w", pythonBin, err)
	}

	t := &PyTransport{
		cmd:      cmd,
		stdin:    stdin,
		replies:  make(chan Reply, 16),
		log:      log,
		waitDone: make(chan struct{}),
	}

	go t.readReplies(stdout)
	go t.drainStderr(stderr)
	go func() {
		err := cmd.Wait()
		if err != nil {
			t.log.Debug().Err(err).Msg("worker process exited")
		}
		close(t.waitDone)
	}()

	return t, nil
}

// Send writes one request as a JSON line. Writes are serialised so
// concurrent callers cannot interleave bytes on the pipe.
func (t *PyTransport) Send(req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	if _, err := t.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write to worker: %w", err)
	}
	return nil
}

// Replies returns the stream of worker replies. The channel closes
// when the worker's stdout closes.
func (t *PyTransport) Replies() <-chan Reply {
	return t.replies
}

// Close shuts the worker down: closing stdin asks it to exit, and a
// kill follows if it does not within the grace period.
func (t *PyTransport) Close() error {
	t.closeOnce.Do(func() {
		t.sendMu.Lock()
		err := t.stdin.Close()
		t.sendMu.Unlock()
		if err != nil {
			t.closeErr = err
		}
		select {
		case <-t.waitDone:
		case <-time.After(gracePeriod):
			t.log.Warn().Msg("worker did not exit in time, killing")
			if t.cmd.Process != nil {
				_ = t.cmd.Process.Kill()
			}
			<-t.waitDone
		}
	})
	return t.closeErr
}

func (t *PyTransport) readReplies(stdout io.Reader) {
	defer close(t.replies)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var reply Reply
		if err := json.Unmarshal(line, &reply); err != nil {
			t.log.Warn().Err(err).Str("line", truncate(string(line), 200)).Msg("malformed worker reply")
			continue
		}
		t.replies <- reply
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		t.log.Debug().Err(err).Msg("worker stdout closed")
	}
}

func (t *PyTransport) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		t.log.Debug().Str("stream", "stderr").Msg(scanner.Text())
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
