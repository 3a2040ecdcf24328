package provider

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/conductor-ai/conductor/internal/config"
	"github.com/conductor-ai/conductor/internal/logging"
	"github.com/conductor-ai/conductor/internal/session"
)

// stopGrace is how long a terminated subprocess gets to exit before the
// signal is escalated to SIGKILL.
const stopGrace = time.Second

// CLIProvider drives an interactive subprocess over line-based stdio: one
// logical message per line written, one line read back. Embedded newlines
// in a message are rejected; multi-line framing is out of scope.
type CLIProvider struct {
	cfg config.ProviderConfig
	log zerolog.Logger
}

// NewCLIProvider creates a subprocess-backed provider.
func NewCLIProvider(cfg config.ProviderConfig) *CLIProvider {
	return &CLIProvider{
		cfg: cfg,
		log: logging.For("provider." + cfg.Name),
	}
}

// Name returns the configured provider name.
func (p *CLIProvider) Name() string { return p.cfg.Name }

// Kind returns config.TransportCLI.
func (p *CLIProvider) Kind() config.TransportKind { return config.TransportCLI }

// Available probes the command with a version check.
func (p *CLIProvider) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout*time.Second)
	defer cancel()
	err := exec.CommandContext(ctx, p.cfg.Command, "--version").Run()
	return err == nil
}

// StartSession spawns the subprocess with three redirected streams and the
// configured environment. On spawn failure the session is returned in
// Error status alongside the error.
func (p *CLIProvider) StartSession(ctx context.Context) (*session.Session, error) {
	sess := session.New(p.cfg.Name)
	sess.SetStatus(session.StatusStarting)

	cmd := exec.Command(p.cfg.Command, p.cfg.AdditionalArgs...)
	cmd.Env = os.Environ()
	for k, v := range p.cfg.EnvVars {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		sess.SetStatus(session.StatusError)
		return sess, fmt.Errorf("%w: stdin pipe: %v", ErrStartFailed, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		sess.SetStatus(session.StatusError)
		return sess, fmt.Errorf("%w: stdout pipe: %v", ErrStartFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		sess.SetStatus(session.StatusError)
		return sess, fmt.Errorf("%w: stderr pipe: %v", ErrStartFailed, err)
	}

	if err := cmd.Start(); err != nil {
		sess.SetStatus(session.StatusError)
		return sess, fmt.Errorf("%w: spawning %q: %v", ErrStartFailed, p.cfg.Command, err)
	}

	sess.SetHandle(newProcess(cmd, stdin, stdout, stderr, p.log))
	sess.SetStatus(session.StatusActive)
	p.log.Info().Str("session", sess.ID()).Str("command", p.cfg.Command).Msg("started subprocess session")
	return sess, nil
}

// SendMessage writes one line to the subprocess and waits for one line of
// output, bounded by the configured timeout. The blocking read runs on the
// process's reader goroutine, never on the caller's goroutine.
func (p *CLIProvider) SendMessage(ctx context.Context, sess *session.Session, text string) (string, error) {
	if strings.ContainsRune(text, '\n') {
		return "", ErrMultilineInput
	}
	if sess.Status() != session.StatusActive {
		return "", ErrSessionNotActive
	}
	proc, ok := sess.Handle().(*process)
	if !ok || proc == nil {
		return "", ErrSessionNotActive
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	reply, err := proc.exchange(ctx, text)
	if err != nil {
		if errors.Is(err, ErrTimeout) || errors.Is(err, context.Canceled) {
			// Session stays Active; the caller may retry or stop it.
			return "", err
		}
		sess.SetStatus(session.StatusError)
		p.log.Error().Str("session", sess.ID()).Err(err).Msg("subprocess exchange failed")
		return "", err
	}

	sess.RecordExchange(text, reply)
	return reply, nil
}

// StopSession terminates the subprocess gracefully, escalating to a kill
// after a short grace period. It returns false only when the process
// resource could not be released.
func (p *CLIProvider) StopSession(ctx context.Context, sess *session.Session) bool {
	proc, ok := sess.Handle().(*process)
	if !ok || proc == nil {
		sess.SetStatus(session.StatusInactive)
		return true
	}

	sess.SetStatus(session.StatusTerminating)
	if err := proc.shutdown(); err != nil {
		sess.SetStatus(session.StatusError)
		p.log.Error().Str("session", sess.ID()).Err(err).Msg("failed to stop subprocess")
		return false
	}

	sess.SetHandle(nil)
	sess.SetStatus(session.StatusInactive)
	p.log.Info().Str("session", sess.ID()).Msg("stopped subprocess session")
	return true
}

func (p *CLIProvider) timeout() time.Duration {
	return time.Duration(p.cfg.Timeout) * time.Second
}

// process owns a running subprocess and its three pipes. A single reader
// goroutine pumps stdout lines into a channel so a hung child can never
// block a caller past its deadline.
type process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	log   zerolog.Logger

	lines chan string
	done  chan struct{} // closed once Wait returns

	mu    sync.Mutex // serializes write/read exchanges
	stale int        // replies owed to abandoned exchanges, guarded by mu
}

func newProcess(cmd *exec.Cmd, stdin io.WriteCloser, stdout, stderr io.ReadCloser, log zerolog.Logger) *process {
	p := &process{
		cmd:   cmd,
		stdin: stdin,
		log:   log,
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	go p.readLoop(stdout)
	go p.drainStderr(stderr)
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()
	return p
}

// readLoop reads stdout lines until the pipe closes. The channel close is
// the EOF signal to pending exchanges.
func (p *process) readLoop(stdout io.Reader) {
	r := bufio.NewReader(stdout)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			select {
			case p.lines <- strings.TrimRight(line, "\r\n"):
			case <-p.done:
				return
			}
		}
		if err != nil {
			close(p.lines)
			return
		}
	}
}

// drainStderr keeps the child's stderr pipe from filling up, which would
// block the child mid-reply. Lines are surfaced at debug level.
func (p *process) drainStderr(stderr io.Reader) {
	r := bufio.NewReader(stderr)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			p.log.Debug().Str("line", strings.TrimRight(line, "\r\n")).Msg("subprocess stderr")
		}
		if err != nil {
			return
		}
	}
}

// exchange performs one line-out/line-in round trip. Exchanges on the same
// process are serialized so replies pair with the prompts that caused them.
// An exchange abandoned at its deadline still owes the child one reply;
// the stale counter makes the next exchange discard exactly that many
// lines, so a late reply never pairs with a newer prompt.
func (p *process) exchange(ctx context.Context, text string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := io.WriteString(p.stdin, text+"\n"); err != nil {
		return "", &TransportError{Op: "write", Err: err}
	}

	for {
		select {
		case line, ok := <-p.lines:
			if !ok {
				return "", &TransportError{Op: "read", Err: errors.New("process closed its output stream")}
			}
			if p.stale > 0 {
				p.stale--
				continue
			}
			return line, nil
		case <-ctx.Done():
			p.stale++
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", ErrTimeout
			}
			return "", ctx.Err()
		}
	}
}

// shutdown terminates the process: SIGTERM, a grace period, then SIGKILL.
func (p *process) shutdown() error {
	select {
	case <-p.done:
		// Already exited.
	default:
		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			// Signal delivery can fail on an already-dead process or an
			// unsupported platform; escalate rather than give up.
			p.cmd.Process.Kill()
		}
		select {
		case <-p.done:
		case <-time.After(stopGrace):
			if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				return err
			}
			<-p.done
		}
	}
	p.stdin.Close()
	return nil
}

// Close implements session.Handle.
func (p *process) Close() error { return p.shutdown() }
