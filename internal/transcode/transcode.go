package transcode

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

const (
	SampleRate = 48000
	Channels   = 2

	stderrTailSize = 4 * 1024
	waitDelay      = 2 * time.Second
)

type Options struct {
	Binary            string
	UserAgent         string
	Bitrate           string
	ReconnectDelayMax int
}

func DefaultOptions() Options {
	return Options{
		Binary:            "ffmpeg",
		UserAgent:         "DiscordBot/1.0 (+https://discord.com)",
		Bitrate:           "128k",
		ReconnectDelayMax: 5,
	}
}

// Args builds the FFmpeg argument list for a source URL. Input is read at
// native rate, video is dropped and the audio is resampled to 48 kHz stereo
// Opus tuned for low delay, muxed as Ogg on stdout.
func Args(opts Options, sourceURL string) []string {
	return []string{
		"-user_agent", opts.UserAgent,
		"-icy", "0",
		"-re",
		"-i", sourceURL,
		"-vn",
		"-analyzeduration", "0",
		"-loglevel", "error",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", strconv.Itoa(opts.ReconnectDelayMax),
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "libopus",
		"-b:a", opts.Bitrate,
		"-application", "lowdelay",
		"-f", "ogg",
		"pipe:1",
	}
}

// Runner starts transcoder processes with a fixed set of options.
type Runner struct {
	Options Options
}

func NewRunner(opts Options) *Runner {
	return &Runner{Options: opts}
}

// Start spawns the transcoder for sourceURL. The process is not tied to any
// request context: it lives until the returned Pipe is closed or the source ends.
func (r *Runner) Start(sourceURL string) (*Pipe, error) {
	binary := r.Options.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("unable to create stdout pipe: %w", err)
	}

	cmd := exec.Command(binary, Args(r.Options, sourceURL)...)
	cmd.Stdout = stdoutW
	stderr := &tailBuffer{limit: stderrTailSize}
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("unable to start transcoder process: %w", err)
	}
	// The child holds its own copy of the write end.
	stdoutW.Close()

	p := &Pipe{
		stdout: stdoutR,
		cmd:    cmd,
		stderr: stderr,
		exited: make(chan struct{}),
	}
	go p.reap()

	slog.Debug("started transcoder", "pid", cmd.Process.Pid, "url", sourceURL)
	return p, nil
}

// Pipe is the stdout of a running transcoder. It implements io.ReadCloser.
type Pipe struct {
	stdout *os.File
	cmd    *exec.Cmd
	stderr *tailBuffer

	exited  chan struct{}
	waitErr error
	killed  atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

var _ io.ReadCloser = (*Pipe)(nil)

func (p *Pipe) reap() {
	p.waitErr = p.cmd.Wait()
	close(p.exited)
}

func (p *Pipe) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

// Close releases the pipe, kills the process if it is still running and
// waits until it has been reaped. It is safe to call more than once.
// A process that had already failed on its own is reported as an *ExitError.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() {
		select {
		case <-p.exited:
		default:
			err := p.cmd.Process.Kill()
			switch {
			case err == nil:
				p.killed.Store(true)
			case !errors.Is(err, os.ErrProcessDone):
				slog.Warn("failed to kill transcoder", "pid", p.PID(), "error", err)
			}
			<-p.exited
		}
		// Closed after the kill so the process cannot die of a broken pipe first.
		readErr := p.stdout.Close()

		if p.waitErr != nil && !p.diedFromKill() {
			p.closeErr = &ExitError{Err: p.waitErr, Stderr: p.stderr.String()}
			return
		}
		if readErr != nil && !errors.Is(readErr, os.ErrClosed) {
			p.closeErr = fmt.Errorf("failed to close transcoder output: %w", readErr)
		}
	})
	return p.closeErr
}

// diedFromKill reports whether the process ended because of the kill sent by
// Close. A process may exit on its own after the exited check but before the
// signal lands, in which case its real exit status is kept.
func (p *Pipe) diedFromKill() bool {
	if !p.killed.Load() {
		return false
	}
	var exitErr *exec.ExitError
	if !errors.As(p.waitErr, &exitErr) {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	return ok && status.Signaled() && status.Signal() == syscall.SIGKILL
}

// Exited is closed once the process has terminated and been reaped.
func (p *Pipe) Exited() <-chan struct{} {
	return p.exited
}

// Stderr returns the tail of what the process wrote to standard error.
func (p *Pipe) Stderr() string {
	return p.stderr.String()
}

func (p *Pipe) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// ExitError reports a transcoder that terminated unsuccessfully on its own.
type ExitError struct {
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("transcoder exited: %v", e.Err)
	}
	return fmt.Sprintf("transcoder exited: %v: %s", e.Err, msg)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

var _ error = (*ExitError)(nil)

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
