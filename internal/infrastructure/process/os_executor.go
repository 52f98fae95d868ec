package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"upack.dev/cli/internal/core/domain/process"
	procp "upack.dev/cli/internal/core/ports/process"
)

// DefaultDrainTimeout bounds how long the output pipe may stay idle after the
// process exits
const DefaultDrainTimeout = 5 * time.Second

// Executor implements the process Executor port on top of os/exec
type Executor struct {
	drainTimeout time.Duration
	workDir      string
	env          []string
}

// NewExecutor creates a new process executor
func NewExecutor() *Executor {
	return &Executor{
		drainTimeout: DefaultDrainTimeout,
		env:          os.Environ(),
	}
}

// NewExecutorWithOptions creates a new process executor with custom options
func NewExecutorWithOptions(drainTimeout time.Duration, workDir string, env []string) *Executor {
	if env == nil {
		env = os.Environ()
	}
	if drainTimeout <= 0 {
		drainTimeout = DefaultDrainTimeout
	}

	return &Executor{
		drainTimeout: drainTimeout,
		workDir:      workDir,
		env:          env,
	}
}

// Execute starts a new process whose stdout and stderr share one pipe
func (e *Executor) Execute(ctx context.Context, cmd process.Command) (procp.Process, error) {
	execCmd := exec.CommandContext(ctx, cmd.Executable(), cmd.Args()...)

	if cmd.WorkingDir() != "" {
		execCmd.Dir = cmd.WorkingDir()
	} else if e.workDir != "" {
		execCmd.Dir = e.workDir
	}

	execCmd.Env = e.buildEnvironment(cmd.Env())

	// One pipe for both streams keeps stdout and stderr chunks in the order
	// the child wrote them.
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create output pipe: %w", err)
	}
	execCmd.Stdout = writer
	execCmd.Stderr = writer

	if err := execCmd.Start(); err != nil {
		reader.Close()
		writer.Close()
		return nil, fmt.Errorf("failed to start process: %w", err)
	}

	// The child holds its own copy of the write end.
	writer.Close()

	processImpl := &processImpl{
		cmd:          execCmd,
		output:       reader,
		drainTimeout: e.drainTimeout,
		running:      true,
		done:         make(chan struct{}),
	}

	go processImpl.monitor()

	return processImpl, nil
}

// buildEnvironment combines the base environment with command-specific variables
func (e *Executor) buildEnvironment(cmdEnv map[string]string) []string {
	env := append([]string(nil), e.env...)

	for key, value := range cmdEnv {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}

	return env
}

// processImpl implements the Process interface
type processImpl struct {
	cmd          *exec.Cmd
	output       *os.File
	drainTimeout time.Duration

	mu       sync.RWMutex
	running  bool
	exitCode int
	done     chan struct{}
	waitErr  error
}

// PID returns the process ID
func (p *processImpl) PID() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

// Output returns the combined output reader
func (p *processImpl) Output() io.ReadCloser {
	return drainReader{p}
}

// exited reports whether the child has been reaped
func (p *processImpl) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// drainReader reads the output pipe. Once the child has exited, every read
// gets a fresh deadline, so only an idle pipe times out and output already
// buffered is delivered however late the reader comes back for it.
type drainReader struct {
	p *processImpl
}

func (r drainReader) Read(b []byte) (int, error) {
	if r.p.exited() {
		_ = r.p.output.SetReadDeadline(time.Now().Add(r.p.drainTimeout))
	}
	return r.p.output.Read(b)
}

func (r drainReader) Close() error {
	return r.p.output.Close()
}

// Wait waits for the process to complete
func (p *processImpl) Wait() error {
	<-p.done
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.waitErr
}

// Signal sends signal to the child. Windows only supports SignalKill.
func (p *processImpl) Signal(signal process.ProcessSignal) error {
	if p.cmd == nil || p.cmd.Process == nil {
		return fmt.Errorf("process not running")
	}

	return p.cmd.Process.Signal(ConvertSignal(signal))
}

func (p *processImpl) Kill() error {
	return p.Signal(process.SignalKill)
}

func (p *processImpl) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *processImpl) ExitCode() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exitCode
}

// ConvertSignal converts a domain signal to an OS signal
func ConvertSignal(signal process.ProcessSignal) os.Signal {
	if signal == process.SignalKill {
		return os.Kill
	}
	return syscall.SIGTERM
}

func (p *processImpl) monitor() {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.running = false
	p.waitErr = err

	var exitError *exec.ExitError
	switch {
	case err == nil:
		p.exitCode = 0
	case errors.As(err, &exitError):
		// ExitCode is -1 when the process was killed by a signal
		p.exitCode = exitError.ExitCode()
	default:
		p.exitCode = process.ExitCodeAbnormal
	}
	p.mu.Unlock()

	close(p.done)

	// A grandchild that inherited the pipe may keep it open after the child
	// exits. Wake a read that is already blocked; drainReader re-arms the
	// deadline on each later read. Pipes without deadline support are left
	// to reach EOF on their own.
	_ = p.output.SetReadDeadline(time.Now().Add(p.drainTimeout))
}
