package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"upack.dev/cli/internal/core/build"
	"upack.dev/cli/internal/core/domain/process"
	"upack.dev/cli/internal/core/engine"
	procp "upack.dev/cli/internal/core/ports/process"
)

const (
	defaultLogFileName = "build_log.txt"
	defaultStopGrace   = 5 * time.Second
	outputChunkSize    = 32 * 1024
)

// CommandBuilder builds the packaging tool invocation for one version
type CommandBuilder interface {
	Command(engineRoot string, version engine.Version, descriptor, outputDir string) (process.Command, error)
}

// JobInfo describes a live build job
type JobInfo struct {
	ID        string
	Version   engine.Version
	PID       int
	OutputDir string
	LogFile   string
	StartedAt time.Time
}

// job owns one packaging process and its log file
type job struct {
	info    JobInfo
	logFile *os.File
	process procp.Process
	log     *logrus.Entry
}

// Launcher fans a build request out to one packaging process per version
type Launcher struct {
	executor    procp.Executor
	tool        CommandBuilder
	logger      logrus.FieldLogger
	logFileName string
	stopGrace   time.Duration

	// ctx bounds the lifetime of every spawned process; Shutdown cancels it
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	live map[string]*job
	wg   sync.WaitGroup
}

// LauncherOption configures a Launcher
type LauncherOption func(*Launcher)

// WithLogFileName sets the per-job log file name
func WithLogFileName(name string) LauncherOption {
	return func(l *Launcher) {
		if name != "" {
			l.logFileName = name
		}
	}
}

// WithStopGrace sets how long Shutdown waits after asking jobs to terminate
// before killing them
func WithStopGrace(d time.Duration) LauncherOption {
	return func(l *Launcher) {
		if d >= 0 {
			l.stopGrace = d
		}
	}
}

// WithLogger sets the diagnostics logger
func WithLogger(logger logrus.FieldLogger) LauncherOption {
	return func(l *Launcher) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLauncher creates a build launcher
func NewLauncher(executor procp.Executor, tool CommandBuilder, opts ...LauncherOption) *Launcher {
	ctx, cancel := context.WithCancel(context.Background())

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	l := &Launcher{
		executor:    executor,
		tool:        tool,
		logger:      discard,
		logFileName: defaultLogFileName,
		stopGrace:   defaultStopGrace,
		ctx:         ctx,
		cancel:      cancel,
		live:        make(map[string]*job),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch starts one packaging job per selected version and returns without
// waiting for any of them. Per-version failures are reported to sink and do
// not affect sibling jobs. A request with a missing path returns an error
// wrapping build.ErrMissingInput and starts nothing.
func (l *Launcher) Launch(ctx context.Context, req build.Request, sink build.Sink) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(req.Versions) == 0 {
		sink.Publish(build.NewEvent(build.EventNoSelection, "", ""))
		return nil
	}

	l.logger.WithFields(logrus.Fields{
		"engine_root":  req.EngineRoot,
		"plugin":       req.PluginFile,
		"package_root": req.PackageRoot,
		"versions":     engine.Strings(req.Versions),
	}).Info("launching build jobs")

	for _, version := range req.Versions {
		l.startJob(req, version, sink)
	}

	sink.Publish(build.NewEvent(build.EventAllStarted, "", ""))
	return nil
}

// startJob prepares and spawns the job for one version
func (l *Launcher) startJob(req build.Request, version engine.Version, sink build.Sink) {
	id := uuid.NewString()
	log := l.logger.WithFields(logrus.Fields{"job_id": id, "version": version.String()})

	outputDir := req.OutputDir(version)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.WithError(err).Warn("failed to create output directory")
		sink.Publish(build.Event{Kind: build.EventDirFailed, JobID: id, Version: version, Err: err, Timestamp: time.Now()}.Colored())
		return
	}

	logPath := filepath.Join(outputDir, l.logFileName)
	logFile, err := os.Create(logPath)
	if err != nil {
		log.WithError(err).Warn("failed to create log file")
		sink.Publish(build.Event{Kind: build.EventLogFileFailed, JobID: id, Version: version, Err: err, Timestamp: time.Now()}.Colored())
		return
	}

	launchFailed := func(err error) {
		logFile.Close()
		log.WithError(err).Warn("failed to start packaging tool")
		sink.Publish(build.Event{Kind: build.EventLaunchFailed, JobID: id, Version: version, Err: err, ExitCode: process.ExitCodeAbnormal, Timestamp: time.Now()}.Colored())
	}

	cmd, err := l.tool.Command(req.EngineRoot, version, req.PluginFile, outputDir)
	if err != nil {
		launchFailed(err)
		return
	}

	proc, err := l.executor.Execute(l.ctx, cmd)
	if err != nil {
		launchFailed(err)
		return
	}

	j := &job{
		info: JobInfo{
			ID:        id,
			Version:   version,
			PID:       proc.PID(),
			OutputDir: outputDir,
			LogFile:   logPath,
			StartedAt: time.Now(),
		},
		logFile: logFile,
		process: proc,
		log:     log.WithField("pid", proc.PID()),
	}
	l.register(j)

	j.log.WithField("command", cmd.String()).Info("packaging tool started")
	sink.Publish(build.Event{Kind: build.EventJobStarted, JobID: id, Version: version, PID: j.info.PID, Timestamp: time.Now()}.Colored())

	go l.run(j, sink)
}

// run streams the job's output until the process ends, then reports the result
func (l *Launcher) run(j *job, sink build.Sink) {
	defer l.unregister(j)

	out := j.process.Output()
	buf := make([]byte, outputChunkSize)
	logWriteFailed := false

	for {
		n, err := out.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if _, werr := j.logFile.Write(chunk); werr != nil && !logWriteFailed {
				j.log.WithError(werr).Warn("failed to write log file")
				logWriteFailed = true
			}
			sink.Publish(build.OutputEvent(j.info.ID, j.info.Version, chunk))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				j.log.WithError(err).Debug("output stream closed early")
			}
			break
		}
	}
	out.Close()

	waitErr := j.process.Wait()
	if err := j.logFile.Close(); err != nil {
		j.log.WithError(err).Warn("failed to close log file")
	}

	exitCode := j.process.ExitCode()
	event := build.Event{
		JobID:     j.info.ID,
		Version:   j.info.Version,
		ExitCode:  exitCode,
		PID:       j.info.PID,
		Timestamp: time.Now(),
	}
	if waitErr == nil && exitCode == 0 {
		event.Kind = build.EventCompleted
		j.log.WithField("elapsed", time.Since(j.info.StartedAt).Round(time.Millisecond)).Info("packaging tool completed")
	} else {
		event.Kind = build.EventFailed
		event.Err = waitErr
		j.log.WithError(waitErr).WithField("exit_code", exitCode).Warn("packaging tool failed")
	}
	sink.Publish(event.Colored())
}

func (l *Launcher) register(j *job) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.live[j.info.ID] = j
	l.wg.Add(1)
}

func (l *Launcher) unregister(j *job) {
	l.mu.Lock()
	delete(l.live, j.info.ID)
	l.mu.Unlock()
	l.wg.Done()
}

// Live returns the jobs whose process has not yet been reported, oldest first
func (l *Launcher) Live() []JobInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	jobs := make([]JobInfo, 0, len(l.live))
	for _, j := range l.live {
		jobs = append(jobs, j.info)
	}
	sort.Slice(jobs, func(a, b int) bool {
		if jobs[a].StartedAt.Equal(jobs[b].StartedAt) {
			return jobs[a].Version < jobs[b].Version
		}
		return jobs[a].StartedAt.Before(jobs[b].StartedAt)
	})
	return jobs
}

// Wait blocks until every launched job has reported its result
func (l *Launcher) Wait() {
	l.wg.Wait()
}

// Shutdown asks every live job to terminate, kills those still running after
// the stop grace period, and waits for their reports until ctx ends
func (l *Launcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	l.signalLive(process.SignalTerminate)

	grace := time.NewTimer(l.stopGrace)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
	case <-ctx.Done():
	}

	l.signalLive(process.SignalKill)
	l.cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("build jobs still running at shutdown: %w", ctx.Err())
	}
}

// signalLive sends signal to every job whose process is still running. A job
// that cannot take the terminate signal is killed right away.
func (l *Launcher) signalLive(signal process.ProcessSignal) {
	l.mu.Lock()
	jobs := make([]*job, 0, len(l.live))
	for _, j := range l.live {
		jobs = append(jobs, j)
	}
	l.mu.Unlock()

	for _, j := range jobs {
		if !j.process.IsRunning() {
			continue
		}
		j.log.WithField("signal", signal).Info("stopping packaging tool")

		var err error
		if signal == process.SignalKill {
			err = j.process.Kill()
		} else if err = j.process.Signal(signal); err != nil {
			j.log.WithError(err).Debug("terminate not delivered, killing")
			err = j.process.Kill()
		}
		if err != nil && j.process.IsRunning() {
			j.log.WithError(err).Warn("failed to stop packaging tool")
		}
	}
}
