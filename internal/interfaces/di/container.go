package di

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"upack.dev/cli/internal/application/services"
	"upack.dev/cli/internal/config"
	"upack.dev/cli/internal/core/engine"
	"upack.dev/cli/internal/infrastructure/logging"
	infraproc "upack.dev/cli/internal/infrastructure/process"
	"upack.dev/cli/internal/infrastructure/uat"
	"upack.dev/cli/internal/interfaces/cli"
)

// Container holds all application dependencies
type Container struct {
	// Configuration
	Config *config.Config

	// Core services
	Detector *engine.Detector
	Launcher *services.Launcher

	// Infrastructure
	Executor *infraproc.Executor
	Tool     *uat.Tool

	// CLI
	CLIContainer *cli.CLIContainer

	// Logger
	Logger *logrus.Logger

	mu        sync.Mutex
	logCloser io.Closer
}

// NewContainer creates the container. Components are built by Configure once
// the command line is parsed.
func NewContainer() *Container {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	c := &Container{Logger: logger}
	c.CLIContainer = &cli.CLIContainer{
		Logger:        logger,
		MainContainer: c,
	}
	return c
}

// Configure loads the configuration and wires every component. Interactive
// commands send diagnostics to the log file so they do not corrupt the screen.
func (c *Container) Configure(configPath string, debug, interactive bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Debug = debug
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := logging.Options{Level: cfg.LogLevel, Debug: debug, Output: os.Stderr}
	if interactive {
		opts.File = cfg.DiagnosticsLog
	}
	logger, closer, err := logging.NewLogger(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if c.logCloser != nil {
		c.logCloser.Close()
	}
	c.logCloser = closer
	c.Logger = logger
	c.Config = cfg

	c.Detector = engine.NewDetector(cfg.VersionPrefix)
	c.Executor = infraproc.NewExecutorWithOptions(cfg.DrainTimeout, "", nil)
	c.Tool = uat.NewTool(cfg.ToolScript, cfg.ExtraArgs, uat.WithEnv(cfg.ToolEnv))
	c.Launcher = services.NewLauncher(c.Executor, c.Tool,
		services.WithLogger(logger),
		services.WithLogFileName(cfg.LogFileName),
		services.WithStopGrace(cfg.StopGrace),
	)

	c.CLIContainer.Config = cfg
	c.CLIContainer.Logger = logger
	c.CLIContainer.Detector = c.Detector
	c.CLIContainer.Launcher = c.Launcher

	fields := logrus.Fields{"engine_root": cfg.EngineRoot, "prefix": cfg.VersionPrefix}
	if cfg.Path != "" {
		fields["config"] = cfg.Path
	}
	logger.WithFields(fields).Debug("configuration loaded")
	return nil
}

// GetCLIContainer returns the CLI container
func (c *Container) GetCLIContainer() *cli.CLIContainer {
	return c.CLIContainer
}

// Shutdown kills running build jobs and releases the log file
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.Launcher != nil {
		if live := c.Launcher.Live(); len(live) > 0 {
			c.Logger.WithField("jobs", len(live)).Info("stopping running build jobs")
		}
		err = c.Launcher.Shutdown(ctx)
	}

	if c.logCloser != nil {
		if cerr := c.logCloser.Close(); cerr != nil && err == nil {
			err = cerr
		}
		c.logCloser = nil
	}
	return err
}
