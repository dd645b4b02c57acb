package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"platform-mcp/internal/config"
	"platform-mcp/pkg/logging"
)

// Application represents the main application structure that bootstraps and
// runs platform-mcp.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load configuration, initialize logging, set up services
//  2. Execution phase: serve MCP over stdio, or let a CLI command use Services
//
// Example usage:
//
//	cfg := app.NewConfig(false, "", app.Overrides{})
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with
// the provided configuration:
//
//  1. Loads the platform configuration (defaults, file, environment)
//  2. Applies command line overrides and validates the result
//  3. Configures logging from the configured level and the debug flag
//  4. Initializes the credential store, OAuth flow, token manager and
//     platform client
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.PlatformConfig == nil {
		platformCfg, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg.PlatformConfig = &platformCfg
	}
	cfg.Overrides.Apply(cfg.PlatformConfig)

	initLogging(cfg)

	if err := cfg.PlatformConfig.Validate(); err != nil {
		logging.Error("Bootstrap", err, "Invalid configuration")
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logging.Debug("Bootstrap", "Initialized for %s", cfg.PlatformConfig.BaseURL)

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves MCP over stdin and stdout until ctx is cancelled, stdin is
// closed or the process receives SIGINT or SIGTERM.
func (a *Application) Run(ctx context.Context) error {
	return runServeMode(ctx, a.services, os.Stdin, os.Stdout)
}

func initLogging(cfg *Config) {
	level := logging.ParseLevel(cfg.PlatformConfig.LogLevel)
	if cfg.Debug {
		level = logging.LevelDebug
	}

	var output io.Writer
	switch {
	case cfg.LogOutput != nil:
		output = cfg.LogOutput
	case cfg.PlatformConfig.LogFile != "":
		output = logging.RotatingFile(cfg.PlatformConfig.LogFile)
	case cfg.Silent:
		output = io.Discard
	default:
		output = os.Stderr
	}
	logging.InitForCLI(level, output)
}
