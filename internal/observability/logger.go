package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

// CLILogger is the process-wide logger for commands (SIMPLE profile).
var CLILogger *logging.Logger

// InitCLILogger initializes the CLI logger. Verbose forces DEBUG; otherwise
// level selects the severity ("info" when empty).
func InitCLILogger(serviceName string, level string, verbose bool) {
	logger, err := newCLILogger(serviceName, level, verbose)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}
	CLILogger = logger
}

func newCLILogger(serviceName string, level string, verbose bool) (*logging.Logger, error) {
	severity := parseLogLevel(level)
	if verbose || severity == "INFO" {
		logger, err := logging.NewCLI(serviceName)
		if err != nil {
			return nil, err
		}
		if verbose {
			logger.SetLevel(logging.DEBUG)
		}
		return logger, nil
	}

	return logging.New(&logging.LoggerConfig{
		Profile:      logging.ProfileSimple,
		DefaultLevel: severity,
		Service:      serviceName,
		Environment:  "production",
		Sinks: []logging.SinkConfig{
			{
				Type:   "console",
				Format: "console",
				Console: &logging.ConsoleSinkConfig{
					Stream:   "stderr",
					Colorize: false,
				},
			},
		},
	})
}

// parseLogLevel maps a config level to a logging severity name.
func parseLogLevel(levelStr string) string {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// exitWithCodeStderr is used before the CLI logger exists.
func exitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		os.Exit(int(exitCode))
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	os.Exit(info.Code)
}
