package cmd

import (
	"context"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/namelens/listlens/internal/config"
	"github.com/namelens/listlens/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Find HubSpot lists whose filters reference tracked properties",
	Long: `listlens reads a CSV of HubSpot lists and a file of property names, fetches
each list's filter definition and reports which tracked properties it uses.

Results are written to a CSV report; failed lookups are appended to an error log.`,
	SilenceUsage: true,
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Keep gofulmen from emitting telemetry until a run asks for metrics.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/listlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.ConfigureSearch(v, cfgFile)
	if err := config.BindEnv(v); err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to bind environment", err)
	}

	readErr := v.ReadInConfig()

	observability.InitCLILogger(config.AppName, v.GetString("logging.level"), verbose)
	logger := observability.CLILogger

	switch {
	case readErr == nil:
		logger.Debug("Using config file", zap.String("path", v.ConfigFileUsed()))
	case cfgFile != "":
		ExitWithCode(logger, foundry.ExitConfigInvalid, "Failed to read config file", readErr)
	default:
		if _, ok := readErr.(viper.ConfigFileNotFoundError); ok {
			logger.Debug("No config file found, using defaults and environment variables")
		} else {
			logger.Warn("Error reading config file", zap.Error(readErr))
		}
	}
}
