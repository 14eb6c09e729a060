package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/namelens/listlens/internal/config"
	"github.com/namelens/listlens/internal/core/store"
	apperrors "github.com/namelens/listlens/internal/errors"
	"github.com/namelens/listlens/internal/input"
	"github.com/namelens/listlens/internal/observability"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check configuration, input files and the history database before a run.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}

		checks := diagnose(cmd.Context(), cfg)
		logger := observability.CLILogger
		logger.Info("=== " + config.AppName + " doctor ===")

		failed := 0
		for i, check := range checks {
			line := fmt.Sprintf("[%d/%d] %s... ", i+1, len(checks), check.Name)
			fields := []zap.Field{zap.String("check", check.Name)}
			switch {
			case check.Err != nil:
				failed++
				logger.Error(line+"❌ "+check.Detail, append(fields, zap.Error(check.Err))...)
			case check.Warn:
				logger.Warn(line+"⚠️  "+check.Detail, fields...)
			default:
				logger.Info(line+"✅ "+check.Detail, fields...)
			}
		}

		if failed > 0 {
			return apperrors.NewConfigInvalidError(fmt.Sprintf("%d diagnostic check(s) failed", failed))
		}
		logger.Info("All checks passed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type doctorCheck struct {
	Name   string
	Detail string
	Warn   bool
	Err    error
}

func diagnose(ctx context.Context, cfg *config.Config) []doctorCheck {
	version := crucible.GetVersion()
	checks := []doctorCheck{
		{Name: "Runtime", Detail: fmt.Sprintf("%s %s/%s, gofulmen %s", runtime.Version(), runtime.GOOS, runtime.GOARCH, version.Gofulmen)},
	}

	if err := cfg.ValidateRun(); err != nil {
		checks = append(checks, doctorCheck{Name: "Configuration", Detail: "invalid", Err: err})
	} else {
		checks = append(checks, doctorCheck{Name: "Configuration", Detail: fmt.Sprintf("%s, %d workers, %d req/%s", cfg.HubSpot.BaseURL, cfg.Workers, cfg.RateLimit.Requests, cfg.RateLimit.Window)})
	}

	if targets, rowWarnings, err := input.ReadTargets(cfg.Files.Lists); err != nil {
		checks = append(checks, doctorCheck{Name: "Lists file", Detail: cfg.Files.Lists, Err: err})
	} else {
		check := doctorCheck{Name: "Lists file", Detail: fmt.Sprintf("%s (%d lists)", cfg.Files.Lists, len(targets))}
		if len(rowWarnings) > 0 || len(targets) == 0 {
			check.Warn = true
			check.Detail = fmt.Sprintf("%s (%d lists, %d without ListId)", cfg.Files.Lists, len(targets), len(rowWarnings))
		}
		checks = append(checks, check)
	}

	if properties, err := input.ReadProperties(cfg.Files.Properties); err != nil {
		checks = append(checks, doctorCheck{Name: "Properties file", Detail: cfg.Files.Properties, Err: err})
	} else {
		checks = append(checks, doctorCheck{Name: "Properties file", Detail: fmt.Sprintf("%s (%d properties)", cfg.Files.Properties, properties.Len())})
	}

	for _, path := range []string{cfg.Files.Results, cfg.Files.ErrorLog} {
		checks = append(checks, outputDirCheck(path))
	}

	if cfg.Store.Enabled {
		db, err := store.Open(ctx, cfg.Store)
		if err != nil {
			checks = append(checks, doctorCheck{Name: "History database", Detail: "cannot open", Err: err})
		} else {
			_ = db.Close()
			checks = append(checks, doctorCheck{Name: "History database", Detail: storeLabel(cfg.Store)})
		}
	} else {
		checks = append(checks, doctorCheck{Name: "History database", Detail: "disabled", Warn: true})
	}

	return checks
}

func outputDirCheck(path string) doctorCheck {
	name := "Output " + filepath.Base(path)
	dir := filepath.Dir(filepath.Clean(path))
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return doctorCheck{Name: name, Detail: dir + " will be created", Warn: true}
	case err != nil:
		return doctorCheck{Name: name, Detail: dir, Err: err}
	case !info.IsDir():
		return doctorCheck{Name: name, Detail: dir, Err: fmt.Errorf("%s is not a directory", dir)}
	default:
		return doctorCheck{Name: name, Detail: path}
	}
}

func storeLabel(cfg config.StoreConfig) string {
	if cfg.URL != "" {
		return cfg.URL + " (remote)"
	}
	return cfg.Path
}
