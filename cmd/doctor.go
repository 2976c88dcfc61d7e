package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/lima-cli/internal/adapters/api"
	"github.com/kamal-hamza/lima-cli/internal/telemetry"
	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

// errWarning marks a check that passed with a caveat
var errWarning = errors.New("warning")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the health of your lima installation",
	Long: `Diagnose issues with your LIMA setup.

Checks for:
  - Local directories and configuration file
  - Server URL and reachability
  - Bundle journal and bundles left staged
  - Editor and tracing environment`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	printLine(ui.FormatTitle("LIMA Doctor"))
	printLine()

	failed := 0
	check := func(name string, fn func() error) {
		if !checkStep(name, fn) {
			failed++
		}
	}

	// 1. Local setup
	check("State Directory", func() error {
		if !appDirs.Exists() {
			return fmt.Errorf("not found at %s", appDirs.StatePath)
		}
		return nil
	})

	check("Configuration File", func() error {
		if _, err := os.Stat(appDirs.ConfigPath); os.IsNotExist(err) {
			return fmt.Errorf("%w: missing at %s (defaults in use, run 'lima config' to create)", errWarning, appDirs.ConfigPath)
		}
		return nil
	})

	// 2. Server
	check("Server URL", func() error {
		u, err := url.Parse(appConfig.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%q is not an absolute URL", appConfig.APIURL)
		}
		return nil
	})

	check("Server Health", func() error {
		hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		ok, err := backend.Health(hctx)
		if err != nil {
			return errors.New(api.ErrorMessage(err))
		}
		if !ok {
			return fmt.Errorf("reachable at %s but the database is down", appConfig.APIURL)
		}
		return nil
	})

	// 3. Bundle journal
	check("Bundle Journal", func() error {
		if !appConfig.JournalEnabled {
			return fmt.Errorf("%w: disabled", errWarning)
		}
		if bundleJournal == nil {
			return fmt.Errorf("could not be opened at %s (see log)", appDirs.JournalPath())
		}
		return nil
	})

	if bundleJournal != nil {
		check("Staged Bundles", func() error {
			stale, err := bundleJournal.Staged(ctx, 24*time.Hour)
			if err != nil {
				return err
			}
			if len(stale) > 0 {
				return fmt.Errorf("%w: %d bundles older than a day were never imported (run 'lima bundles prune')", errWarning, len(stale))
			}
			return nil
		})
	}

	// 4. Environment
	check("EDITOR Variable", func() error {
		if appConfig.Editor == "" && os.Getenv("EDITOR") == "" {
			return fmt.Errorf("%w: not set (using fallback 'vi')", errWarning)
		}
		return nil
	})

	check("Tracing", func() error {
		if !telemetry.Enabled() {
			return fmt.Errorf("%w: off (set OTEL_EXPORTER_OTLP_ENDPOINT to enable)", errWarning)
		}
		return nil
	})

	printLine()
	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	printLine(ui.FormatSuccess("All checks passed"))
	return nil
}

// checkStep runs a check function and prints the result. Warnings do not
// count as failures.
func checkStep(name string, check func() error) bool {
	err := check()
	switch {
	case err == nil:
		printLine(fmt.Sprintf("%s %s", ui.StyleSuccess.Render("✔"), name))
		return true
	case errors.Is(err, errWarning):
		printLine(fmt.Sprintf("%s %s", ui.StyleWarning.Render("!"), name))
		printLine(fmt.Sprintf("    %s", ui.StyleMuted.Render(err.Error())))
		return true
	default:
		printLine(fmt.Sprintf("%s %s", ui.StyleError.Render("✘"), name))
		printLine(fmt.Sprintf("    %s", ui.StyleMuted.Render(err.Error())))
		return false
	}
}
