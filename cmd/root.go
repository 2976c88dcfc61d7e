package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kamal-hamza/lima-cli/internal/adapters/api"
	"github.com/kamal-hamza/lima-cli/internal/adapters/journal"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
	"github.com/kamal-hamza/lima-cli/internal/core/services"
	"github.com/kamal-hamza/lima-cli/internal/logging"
	"github.com/kamal-hamza/lima-cli/internal/telemetry"
	"github.com/kamal-hamza/lima-cli/pkg/appdir"
	"github.com/kamal-hamza/lima-cli/pkg/config"
	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

var (
	// Local paths and settings
	appDirs   *appdir.Dirs
	appConfig *config.Config
	logger    = zap.NewNop()

	// Backend
	apiClient *api.Client
	backend   ports.API

	// Local state
	queryCache    *services.QueryCache
	bundleJournal ports.BundleJournal

	// Services
	projectListService *services.ProjectListService
	projectService     *services.ProjectService
	importService      *services.ImportService
	tagService         *services.TagService
	statsService       *services.StatsService

	// Global flags
	flagAPIURL string
	flagJSON   bool

	cleanups []func()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lima",
	Short: "LIMA - manage 3D printing projects and their assets",
	Long: ui.StyleTitle.Render("LIMA") + " - Project & Asset Manager\n\n" +
		"Browse, search and edit the projects in your LIMA library.\n" +
		"Upload files into bundles and import them into new or existing projects.",
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
}

// RootCmd returns the root command for the launcher
func RootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Finalizers run even when RunE fails, unlike PersistentPostRunE
	cobra.OnFinalize(runCleanups)

	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(assetsCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(bundlesCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "LIMA server URL (overrides config and "+config.EnvAPIURL+")")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print machine-readable JSON")
}

// skipsBackend lists commands that only need local configuration
var skipsBackend = map[string]bool{
	"version":    true,
	"config":     true,
	"completion": true,
	"help":       true,
}

// initializeApp initializes the application components
func initializeApp(cmd *cobra.Command, args []string) error {
	d, err := appdir.New()
	if err != nil {
		return fmt.Errorf("failed to resolve directories: %w", err)
	}
	appDirs = d

	cfg, err := config.Load(appDirs.ConfigPath)
	if err != nil {
		return err
	}
	if flagAPIURL != "" {
		cfg.APIURL = flagAPIURL
	}
	appConfig = cfg
	ui.SetTheme(cfg.ColorTheme)

	if skipsBackend[topLevelName(cmd)] {
		return nil
	}

	if err := appDirs.Initialize(); err != nil {
		return err
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = appDirs.LogFile()
	}
	l, closeLog, err := logging.New(logging.Options{
		Level:    cfg.Log.Level,
		File:     logFile,
		MaxSize:  cfg.Log.MaxSize,
		MaxFiles: cfg.Log.MaxFiles,
		KeepDays: cfg.Log.KeepDays,
		Console:  cfg.Log.Console,
	})
	if err != nil {
		return err
	}
	logger = l
	cleanups = append(cleanups, closeLog)

	shutdown, err := telemetry.Setup(getContext(cmd), Version)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		cleanups = append(cleanups, func() { _ = shutdown(context.Background()) })
	}

	apiClient = api.NewClient(cfg.APIURL, api.WithLogger(logger))

	var j ports.BundleJournal
	if cfg.JournalEnabled {
		opened, err := journal.Open(appDirs.JournalPath())
		if err != nil {
			// Uploads still work without the journal
			logger.Warn("bundle journal unavailable", zap.Error(err))
		} else {
			j = opened
			cleanups = append(cleanups, func() { _ = opened.Close() })
		}
	}

	wireServices(apiClient, j)
	logger.Debug("initialized", zap.String("command", cmd.CommandPath()), zap.String("api_url", cfg.APIURL))
	return nil
}

// wireServices builds the service layer on top of a backend
func wireServices(b ports.API, j ports.BundleJournal) {
	backend = b
	bundleJournal = j

	pageSize, cacheSize, ttl := services.DefaultPageSize, 128, config.DefaultConfig().CacheTTL()
	if appConfig != nil {
		pageSize, cacheSize, ttl = appConfig.PageSize, appConfig.CacheSize, appConfig.CacheTTL()
	}

	queryCache = services.NewQueryCache(cacheSize, ttl, logger)
	projectListService = services.NewProjectListService(backend, queryCache, pageSize)
	projectService = services.NewProjectService(backend, queryCache, logger)
	importService = services.NewImportService(backend, queryCache, bundleJournal, logger)
	tagService = services.NewTagService(backend, queryCache)
	statsService = services.NewStatsService(projectListService, projectService)
}

// topLevelName returns the name of the direct child of root that cmd
// belongs to
func topLevelName(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	return cmd.Name()
}

// runCleanups closes the journal, flushes the log and stops tracing in
// reverse order of setup
func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

// getContext returns the command's context for operations
func getContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
