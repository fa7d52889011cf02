package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/zeit/internal/access"
	"github.com/joescharf/zeit/internal/ledger"
	"github.com/joescharf/zeit/internal/models"
	"github.com/joescharf/zeit/internal/output"
	"github.com/joescharf/zeit/internal/report"
	"github.com/joescharf/zeit/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	logger    *slog.Logger
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "zeit",
	Short: "Project time tracking for small teams",
	Long: `zeit tracks working time per project, employee and category.
Employees start and stop activities, projects are finished once the
work is done, and reports roll the booked minutes up per category,
employee and date range.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/zeit/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ZEIT")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	dir, _ := configDirFunc()
	setDefaults(dir)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key with its default, rooted at dir.
func setDefaults(dir string) {
	viper.SetDefault("state_dir", dir)
	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.path", filepath.Join(dir, "zeit.db"))
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("team_code", "")
	viper.SetDefault("categories", categoryStrings(models.DefaultCategories))
	viper.SetDefault("caller.email", "")
	viper.SetDefault("caller.team_code", "")
	viper.SetDefault("port", 8080)
	viper.SetDefault("report.timezone", "UTC")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Store is opened lazily so config/version run without a database.
}

// rootRun handles `zeit` with no subcommand: show the project dashboard.
func rootRun(cmd *cobra.Command) error {
	if _, err := getStore(); err != nil {
		return cmd.Help()
	}
	return projectListRun("")
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	ctx := context.Background()
	driver := viper.GetString("db.driver")
	target := viper.GetString("db.path")
	if driver == "mysql" {
		target = viper.GetString("db.dsn")
	} else if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	s, err := store.Open(ctx, driver, target)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

func configuredCategories() []models.Category {
	return models.ParseCategories(viper.GetStringSlice("categories"))
}

func reportLocation() (*time.Location, error) {
	name := viper.GetString("report.timezone")
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("report.timezone %q: %w", name, err)
	}
	return loc, nil
}

func newLedger(s store.Store) *ledger.Ledger {
	return ledger.New(s, ledger.Config{Categories: configuredCategories()}, ledger.WithLogger(logger))
}

func newReportService(s store.Store) (*report.Service, error) {
	loc, err := reportLocation()
	if err != nil {
		return nil, err
	}
	return report.NewService(s, report.Options{
		Categories: models.NewCategorySet(configuredCategories()).List(),
		Location:   loc,
	}), nil
}

func accessPolicy() access.Policy {
	return access.Policy{TeamCode: viper.GetString("team_code")}
}

// currentCaller is the identity the CLI and MCP surfaces report as.
func currentCaller() access.Caller {
	return access.Caller{
		Email:    viper.GetString("caller.email"),
		TeamCode: viper.GetString("caller.team_code"),
	}
}

func categoryStrings(cats []models.Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}
