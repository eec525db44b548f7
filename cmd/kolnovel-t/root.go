package main

import (
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/justyntemme/kolnovel-t/internal/api"
	"github.com/justyntemme/kolnovel-t/internal/config"
	"github.com/justyntemme/kolnovel-t/internal/library"
	"github.com/justyntemme/kolnovel-t/internal/logging"
	"github.com/justyntemme/kolnovel-t/internal/store"
	"github.com/justyntemme/kolnovel-t/internal/ui"

	"github.com/spf13/cobra"
)

var (
	flagDebug      bool
	flagConfigPath string
	flagBaseURL    string
)

var rootCmd = &cobra.Command{
	Use:   "kolnovel-t",
	Short: "Terminal reader for kolbook web novels",
	Long: "kolnovel-t reads kolbook web novels in the terminal. Opening a chapter\n" +
		"keeps appending the next chapters as you scroll and records what you read.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(ui.Options{})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file (default is the user config dir)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "site to read from, overrides the config")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is everything a command needs, built from the flags and the config
type env struct {
	cfg    *config.Config
	log    *log.Logger
	store  *store.Store
	client *api.Client
	lib    *library.Service

	logFile io.Closer
}

func loadConfig() (*config.Config, error) {
	return config.LoadMerged(config.Options{
		Path:    flagConfigPath,
		BaseURL: flagBaseURL,
		Debug:   flagDebug,
	})
}

func setup() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, logFile, err := logging.New(cfg.LogPath(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database())
	if err != nil {
		logFile.Close()
		return nil, err
	}

	client := api.NewClient(api.Options{
		BaseURL:          cfg.BaseURL,
		APIURL:           cfg.API(),
		UserAgent:        cfg.UserAgent,
		CloudflareBypass: cfg.CloudflareBypass,
		RetryCount:       2,
		RetryWait:        2 * time.Second,
		Logger:           logger,
	})

	logger.Debug("started", "config", cfg.Path(), "base", cfg.BaseURL, "db", cfg.Database())
	return &env{
		cfg:     cfg,
		log:     logger,
		store:   st,
		client:  client,
		lib:     library.New(st, client, logger),
		logFile: logFile,
	}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.log.Error("close store", "err", err)
	}
	e.logFile.Close()
}

// runTUI starts the terminal UI on the screen selected by opts
func runTUI(opts ui.Options) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	opts.Config = e.cfg
	opts.Library = e.lib
	opts.Source = e.client
	opts.Images = e.client
	opts.Logger = e.log

	app := ui.NewApp(opts)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run program: %w", err)
	}
	return nil
}
