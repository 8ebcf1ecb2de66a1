package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/strrl/hkanno-tui/internal/config"
	"github.com/strrl/hkanno-tui/internal/converter"
	"github.com/strrl/hkanno-tui/internal/oplog"
	"github.com/strrl/hkanno-tui/internal/tempfile"
)

var globalFlags struct {
	configPath string
	toolDir    string
	tool       string
	logFile    string
	debug      bool
	watch      []string
}

// app is the part of the wiring shared by every command
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	log      *oplog.Log
	conv     *converter.Converter
	closeLog func() error
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if globalFlags.configPath != "" {
		var err error
		if cfg, err = config.Load(globalFlags.configPath); err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("tool-dir") {
		cfg.Converter.ToolDir = globalFlags.toolDir
	}
	if flags.Changed("tool") {
		cfg.Converter.Executable = globalFlags.tool
	}
	if flags.Changed("log-file") {
		cfg.Log.File = globalFlags.logFile
	}
	if flags.Changed("debug") {
		cfg.Log.Debug = globalFlags.debug
	}
	if flags.Changed("watch") {
		cfg.Watch.Dirs = append(cfg.Watch.Dirs, globalFlags.watch...)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger.Debug("config loaded",
		"tool_dir", cfg.Converter.ToolDir,
		"executable", cfg.Converter.ExecutablePath(),
		"watch", cfg.Watch.Dirs)

	log := oplog.New(cfg.Log.Capacity, logger)
	conv := converter.New(converter.Options{
		Config: cfg.Converter,
		Temps:  tempfile.New(afero.NewOsFs(), cfg.Converter.ToolDir),
		Log:    log,
		Logger: logger,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		log:      log,
		conv:     conv,
		closeLog: closeLog,
	}, nil
}

func (a *app) Close() error {
	return a.closeLog()
}
