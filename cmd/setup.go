package cmd

import (
	"errors"

	"go.uber.org/zap"

	"yqhp/stepflow/internal/config"
	"yqhp/stepflow/internal/parser"
	"yqhp/stepflow/internal/plugin"
	"yqhp/stepflow/internal/plugin/builtin"
	"yqhp/stepflow/internal/render"
	"yqhp/stepflow/internal/validate"
	"yqhp/stepflow/pkg/logger"
)

// runtime bundles the collaborators every config-driven command needs.
type runtime struct {
	cfg      *config.Config
	log      *zap.Logger
	files    *logger.Files
	renderer *render.Renderer
	source   *parser.Source
	plugins  *plugin.Registry
}

// setup loads and validates the configuration, applies --var overrides,
// prepares directories and builds the logger, step source and plugin
// registry. Nothing here has side effects beyond creating temp_dir and
// log_dir.
func setup(vars []string) (*runtime, error) {
	if cfgFile == "" {
		return nil, errors.New("missing --config")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyVars(vars); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if debug {
		level = "DEBUG"
	}
	log, files, err := logger.New(&logger.Config{
		Level: level,
		Dir:   cfg.LogDir,
		JSON:  cfg.JSONLog,
		Quiet: quiet,
	})
	if err != nil {
		return nil, err
	}

	renderer := render.New()
	registry := plugin.NewRegistry()
	if err := builtin.RegisterAll(registry, cfg); err != nil {
		return nil, err
	}

	return &runtime{
		cfg:      cfg,
		log:      log,
		files:    files,
		renderer: renderer,
		source:   parser.NewSource(cfg.StepsDir, renderer, cfg.Raw()),
		plugins:  registry,
	}, nil
}

// logFindings reports validation findings at a level matching their
// severity.
func logFindings(log *zap.Logger, report *validate.Report) {
	for _, finding := range report.Findings {
		switch finding.Level {
		case validate.LevelWarn:
			log.Warn(finding.String())
		default:
			log.Error(finding.String())
		}
	}
}
