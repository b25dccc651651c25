package main

import (
	"github.com/kioskops/kioskctl/internal/catalog"
	"github.com/kioskops/kioskctl/internal/config"
	"github.com/kioskops/kioskctl/internal/gateway"
	"github.com/kioskops/kioskctl/internal/launchd"
	"github.com/kioskops/kioskctl/internal/logger"
)

// appContext bundles the services every command builds from the tool
// settings and root flags.
type appContext struct {
	cfg     config.ToolConfig
	log     *logger.Logger
	gw      gateway.Gateway
	catalog *catalog.Catalog
}

// buildAppContext loads the tool settings and wires up logging, the shell
// gateway and the setting catalog. jsonOutput forces machine-readable logs
// so report output on stdout stays clean.
func buildAppContext(flags *rootFlags, jsonOutput bool) (*appContext, error) {
	path := flags.configPath
	if path == "" {
		var err error
		path, err = config.DefaultToolConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.LoadToolConfig(path)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if flags.verbose {
		level = "debug"
	}

	log, err := logger.New(logger.Options{Level: level, HumanReadable: cfg.HumanLogs && !jsonOutput})
	if err != nil {
		return nil, err
	}

	gw, err := gateway.NewShell(cfg.ShellPath, log)
	if err != nil {
		return nil, err
	}

	return &appContext{cfg: cfg, log: log, gw: gw, catalog: catalog.Default()}, nil
}

// agentDir resolves the launch agent directory, preferring the tool
// settings over the platform default.
func (app *appContext) agentDir() (string, error) {
	if app.cfg.AgentDir != "" {
		return app.cfg.AgentDir, nil
	}
	return launchd.DefaultAgentDir()
}

// resolveSelection returns the setting ids a command operates on: explicit
// args win, then the profile selection, then the whole catalog. The
// profile, when given, is returned too so callers can read its other
// sections.
func (app *appContext) resolveSelection(args []string, profilePath string) ([]string, *config.Profile, error) {
	var profile *config.Profile
	if profilePath != "" {
		var err error
		profile, err = config.ParseProfile(profilePath)
		if err != nil {
			return nil, nil, err
		}
	}

	if len(args) > 0 {
		return args, profile, nil
	}

	if profile != nil {
		ids, err := profile.Selection.Resolve(app.catalog)
		if err != nil {
			return nil, nil, err
		}
		return ids, profile, nil
	}

	return app.catalog.IDs(), nil, nil
}
