package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"autoav/pkg/access"
	"autoav/pkg/config"
	"autoav/pkg/inspect"
	"autoav/pkg/privilege"
	"autoav/pkg/scanner"
	"autoav/pkg/tools"
)

// app is the assembled component graph every subcommand runs against.
type app struct {
	cfg        config.Config
	log        zerolog.Logger
	accessor   *access.Accessor
	priv       *privilege.Manager
	scan       *scanner.Scanner
	host       *inspect.Host
	dispatcher *tools.Dispatcher
}

// loadConfig resolves the config file from the flag or the default path.
func loadConfig(flags *rootFlags) (config.Config, error) {
	path := flags.configPath
	if path == "" {
		paths, err := ResolvePaths()
		if err != nil {
			return config.Config{}, err
		}
		path = paths.ConfigPath
	}
	return config.Load(path)
}

// newApp wires the accessor, privilege manager, scanner, host inspector,
// and tool dispatcher. The privilege manager prompts on the operator's
// terminal; there is no non-interactive elevation path.
func newApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	accessor := access.New(cfg.RestrictedDirs)
	priv := privilege.New(
		privilege.Config{TTL: cfg.GrantTTL(), PromptTimeout: cfg.PromptTimeout()},
		&privilege.ExecCommandRunner{},
		&privilege.TerminalInteractiveRunner{},
		privilege.NewTerminalApprover(),
		log,
	)
	scan := scanner.New(scanner.Config{
		ScanTimeout:    cfg.ScanTimeout(),
		RefreshTimeout: cfg.RefreshTimeout(),
	}, log)
	host := inspect.New(log)

	dispatcher, err := tools.NewDispatcher(cfg, accessor, priv, scan, host, log)
	if err != nil {
		return nil, fmt.Errorf("build tool dispatcher: %w", err)
	}

	return &app{
		cfg:        cfg,
		log:        log,
		accessor:   accessor,
		priv:       priv,
		scan:       scan,
		host:       host,
		dispatcher: dispatcher,
	}, nil
}
