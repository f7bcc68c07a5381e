package main

import (
	"context"
	"fmt"
	"os"

	"github.com/4thel00z/fieldvec/internal"
	"github.com/charmbracelet/fang"
	"go.uber.org/zap"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	ctx := context.Background()

	a := newApp(internal.NewWorkspaceResolver())
	defer a.close()

	rootCmd := NewRootCmd(version, a)
	if err := fang.Execute(ctx, rootCmd); err != nil {
		os.Exit(1)
	}
}

// app is configured once flags are parsed, because --config decides which
// file the logger and every use case read.
type app struct {
	resolver *internal.WorkspaceResolver
	log      *zap.Logger
	uc       *internal.UseCases
}

func newApp(resolver *internal.WorkspaceResolver) *app {
	return &app{resolver: resolver, log: zap.NewNop()}
}

func (a *app) configure(configPath string) error {
	if configPath != "" {
		a.resolver = a.resolver.WithConfigFile(configPath)
	}

	ws := a.resolver.Resolve()
	cfg, err := internal.LoadConfig(a.resolver.ConfigPath(ws))
	if err != nil {
		return err
	}

	log, err := internal.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	a.log = log
	a.uc = internal.NewUseCases(a.resolver, log)
	return nil
}

func (a *app) close() {
	_ = a.log.Sync()
}
