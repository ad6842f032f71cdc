// Command swinject writes the pre-cache list from build/asset-manifest.json
// into build/service-worker.js. Run it once after the frontend build.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"github.com/unkn0wn-root/swcache/inject"
	"go.uber.org/zap"
)

type config struct {
	BuildDir string `env:"SWINJECT_BUILD_DIR" envDefault:"build"`
	Manifest string `env:"SWINJECT_MANIFEST" envDefault:"asset-manifest.json"`
	Worker   string `env:"SWINJECT_WORKER" envDefault:"service-worker.js"`
}

func newRootCmd(log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "swinject",
		Short: "Inject the asset manifest into the built service worker",
		Long: `swinject reads the build's asset manifest, drops source maps and writes
the remaining paths over the "/* sw-injection-point */" placeholder of the
built worker script. A script that was already injected is left untouched
and reported as an error.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg config
			if err := env.Parse(&cfg); err != nil {
				return fmt.Errorf("parse env: %w", err)
			}
			manifest := filepath.Join(cfg.BuildDir, cfg.Manifest)
			worker := filepath.Join(cfg.BuildDir, cfg.Worker)

			log.Info("injecting asset manifest into service worker",
				zap.String("manifest", manifest), zap.String("worker", worker))
			res, err := inject.InjectFile(manifest, worker)
			if err != nil {
				return err
			}
			log.Info("injected", zap.String("worker", res.WorkerPath), zap.Int("files", len(res.Files)))
			fmt.Fprintf(cmd.OutOrStdout(), "injected %d files into %s\n", len(res.Files), res.WorkerPath)
			return nil
		},
	}
}

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "swinject:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := newRootCmd(log).Execute(); err != nil {
		log.Error("injection failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "swinject:", err)
		_ = log.Sync()
		os.Exit(1)
	}
}
