package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/platform/config"
	"github.com/p-n-ai/pai-progress/internal/platform/logging"
)

type rootOptions struct {
	dir      string
	manifest string
	baseURL  string
	logLevel string
	timeout  time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "curriculumctl",
		Short:        "Inspect curriculum content sources",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), config.LogConfig{Level: opts.logLevel, Format: "text"}))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.dir, "dir", envOr("LEARN_CURRICULUM_PATH", "./curriculum"), "directory holding source files")
	flags.StringVar(&opts.manifest, "manifest", envOr("LEARN_CURRICULUM_MANIFEST", "manifest.json"), "manifest file name")
	flags.StringVar(&opts.baseURL, "url", os.Getenv("LEARN_CURRICULUM_BASE_URL"), "fetch sources over HTTP from this base URL instead of --dir")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall load timeout")

	cmd.AddCommand(
		newValidateCmd(opts),
		newTiersCmd(opts),
		newSearchCmd(opts),
		newExportCmd(opts),
	)
	return cmd
}

// load builds a store from the flags and loads it.
func (o *rootOptions) load(ctx context.Context) (*curriculum.Store, error) {
	var catalog curriculum.Catalog = curriculum.DirCatalog{Dir: o.dir, Manifest: o.manifest}
	if o.baseURL != "" {
		catalog = curriculum.NewHTTPCatalog(o.baseURL, o.manifest, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	store := curriculum.NewStore(catalog)
	if _, err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("load curriculum: %w", err)
	}
	return store, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
