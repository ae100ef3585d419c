// Command sterna is the CLI front-end over the snapshot engine: thin
// dispatch that resolves flags, loads configuration, and calls straight
// into internal/snapshot, internal/query, and internal/exportimport.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/qmx/sterna/internal/config"
	"github.com/qmx/sterna/internal/identity"
	"github.com/qmx/sterna/internal/objectstore"
	"github.com/qmx/sterna/internal/snapshot"
	"github.com/qmx/sterna/internal/telemetry"
)

var (
	rootCtx        context.Context
	logger         *slog.Logger
	engine         *snapshot.Engine
	cfg            config.Config
	editorIdentity string
	tracerProvider *sdktrace.TracerProvider

	configPath  string
	editorFlag  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "sterna",
	SilenceUsage:  true,
	SilenceErrors: true,
	Short:         "sterna - dependency-aware issue tracker backed by a git commit chain",
	Long: `Sterna carries its entire issue/edge world as a dedicated commit chain
inside the host git repository, so state travels with push/pull instead of
living in working-tree files.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx = context.Background()

		level := slog.LevelInfo
		if verboseFlag {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		// stdouttrace is OpenTelemetry's "stdout exporter" family, but its
		// spans are written to stderr here so they never intermix with a
		// command's own stdout payload (export/get/list are meant to be
		// piped).
		provider, err := telemetry.NewTracerProvider(rootCtx, os.Stderr)
		if err != nil {
			return fmt.Errorf("sterna: start tracing: %w", err)
		}
		tracerProvider = provider
		otel.SetTracerProvider(provider)

		gitDir, err := objectstore.DiscoverGitDir(rootCtx)
		if err != nil {
			return fmt.Errorf("sterna: not a git repository: %w", err)
		}
		store := objectstore.NewGitStore(gitDir)

		editor := editorFlag
		if editor == "" {
			editor = cfg.Editor
		}
		if editor == "" {
			editor, err = identity.Resolve(rootCtx, store)
			if err != nil {
				return err
			}
		}

		lockPath := cfg.LockPath
		if lockPath == "" {
			lockPath = filepath.Join(gitDir, "sterna.lock")
		}

		editorIdentity = editor
		engine = snapshot.New(store, lockPath, editor, telemetry.Tracer(), logger)
		return nil
	},
}

func now() time.Time { return time.Now() }

// fatal writes a single diagnostic line to stderr and exits non-zero
// (spec.md §6's exit code contract).
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "sterna: %v\n", err)
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to .sterna.toml (default: search cwd and $HOME)")
	rootCmd.PersistentFlags().StringVar(&editorFlag, "editor", "", "override the identity recorded on mutations")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(reopenCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(addEdgeCmd)
	rootCmd.AddCommand(removeEdgeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(readyCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(restoreCmd)
}

func main() {
	err := rootCmd.Execute()
	if tracerProvider != nil {
		_ = tracerProvider.Shutdown(context.Background())
	}
	if err != nil {
		fatal(err)
	}
}
