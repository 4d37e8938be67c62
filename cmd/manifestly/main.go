package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gdoermann/manifestly"
	"github.com/gdoermann/manifestly/config"
	merrors "github.com/gdoermann/manifestly/errors"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	logLevel  string
	logFormat string

	algorithm    string
	chunkSize    int
	concurrency  int
	format       string
	manifestName string
	excludes     []string
	includes     []string

	// Per-command flags
	output    string
	dryRun    bool
	refresh   bool
	sourceDir string
	targetDir string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "manifestly",
	Short: "Content-addressed manifests for directory trees",
	Long: `manifestly scans a directory tree into a manifest mapping each file path to
its content hash, and uses manifest pairs to detect, sync, patch, and package
differences between two directory states.

Locations may be local paths or s3://bucket/prefix object-store locations;
remote access is configured through MANIFESTLY_S3_* environment variables.`,
	SilenceUsage: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate <directory>",
	Short: "Scan a directory and write its manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <manifest>",
	Short: "Rescan a manifest's tree and rewrite the manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefresh,
}

var changedCmd = &cobra.Command{
	Use:   "changed <manifest>",
	Short: "Report how the tree has drifted from its manifest",
	Long: `Changed rescans the manifest's directory and prints the added, removed, and
changed paths relative to the recorded state as JSON. The manifest file is
not modified. Exits 1 when drift is found.`,
	Args: cobra.ExactArgs(1),
	RunE: runChanged,
}

var compareCmd = &cobra.Command{
	Use:   "compare <source-manifest> <target-manifest>",
	Short: "Diff two manifests",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompare,
}

var syncCmd = &cobra.Command{
	Use:   "sync <source-manifest> <target-manifest>",
	Short: "Make the target tree match the source tree",
	Long: `Sync diffs the source manifest against the target manifest, copies added and
changed files into the target tree, deletes removed files from it, and
rewrites the target manifest to the synced state. Copies are atomic and
verified against the source hash after landing.`,
	Args: cobra.ExactArgs(2),
	RunE: runSync,
}

var patchCmd = &cobra.Command{
	Use:   "patch <source-manifest> <target-manifest>",
	Short: "Write a unified diff between two manifest trees",
	Args:  cobra.ExactArgs(2),
	RunE:  runPatch,
}

var pzipCmd = &cobra.Command{
	Use:   "pzip <source-manifest> <target-manifest>",
	Short: "Package the changed files into a zip archive",
	Long: `Pzip builds a zip of every file that is added or changed in the source tree
relative to the target manifest, stored under its relative path, plus a
.manifestly.diff member holding the diff metadata.`,
	Args: cobra.ExactArgs(2),
	RunE: runPzip,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("manifestly %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&algorithm, "algorithm", "", "hash algorithm (default sha256 or $MANIFESTLY_HASH_ALGORITHM)")
	rootCmd.PersistentFlags().IntVar(&chunkSize, "chunk-size", 0, "read size in bytes for chunked hashing")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "worker pool size for scans and copies")
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "manifest format (json, yaml)")
	rootCmd.PersistentFlags().StringVar(&manifestName, "manifest-name", "", "manifest filename inside a directory")
	rootCmd.PersistentFlags().StringSliceVar(&excludes, "exclude", nil, "glob patterns to exclude (repeatable)")
	rootCmd.PersistentFlags().StringSliceVar(&includes, "include", nil, "glob patterns that re-include excluded paths (repeatable)")

	generateCmd.Flags().StringVarP(&output, "output", "o", "", "manifest file to write (default: manifest name inside the directory)")
	compareCmd.Flags().StringVarP(&output, "output", "o", "", "write the diff JSON to a file instead of stdout")
	patchCmd.Flags().StringVarP(&output, "output", "o", "", "patch file to write (default: stdout)")
	pzipCmd.Flags().StringVarP(&output, "output", "o", "manifestly-patch.zip", "archive file to write")

	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan the sync without copying or deleting anything")
	syncCmd.Flags().BoolVar(&refresh, "refresh", false, "rescan the source tree before planning")
	syncCmd.Flags().StringVar(&sourceDir, "source-directory", "", "override the source tree root")
	syncCmd.Flags().StringVar(&targetDir, "target-directory", "", "override the target tree root")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(changedCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(pzipCmd)
	rootCmd.AddCommand(versionCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()
	logger := setupLogger()

	cfg, opts, err := resolveOptions()
	if err != nil {
		return err
	}

	loc, err := manifestly.Resolve(args[0], cfg.S3)
	if err != nil {
		return err
	}

	logger.Info("scanning", "root", loc.Path, "algorithm", effectiveAlgorithm(cfg))
	m, err := manifestly.Generate(ctx, loc.FS, loc.Path, opts...)
	if err != nil {
		return err
	}

	dest := loc.Path
	if output != "" {
		outLoc, err := manifestly.Resolve(output, cfg.S3)
		if err != nil {
			return err
		}
		loc, dest = outLoc, outLoc.Path
	}
	if err := manifestly.Save(loc.FS, m, dest); err != nil {
		return err
	}

	logger.Info("manifest written", "files", m.Len(), "location", dest)
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()
	logger := setupLogger()

	cfg, opts, err := resolveOptions()
	if err != nil {
		return err
	}

	loc, err := manifestly.Resolve(args[0], cfg.S3)
	if err != nil {
		return err
	}

	m, err := manifestly.Load(loc.FS, loc.Path, opts...)
	if err != nil {
		return err
	}
	if err := m.Refresh(ctx); err != nil {
		return err
	}
	if err := manifestly.Save(loc.FS, m, loc.Path); err != nil {
		return err
	}

	logger.Info("manifest refreshed", "files", m.Len(), "location", loc.Path)
	return nil
}

func runChanged(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	cfg, opts, err := resolveOptions()
	if err != nil {
		return err
	}

	loc, err := manifestly.Resolve(args[0], cfg.S3)
	if err != nil {
		return err
	}

	m, err := manifestly.Load(loc.FS, loc.Path, opts...)
	if err != nil {
		return err
	}
	diff, err := m.Changed(ctx)
	if err != nil {
		return err
	}

	if err := printJSON(cmd.OutOrStdout(), diff); err != nil {
		return err
	}
	if !diff.Empty() {
		// Drift is a reportable outcome, not a failure worth a usage dump.
		cmd.SilenceErrors = true
		return errDrift
	}
	return nil
}

var errDrift = errors.New("tree has drifted from its manifest")

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, opts, err := resolveOptions()
	if err != nil {
		return err
	}

	source, _, err := loadManifestAt(args[0], cfg, opts)
	if err != nil {
		return err
	}
	target, _, err := loadManifestAt(args[1], cfg, opts)
	if err != nil {
		return err
	}

	diff, err := manifestly.Diff(source, target)
	if err != nil {
		return err
	}

	if output != "" {
		outLoc, err := manifestly.Resolve(output, cfg.S3)
		if err != nil {
			return err
		}
		return manifestly.WriteDiff(outLoc.FS, diff, outLoc.Path)
	}
	return printJSON(cmd.OutOrStdout(), diff)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()
	logger := setupLogger()

	cfg, opts, err := resolveOptions()
	if err != nil {
		return err
	}

	sourceOpts := opts
	if sourceDir != "" {
		sourceOpts = append(append([]manifestly.Option{}, opts...), manifestly.WithRoot(sourceDir))
	}
	source, _, err := loadManifestAt(args[0], cfg, sourceOpts)
	if err != nil {
		return err
	}

	targetOpts := opts
	if targetDir != "" {
		targetOpts = append(append([]manifestly.Option{}, opts...), manifestly.WithRoot(targetDir))
	}
	targetLoc, err := manifestly.Resolve(args[1], cfg.S3)
	if err != nil {
		return err
	}
	target, err := manifestly.Load(targetLoc.FS, targetLoc.Path, targetOpts...)
	if err != nil {
		// A target without a manifest is a seed sync into an empty state.
		if !errors.Is(err, merrors.ErrManifestNotFound) {
			return err
		}
		root := targetDir
		if root == "" {
			root = treeRoot(targetLoc.Path, effectiveManifestName(cfg))
		}
		target = manifestly.NewEmpty(targetLoc.FS, root,
			append(append([]manifestly.Option{}, targetOpts...), manifestly.WithAlgorithm(source.Algorithm()))...)
		logger.Info("no target manifest, seeding", "root", root)
	}

	syncOpts := []manifestly.SyncOption{}
	if dryRun {
		syncOpts = append(syncOpts, manifestly.WithDryRun())
	}
	if refresh {
		syncOpts = append(syncOpts, manifestly.WithRefresh())
	}
	if concurrency > 0 {
		syncOpts = append(syncOpts, manifestly.WithSyncConcurrency(concurrency))
	}

	result, err := manifestly.Sync(ctx, source, target, syncOpts...)
	if result != nil {
		copies, deletes := result.Plan.Counts()
		logger.Info("sync finished",
			"planned_copies", copies,
			"planned_deletes", deletes,
			"copied", result.Copied,
			"deleted", result.Deleted,
			"dry_run", result.DryRun,
			"duration", result.Duration)
	}
	if err != nil {
		return err
	}

	if result.DryRun {
		return printJSON(cmd.OutOrStdout(), result.Plan)
	}
	return manifestly.Save(targetLoc.FS, target, targetLoc.Path)
}

func runPatch(cmd *cobra.Command, args []string) error {
	cfg, opts, err := resolveOptions()
	if err != nil {
		return err
	}

	source, _, err := loadManifestAt(args[0], cfg, opts)
	if err != nil {
		return err
	}
	target, _, err := loadManifestAt(args[1], cfg, opts)
	if err != nil {
		return err
	}

	diff, err := manifestly.Diff(source, target)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()
		w = f
	}
	return manifestly.BuildPatch(diff, source, target, w)
}

func runPzip(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, opts, err := resolveOptions()
	if err != nil {
		return err
	}

	source, _, err := loadManifestAt(args[0], cfg, opts)
	if err != nil {
		return err
	}
	target, _, err := loadManifestAt(args[1], cfg, opts)
	if err != nil {
		return err
	}

	diff, err := manifestly.Diff(source, target)
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}

	if err := manifestly.BuildArchive(diff, source, f); err != nil {
		_ = f.Close()
		return err
	}

	logger.Info("archive written",
		"archive", output,
		"files", len(diff.Added)+len(diff.Changed),
		"removed_in_metadata", len(diff.Removed))
	return f.Close()
}

// resolveOptions resolves configuration from the environment and folds the
// global flag overrides on top.
func resolveOptions() (config.Settings, []manifestly.Option, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Settings{}, nil, err
	}

	opts := []manifestly.Option{
		manifestly.WithSettings(cfg),
		manifestly.WithAlgorithm(algorithm),
		manifestly.WithChunkSize(chunkSize),
		manifestly.WithConcurrency(concurrency),
		manifestly.WithFormat(format),
		manifestly.WithManifestName(manifestName),
	}
	if len(excludes) > 0 {
		opts = append(opts, manifestly.WithExcludePatterns(excludes...))
	}
	if len(includes) > 0 {
		opts = append(opts, manifestly.WithIncludePatterns(includes...))
	}
	return cfg, opts, nil
}

// loadManifestAt resolves a location string and loads the manifest there.
func loadManifestAt(location string, cfg config.Settings, opts []manifestly.Option) (*manifestly.Manifest, *manifestly.Location, error) {
	loc, err := manifestly.Resolve(location, cfg.S3)
	if err != nil {
		return nil, nil, err
	}
	m, err := manifestly.Load(loc.FS, loc.Path, opts...)
	if err != nil {
		return nil, nil, err
	}
	return m, loc, nil
}

// treeRoot maps a manifest location onto the tree root it describes: the
// location itself for a directory, its parent for a manifest file path.
func treeRoot(location, manifestName string) string {
	if strings.HasSuffix(location, "/"+manifestName) || path.Base(location) == manifestName {
		return path.Dir(location)
	}
	return location
}

func effectiveAlgorithm(cfg config.Settings) string {
	if algorithm != "" {
		return algorithm
	}
	return cfg.Algorithm
}

func effectiveManifestName(cfg config.Settings) string {
	if manifestName != "" {
		return manifestName
	}
	return cfg.ManifestName
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
