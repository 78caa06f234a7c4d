package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sembly/semcall/internal/cache"
	"github.com/sembly/semcall/internal/config"
	"github.com/sembly/semcall/internal/inspect"
	"github.com/sembly/semcall/internal/printer"
	"github.com/sembly/semcall/internal/timespec"
)

var (
	cacheOutputFormat string
	cacheSince        string
	cacheUntil        string
	cacheClearYes     bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the compiled-artifact cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached artifacts with filtering",
	Long: `List compiled prompt artifacts in the configured cache backend.

Output Formats:
  default - Human-readable table with fingerprint, age, and compiled task
  jsonl   - Line-delimited JSON, one artifact per line

Time Filters:
  --since  - Show artifacts compiled after this time
  --until  - Show artifacts compiled before this time

Examples:
  # List all cached artifacts
  semcall cache list

  # Artifacts compiled in the last two hours
  semcall cache list --since=2h

  # Stream complete artifacts to jq
  semcall cache list --output=jsonl | jq .fingerprint`,
	RunE: runCacheList,
}

var cacheShowCmd = &cobra.Command{
	Use:   "show FINGERPRINT",
	Short: "Show one cached artifact as pretty-printed JSON",
	Long: `Show the complete compiled artifact for a fingerprint, including its
prompt sections, placeholder template, and dependency fingerprints.

FINGERPRINT may be the full 64-character value or any unique prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: runCacheShow,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [FINGERPRINT]",
	Short: "Evict one artifact, or the whole cache",
	Long: `Evict a single cached artifact by fingerprint (or unique prefix), or
clear the entire cache when no fingerprint is given.

Evicted call sites recompile on their next semantic call.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCacheClear,
}

func init() {
	cacheListCmd.Flags().StringVarP(&cacheOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	cacheListCmd.Flags().StringVar(&cacheSince, "since", "", "Show artifacts after time (duration or RFC3339)")
	cacheListCmd.Flags().StringVar(&cacheUntil, "until", "", "Show artifacts before time (duration or RFC3339)")
	cacheClearCmd.Flags().BoolVarP(&cacheClearYes, "yes", "y", false, "Skip confirmation when clearing the whole cache")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// openStore builds the configured store backend for CLI use
func openStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "redis":
		redisOpts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid cache.redis_url: %w", err)
		}
		return cache.NewRedisStore(redisOpts, cfg.Cache.Namespace)
	case "memory":
		return nil, fmt.Errorf("memory cache backend holds no persistent artifacts to inspect")
	default:
		return cache.NewDiskStore(cfg.Cache.Dir)
	}
}

func withStore(run func(ctx context.Context, store cache.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return printer.Error(
			"failed to load configuration",
			err.Error(),
			fmt.Sprintf("Check that %s exists and is valid", configPath),
		)
	}

	store, err := openStore(cfg)
	if err != nil {
		return printer.Error("failed to open cache backend", err.Error())
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	return run(context.Background(), store)
}

func runCacheList(cmd *cobra.Command, args []string) error {
	var outputFormat inspect.OutputFormat
	switch cacheOutputFormat {
	case "default":
		outputFormat = inspect.OutputFormatDefault
	case "jsonl":
		outputFormat = inspect.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", cacheOutputFormat),
			"Valid formats: default, jsonl",
		)
	}

	sinceMS, untilMS, err := timespec.ParseRange(cacheSince, cacheUntil)
	if err != nil {
		return printer.Error("invalid time filter", err.Error())
	}

	return withStore(func(ctx context.Context, store cache.Store) error {
		filters := &inspect.FilterCriteria{
			SinceTimestampMs: sinceMS,
			UntilTimestampMs: untilMS,
		}
		if err := inspect.ListArtifacts(ctx, store, outputFormat, filters, os.Stdout); err != nil {
			return printer.Error("failed to list cache", err.Error())
		}
		return nil
	})
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, store cache.Store) error {
		err := inspect.ShowArtifact(ctx, store, args[0], os.Stdout)
		if inspect.IsNotFound(err) {
			return printer.Error(
				"artifact not found",
				err.Error(),
				"Run 'semcall cache list' to see cached fingerprints",
			)
		}
		if err != nil {
			return printer.Error("failed to show artifact", err.Error())
		}
		return nil
	})
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, store cache.Store) error {
		if len(args) == 1 {
			a, err := inspect.ResolveRef(ctx, store, args[0])
			if inspect.IsNotFound(err) {
				return printer.Error(
					"artifact not found",
					err.Error(),
					"Run 'semcall cache list' to see cached fingerprints",
				)
			}
			if err != nil {
				return printer.Error("failed to resolve fingerprint", err.Error())
			}
			if err := store.Delete(ctx, a.Fingerprint); err != nil {
				return printer.Error("failed to evict artifact", err.Error())
			}
			printer.Success("evicted %s\n", a.Fingerprint.Short())
			return nil
		}

		if !cacheClearYes {
			return printer.Error(
				"refusing to clear the whole cache",
				"Clearing evicts every compiled artifact; all call sites recompile on next use.",
				"Re-run with --yes to confirm",
			)
		}
		if err := store.Clear(ctx); err != nil {
			return printer.Error("failed to clear cache", err.Error())
		}
		printer.Success("cache cleared\n")
		return nil
	})
}
