package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/declkit/declkit/internal/cache"
	"github.com/declkit/declkit/internal/cli/config"
	"github.com/declkit/declkit/internal/introspect"
)

var (
	serveAddr         string
	serveSnapshotPath string
	serveCacheBackend string
	serveCacheTTL     time.Duration
	serveRedisAddr    string
	serveWatch        bool
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a snapshot over the introspection HTTP API",
		Long: `Serve a snapshot document over the introspection HTTP API.

The server exposes the read-only registry API backed by the given snapshot
file: class listings, member and metadata queries, the hierarchy, and the
raw document itself. Responses are cached in memory or Redis.

SIGHUP re-reads the snapshot file and drops cached responses, so a
freshly exported snapshot becomes visible without a restart. With
--watch the server reloads automatically whenever the file changes.`,
		Example: `  # Serve the default snapshot file on the configured address
  declkit serve

  # Serve a specific snapshot on a specific address
  declkit serve --snapshot build/registry.json --addr :8080

  # Reload whenever the snapshot file is rewritten
  declkit serve --watch

  # Share the response cache between servers
  declkit serve --cache redis --redis-addr redis.internal:6379`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from declkit.yml)")
	cmd.Flags().StringVar(&serveSnapshotPath, "snapshot", "declkit.snapshot.json", "Path to the snapshot document to serve")
	cmd.Flags().StringVar(&serveCacheBackend, "cache", "", "Response cache backend: memory or redis (default from declkit.yml)")
	cmd.Flags().DurationVar(&serveCacheTTL, "cache-ttl", 0, "Response cache TTL (default from declkit.yml)")
	cmd.Flags().StringVar(&serveRedisAddr, "redis-addr", "", "Redis address for the redis backend (default from declkit.yml)")
	cmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload the snapshot when the file changes")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Flags override the config file
	addr := cfg.Server.Address()
	if serveAddr != "" {
		addr = serveAddr
	}

	backend := cfg.Cache.Backend
	if serveCacheBackend != "" {
		backend = serveCacheBackend
	}

	ttl := cfg.Cache.TTL
	if cmd.Flags().Changed("cache-ttl") {
		ttl = serveCacheTTL
	}

	redisAddr := cfg.Cache.Redis.Addr
	if serveRedisAddr != "" {
		redisAddr = serveRedisAddr
	}

	provider, err := introspect.NewFileProvider(serveSnapshotPath)
	if err != nil {
		return err
	}

	responseCache, err := buildCache(backend, ttl, redisAddr, cfg.Cache.Redis)
	if err != nil {
		return err
	}
	if closer, ok := responseCache.(io.Closer); ok {
		defer closer.Close()
	}

	logger, err := newServeLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	serverConfig := introspect.DefaultConfig(provider)
	serverConfig.Address = addr
	serverConfig.Cache = responseCache
	serverConfig.CacheTTL = ttl
	serverConfig.Logger = logger

	srv, err := introspect.New(serverConfig)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	reloadSnapshot := func() {
		if err := provider.Reload(); err != nil {
			logger.Warn("snapshot reload failed", zap.Error(err))
			return
		}
		clearCache(responseCache)
		infoColor.Fprintln(out, "Snapshot reloaded")
	}

	if serveWatch {
		watcher, err := introspect.WatchFile(serveSnapshotPath, 250*time.Millisecond, logger, reloadSnapshot)
		if err != nil {
			return fmt.Errorf("failed to watch snapshot: %w", err)
		}
		defer watcher.Close()
	}

	successColor.Fprintf(out, "Serving snapshot %s\n", serveSnapshotPath)
	infoColor.Fprintf(out, "API URL: http://%s/api/classes\n", displayAddr(addr))
	infoColor.Fprintf(out, "Cache: %s (TTL %s)\n", backend, ttl)
	if serveWatch {
		infoColor.Fprintf(out, "Watching %s for changes\n", serveSnapshotPath)
	}
	fmt.Fprintln(out)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case err := <-errCh:
			return err

		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				reloadSnapshot()
				continue
			}

			infoColor.Fprintln(out, "\nShutting down server...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := srv.Shutdown(ctx)
			cancel()
			if err != nil {
				return fmt.Errorf("shutdown failed: %w", err)
			}
			<-errCh
			infoColor.Fprintln(out, "Server stopped gracefully")
			return nil
		}
	}
}

// buildCache constructs the configured response cache backend
func buildCache(backend string, ttl time.Duration, redisAddr string, redisCfg config.RedisConfig) (cache.Cache, error) {
	common := cache.DefaultConfig()
	if ttl > 0 {
		common.DefaultTTL = ttl
	}

	switch backend {
	case "memory":
		return cache.NewMemoryCacheWithConfig(common), nil
	case "redis":
		redisCache, err := cache.NewRedisCacheWithConfig(cache.RedisConfig{
			Addr:     redisAddr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
			Config:   common,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", redisAddr, err)
		}
		return redisCache, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s (supported: memory, redis)", backend)
	}
}

// newServeLogger builds the server logger; --verbose enables debug output
func newServeLogger() (*zap.Logger, error) {
	logConfig := zap.NewDevelopmentConfig()
	if !verbose {
		logConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return logConfig.Build()
}

// clearCache drops all cached responses, best effort
func clearCache(c cache.Cache) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Clear(ctx)
}

// displayAddr rewrites a bare ":port" listen address for URLs
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
