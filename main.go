package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"sjsage522/dealerworker/config"
	"sjsage522/dealerworker/internal"
	"sjsage522/dealerworker/internal/translator"
	"sjsage522/dealerworker/logger"
	"sjsage522/dealerworker/services/cache"
	"sjsage522/dealerworker/services/proxy"
	"sjsage522/dealerworker/services/publisher"
)

const redisStreamMaxLength = 100000

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()

	// Cancel the crawl between requests on Ctrl-C; the progress file stays valid
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Services holds all the initialized services
type Services struct {
	internal.Dependencies
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			logger.Warn("Failed to close publisher: %v", err)
		}
	}
}

// initializeServices initializes the optional backends. Memcache and Redis
// are used only when configured and reachable.
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	services.Cache = cache.NewMemoryCache()
	if cfg.MemcacheAddr != "" {
		memcache := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := memcache.Ping(); err != nil {
			logger.ForCache().Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unavailable, using in-process cache")
		} else {
			services.Cache = memcache
			logger.ForCache().Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, redisStreamMaxLength)
		if err := redisPublisher.Ping(); err != nil {
			redisPublisher.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		services.Publisher = redisPublisher
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)", cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	proxies, err := proxy.NewStaticManager(cfg.ProxyURLs)
	if err != nil {
		services.Cleanup()
		return nil, err
	}
	services.Proxy = proxies
	if proxies.Len() > 0 {
		logger.Info("Using %d proxies", proxies.Len())
	}

	var tr *translator.LocationTranslator
	if cfg.TranslatorDir != "" {
		tr, err = translator.NewFromDir(cfg.TranslatorDir)
	} else {
		tr, err = translator.New()
	}
	if err != nil {
		services.Cleanup()
		return nil, fmt.Errorf("load location tables: %w", err)
	}
	services.Translator = tr

	return services, nil
}
