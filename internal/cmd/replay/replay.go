// Package replay parses replay command flags and launches the MCP runtime.
package replay

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/louisbranch/dugout/internal/platform/config"
	"github.com/louisbranch/dugout/internal/platform/otel"
	"github.com/louisbranch/dugout/internal/platform/timeouts"
	replaymcp "github.com/louisbranch/dugout/internal/services/replay/api/mcp"
	"github.com/louisbranch/dugout/internal/services/replay/app"
	"github.com/louisbranch/dugout/internal/services/replay/commentary"
	"github.com/louisbranch/dugout/internal/services/replay/players"
	"github.com/louisbranch/dugout/internal/services/replay/storage/sqlite"
	"github.com/louisbranch/dugout/internal/services/replay/telemetry"
)

// Config holds replay command configuration.
type Config struct {
	DBPath      string `env:"REPLAY_DB_PATH" envDefault:"data/replay.db"`
	RedisAddr   string `env:"REPLAY_REDIS_ADDR"`
	OpenAIKey   string `env:"REPLAY_OPENAI_API_KEY"`
	OpenAIModel string `env:"REPLAY_OPENAI_MODEL"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The replay SQLite database path")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Optional Redis address for the player name cache")
	fs.StringVar(&cfg.OpenAIKey, "openai-api-key", cfg.OpenAIKey, "Optional OpenAI API key enabling play commentary")
	fs.StringVar(&cfg.OpenAIModel, "openai-model", cfg.OpenAIModel, "OpenAI model for play commentary")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run wires the replay service and serves MCP over stdio until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "replay")
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close storage: %v", err)
		}
	}()

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() {
			if err := cache.Close(); err != nil {
				log.Printf("close name cache: %v", err)
			}
		}()
	}

	var generator commentary.Generator = commentary.Noop{}
	if cfg.OpenAIKey != "" {
		generator, err = commentary.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel)
		if err != nil {
			return fmt.Errorf("setup commentary: %w", err)
		}
	}

	orchestrator, err := app.New(app.Config{
		Store:      store,
		Names:      players.NewResolver(store, cache),
		Commentary: generator,
		Telemetry:  telemetry.NewEmitter(store),
	})
	if err != nil {
		return fmt.Errorf("setup orchestrator: %w", err)
	}

	server, err := replaymcp.NewServer(orchestrator)
	if err != nil {
		return fmt.Errorf("setup mcp server: %w", err)
	}
	log.Printf("serving replay tools over stdio (db=%s)", cfg.DBPath)
	return server.Run(ctx)
}
