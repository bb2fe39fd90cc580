// Package engine parses engine command flags and starts the HTTP service
// hosting one game instance.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/louisbranch/broadside/internal/battleship/domain"
	gameengine "github.com/louisbranch/broadside/internal/battleship/engine"
	entrypoint "github.com/louisbranch/broadside/internal/platform/cmd"
	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
	"github.com/louisbranch/broadside/internal/platform/timeouts"
	"github.com/louisbranch/broadside/internal/server"
	"github.com/louisbranch/broadside/internal/storage/sqlite"
	"github.com/louisbranch/broadside/internal/token"
)

// Config holds engine command configuration.
type Config struct {
	Port     int    `env:"BROADSIDE_ENGINE_PORT" envDefault:"8080"`
	Addr     string `env:"BROADSIDE_ENGINE_ADDR"`
	DBPath   string `env:"BROADSIDE_ENGINE_DB" envDefault:"broadside.db"`
	GamePath string `env:"BROADSIDE_ENGINE_GAME" envDefault:"game.json"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The engine server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The engine server listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the sqlite database file")
	fs.StringVar(&cfg.GamePath, "game", cfg.GamePath, "Path to the game setup file")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// gameFile is the on-disk game setup: instantiation parameters plus optional
// opening balances for the demo ledger. When Balances is empty each player
// opens with exactly their stake.
type gameFile struct {
	gameengine.InstantiateParams
	Balances map[domain.Address]uint64 `json:"balances,omitempty"`
}

func loadGameFile(path string) (gameFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return gameFile{}, fmt.Errorf("read game file: %w", err)
	}
	var file gameFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return gameFile{}, fmt.Errorf("parse game file %s: %w", path, err)
	}
	return file, nil
}

func (f gameFile) openingBalances() map[domain.Address]uint64 {
	if len(f.Balances) > 0 {
		return f.Balances
	}
	balances := make(map[domain.Address]uint64, len(f.Players))
	for _, p := range f.Players {
		balances[p.Address] = p.Stake
	}
	return balances
}

// Run starts the engine HTTP service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEngine, func(ctx context.Context) error {
		file, err := loadGameFile(cfg.GamePath)
		if err != nil {
			return err
		}

		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ledger := token.NewInMemoryLedger(file.openingBalances())
		service := gameengine.New(store, ledger)

		// Instantiate once; restarts resume the stored game.
		if _, err := service.GameConfig(ctx); err != nil {
			if !apperrors.Is(err, apperrors.CodeNotFound) {
				return err
			}
			if err := service.Instantiate(ctx, file.InstantiateParams); err != nil {
				return err
			}
			log.Printf("game instantiated: %d ships, stake %d", file.Ships, file.Players[0].Stake)
		} else {
			log.Printf("resuming stored game from %s", cfg.DBPath)
		}

		addr := cfg.Addr
		if addr == "" {
			addr = fmt.Sprintf(":%d", cfg.Port)
		}
		return serve(ctx, addr, server.New(service).Handler())
	})
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
