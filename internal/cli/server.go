package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/lpando/marketd/internal/config"
	"github.com/lpando/marketd/internal/core/engine"
	"github.com/lpando/marketd/internal/registry"
	"github.com/lpando/marketd/internal/server/api/jsonrpc"
	"github.com/lpando/marketd/internal/server/ws"
	"github.com/lpando/marketd/internal/storage/database"
	_ "github.com/lpando/marketd/internal/storage/database/bbolt"
	_ "github.com/lpando/marketd/internal/storage/database/leveldb"
	_ "github.com/lpando/marketd/internal/storage/database/pebble"
	"github.com/lpando/marketd/internal/storage/history"
	"github.com/lpando/marketd/internal/storage/statestore"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the marketplace daemon",
	Long: `Start marketd: the JSON-RPC API, the websocket event stream and
the configured storage backends. This is the default command when no
subcommand is specified.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.RunE = runServer
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting marketd",
		zap.String("version", rootCmd.Version),
		zap.String("backend", cfg.Storage.Backend),
		zap.String("listen", cfg.Server.ListenAddr))

	// State view
	var view engine.StateView
	var db database.DB
	if cfg.Storage.Backend == "memory" {
		view = statestore.NewMemoryView()
	} else {
		db, err = database.Open(cfg.Storage.Backend, cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to open state database: %w", err)
		}
		defer db.Close()

		view, err = statestore.NewKVView(db, cfg.Storage.Compression, cfg.Storage.CacheSize)
		if err != nil {
			return err
		}
	}

	// Engine
	reg := registry.NewInMemory()
	eng, err := engine.New(view, reg, engine.SystemClock{}, engine.Config{
		Operator:    cfg.Market.Operator,
		Overpayment: engine.OverpaymentPolicy(cfg.Market.OverpaymentPolicy),
	})
	if err != nil {
		return err
	}

	// Trade history
	var hist *history.Store
	if cfg.History.Enabled {
		hist, err = history.Open(cmd.Context(), cfg.History.Driver, cfg.History.DSN, log)
		if err != nil {
			return fmt.Errorf("failed to open trade history: %w", err)
		}
		defer hist.Close()
		eng.AddSink(history.NewSink(hist, engine.SystemClock{}, log))
		log.Info("trade history enabled", zap.String("driver", cfg.History.Driver))
	}

	// HTTP surface
	mux := http.NewServeMux()
	rpcServer := jsonrpc.NewServer(jsonrpc.NewHandler(eng, reg, hist), log)
	mux.Handle("/", rpcServer)
	mux.Handle("/rpc", rpcServer)

	var hub *ws.Hub
	if cfg.Server.EnableWebsocket {
		hub = ws.NewHub(log)
		eng.AddSink(hub)
		mux.Handle("/ws", hub)
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"marketd"}`))
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("serving", zap.String("addr", cfg.Server.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if hub != nil {
			hub.Close()
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
