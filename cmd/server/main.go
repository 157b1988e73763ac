package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxeldisplay.ai/internal/config"
	"voxeldisplay.ai/internal/persistence/displaydb"
	persistlog "voxeldisplay.ai/internal/persistence/log"
	"voxeldisplay.ai/internal/persistence/snapshot"
	"voxeldisplay.ai/internal/sim/rotation"
	"voxeldisplay.ai/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to display.yaml (optional)")
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides config)")
		snapPath   = flag.String("snapshot", "", "snapshot to restore into an empty db (default: latest in data dir)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if v := strings.TrimSpace(*addr); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(*dataDir); v != "" {
		cfg.DataDir = v
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	storeDir := filepath.Join(cfg.DataDir, cfg.StoreID)
	snapDir := filepath.Join(storeDir, "snapshots")
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(storeDir, "displays.db")
	}

	store, err := displaydb.Open(dbPath)
	if err != nil {
		logger.Fatalf("open display db: %v", err)
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	toRestore := strings.TrimSpace(*snapPath)
	if toRestore == "" && cfg.Snapshot.RestoreLatest {
		if toRestore, err = snapshot.Latest(snapDir); err != nil {
			logger.Fatalf("find snapshot: %v", err)
		}
	}
	if toRestore != "" {
		n, err := restoreSnapshot(ctx, store, toRestore, cfg.StoreID)
		if err != nil {
			logger.Fatalf("restore %s: %v", toRestore, err)
		}
		if n > 0 {
			logger.Printf("restored %d displays from %s", n, toRestore)
		}
	}

	var audit ws.Auditor
	if cfg.Audit.Enabled {
		al := persistlog.NewAuditLog(filepath.Join(storeDir, "audit"), persistlog.Options{
			Period: cfg.Audit.Period(),
			Retain: cfg.Audit.Retain,
		})
		defer al.Close()
		audit = al
	}

	srv := ws.NewServer(store, audit, logger, ws.Options{
		MaxQueue:     cfg.WS.MaxQueue,
		ReadTimeout:  time.Duration(cfg.WS.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WS.WriteTimeoutSec) * time.Second,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/rotations", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"rotations": rotation.All(),
			"default":   cfg.DefaultRotation,
		})
	})
	mux.HandleFunc("/v1/ws", srv.Handler())

	httpSrv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		logger.Printf("listening on %s (store=%s db=%s)", cfg.Addr, cfg.StoreID, dbPath)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = httpSrv.Shutdown(shutdownCtx)

	if cfg.Snapshot.OnShutdown {
		path, err := writeSnapshot(shutdownCtx, store, snapDir, cfg.StoreID, uint64(time.Now().UnixMilli()))
		if err != nil {
			logger.Printf("snapshot write: %v", err)
		} else {
			logger.Printf("snapshot written: %s", path)
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
