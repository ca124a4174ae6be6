package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/tuannm99/bongodb/internal/catalog"
	"github.com/tuannm99/bongodb/internal/config"
	"github.com/tuannm99/bongodb/internal/lock"
	"github.com/tuannm99/bongodb/internal/sql/executor"
	"github.com/tuannm99/bongodb/internal/sql/parser"
	"github.com/tuannm99/bongodb/server/bongowire"
)

func main() {
	var (
		cfgPath   = flag.String("config", "", "path to yaml config file")
		listen    = flag.String("listen", "", "TCP endpoint to bind (overrides config)")
		dataDir   = flag.String("data-dir", "", "database root directory (overrides config)")
		createDB  = flag.Bool("create-db", false, "initialize a fresh catalog when data-dir holds none")
		autoFlush = flag.Bool("auto-flush", false, "implicit FLUSH after every non-SELECT statement")
		debug     = flag.Bool("debug", false, "log at debug level")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("load config failed", "err", err)
		os.Exit(1)
	}

	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.ListenAddr = *listen
		case "data-dir":
			cfg.DataDir = *dataDir
		case "create-db":
			cfg.CreateDB = *createDB
		case "auto-flush":
			cfg.AutoFlush = *autoFlush
		}
	})

	cat, err := catalog.OpenOrCreate(cfg.DataDir, cfg.CreateDB)
	if err != nil {
		slog.Error("open catalog failed", "dir", cfg.DataDir, "err", err)
		os.Exit(1)
	}
	slog.Info("catalog open", "dir", cfg.DataDir, "tables", len(cat.TableNames()))

	exec := executor.New(cat, lock.NewController(), cfg.AutoFlush)

	if err := bongowire.Run(bongowire.ServerConfig{Addr: cfg.ListenAddr}, exec); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}

	// Shutdown: persist whatever the last FLUSH missed.
	if _, err := exec.Execute(&parser.FlushStmt{}); err != nil {
		slog.Error("final flush failed", "err", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}
