package main

import (
	"flag"
	"log"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/seanlee928/mapmatchingkit/internal/hmmapi"
	"github.com/seanlee928/mapmatchingkit/internal/hmmconfig"
	"github.com/seanlee928/mapmatchingkit/pkg/hmmmcp"
)

func main() {
	configPath := flag.String("config", "", "Path to app configuration file")
	listenAddr := flag.String("listen", "", "Override the configured listen address")
	flag.Parse()

	cfg, err := hmmconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *listenAddr != "" {
		cfg.App.ListenAddr = *listenAddr
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level.SetLevel(level)
	logger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("listen_addr", cfg.App.ListenAddr),
		zap.Int("kappa_steps", cfg.HMM.KappaSteps),
		zap.Int("tau_seconds", cfg.HMM.TauSeconds),
	)

	controller := hmmapi.NewDecodeController(logger)
	router := hmmapi.SetupRouter(controller, logger)
	mcpServer := hmmmcp.New(logger)

	mux := http.NewServeMux()
	mcpServer.SetupHTTPRoutes(mux)
	mux.Handle("/", router)

	logger.Info("starting server", zap.String("listen_addr", cfg.App.ListenAddr))
	if err := http.ListenAndServe(cfg.App.ListenAddr, mux); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
