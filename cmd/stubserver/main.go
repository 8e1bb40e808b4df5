// Package main starts the stub translation API server used for offline
// development and integration testing.
package main

import (
	"fmt"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/lingopocket/lingopocket/internal/config"
	"github.com/lingopocket/lingopocket/internal/logger"
	"github.com/lingopocket/lingopocket/internal/stubapi"
)

var (
	version   string
	buildDate string
)

func main() {
	options := config.Parse()

	fmt.Printf("Build version: %s\n", orDefault(version, "N/A"))
	fmt.Printf("Build date: %s\n", orDefault(buildDate, "N/A"))

	lg := logger.New()
	if err := lg.Init(options.LogLevel); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = lg.Log.Sync() }()
	zapLogger := lg.Log

	if options.APIKey == "" {
		zapLogger.Fatal("stub server needs -key so clients have a credential to present")
	}

	router := stubapi.NewRouter(options.APIKey, zapLogger)

	zapLogger.Info("starting stub API server", zap.String("addr", options.Addr))
	if err := http.ListenAndServe(options.Addr, router); err != nil {
		zapLogger.Fatal("failed to start server", zap.Error(err))
	}
}

// orDefault returns x if it is non-empty, otherwise def.
// Same behavior as cmp.Or (Go 1.22+), kept local for Go 1.21 compatibility.
func orDefault(x, def string) string {
	if x != "" {
		return x
	}
	return def
}
