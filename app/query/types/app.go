package types

import (
	"context"
	"net/http"
	"time"

	"github.com/consultia/bonusx/pkg/bonus"
	"github.com/consultia/bonusx/pkg/db/warehouse"
	"github.com/consultia/bonusx/pkg/identity"
	"github.com/consultia/bonusx/pkg/redis"
	"go.uber.org/zap"
)

type App struct {
	DB         *warehouse.DB
	Aggregator *bonus.Aggregator
	Mapper     *identity.Mapper

	// RedisClient relays sync-run events to websocket clients. Optional.
	RedisClient *redis.Client

	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}

	_ = a.Server.Shutdown(shutdownCtx)
	a.Logger.Info("Advisory service stopped")
}
