// Package query serves the advisory API: bonus lookups, breakdowns,
// recommendations, the consultant directory, and a websocket stream of sync
// runs.
package query

import (
	"context"

	"github.com/consultia/bonusx/app/query/types"
	"github.com/consultia/bonusx/pkg/bonus"
	"github.com/consultia/bonusx/pkg/db/warehouse"
	"github.com/consultia/bonusx/pkg/identity"
	"github.com/consultia/bonusx/pkg/logging"
	"github.com/consultia/bonusx/pkg/redis"
	"github.com/consultia/bonusx/pkg/utils"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	db, err := warehouse.New(ctx, logger, "query")
	if err != nil {
		logger.Fatal("Unable to initialize warehouse", zap.Error(err))
	}

	// Initialize Redis client for real-time WebSocket events (optional)
	var redisClient *redis.Client
	if utils.Env("REDIS_ENABLED", "false") == "true" {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - WebSocket real-time events will be disabled",
				zap.Error(err))
			redisClient = nil
		} else {
			logger.Info("Redis client initialized for WebSocket real-time events")
		}
	} else {
		logger.Info("Redis disabled - WebSocket real-time events will not be available")
	}

	return &types.App{
		DB:          db,
		Aggregator:  bonus.New(db, logger),
		Mapper:      identity.New(identity.DefaultConfig()),
		RedisClient: redisClient,
		Logger:      logger,
	}
}
