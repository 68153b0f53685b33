package types

import (
	"context"
	"net/http"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/consultia/bonusx/pkg/db/warehouse"
	"github.com/consultia/bonusx/pkg/identity"
	"github.com/consultia/bonusx/pkg/redis"
	"github.com/consultia/bonusx/pkg/source/crm"
	"github.com/consultia/bonusx/pkg/source/survey"
	"github.com/consultia/bonusx/pkg/source/timetracking"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// App wires the sync service: source adapters, the warehouse writer, the cron
// scheduler, and the trigger API.
type App struct {
	DB          *warehouse.DB
	RedisClient *redis.Client
	Mapper      *identity.Mapper

	TimeTracking *timetracking.Adapter
	CRM          *crm.Adapter
	Survey       *survey.Adapter

	// Cron triggers the per-source cadences (weekly, monthly, quarterly).
	Cron *cron.Cron

	// Pool runs one task per source when several sync together.
	Pool pond.Pool

	// Running tracks in-flight sources so the same source never syncs twice
	// concurrently, regardless of trigger (cron or API).
	Running *xsync.Map[string, time.Time]

	Logger *zap.Logger

	// Server is the HTTP server that serves the trigger API.
	Server *http.Server
}

// User is an API user entry for the trigger API's session auth.
type User struct {
	Username string `json:"username"`
	Hash     []byte `json:"hash"`
	Role     string `json:"role"`
}

// Start starts the application and blocks until the context is cancelled.
func (a *App) Start(ctx context.Context) {
	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
	a.Pool.StopAndWait()

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}

	_ = a.Server.Shutdown(shutdownCtx)
	a.Logger.Info("Sync service stopped")
}
