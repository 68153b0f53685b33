// Package sync runs the scheduled source-to-warehouse pipeline: weekly time
// tracking, monthly surveys, quarterly CRM deals, plus an authenticated HTTP
// trigger API.
package sync

import (
	"context"
	"net/http"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/consultia/bonusx/app/sync/controller"
	"github.com/consultia/bonusx/app/sync/types"
	"github.com/consultia/bonusx/pkg/db/warehouse"
	"github.com/consultia/bonusx/pkg/identity"
	"github.com/consultia/bonusx/pkg/logging"
	"github.com/consultia/bonusx/pkg/redis"
	"github.com/consultia/bonusx/pkg/source/crm"
	"github.com/consultia/bonusx/pkg/source/survey"
	"github.com/consultia/bonusx/pkg/source/timetracking"
	"github.com/consultia/bonusx/pkg/utils"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Default cron cadences, seconds field included. Each source keeps the
// cadence its upstream data changes at.
const (
	defaultTimeTrackingSpec = "0 0 6 * * MON" // weekly, Monday 06:00
	defaultSurveySpec       = "0 0 7 1 * *"   // monthly, 1st 07:00
	defaultCRMSpec          = "0 0 8 1 */3 *" // quarterly, 1st 08:00
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	db, err := warehouse.New(ctx, logger, "sync")
	if err != nil {
		logger.Fatal("Unable to initialize warehouse", zap.Error(err))
	}

	// Redis is optional: without it there are no run events and no
	// cross-process replace locks, but syncs still work.
	var redisClient *redis.Client
	if utils.Env("REDIS_ENABLED", "true") == "true" {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - run events and replace locks disabled",
				zap.Error(err))
			redisClient = nil
		}
	}

	mapper := identity.New(identity.DefaultConfig())

	app := &types.App{
		DB:           db,
		RedisClient:  redisClient,
		Mapper:       mapper,
		TimeTracking: timetracking.New(logger, mapper),
		CRM:          crm.New(logger, mapper),
		Survey:       survey.New(logger, mapper),
		Pool:         pond.NewPool(utils.EnvInt("SYNC_WORKERS", 3)),
		Running:      xsync.NewMap[string, time.Time](),
		Logger:       logger,
	}

	if err := SetupScheduler(ctx, app); err != nil {
		logger.Fatal("Unable to set up scheduler", zap.Error(err))
	}
	if err := SetupServer(app); err != nil {
		logger.Fatal("Unable to set up server", zap.Error(err))
	}

	return app
}

// SetupScheduler registers one cron entry per source, each at its own
// cadence. Specs are env-overridable; runs are bounded by SYNC_RUN_TIMEOUT.
func SetupScheduler(ctx context.Context, app *types.App) error {
	app.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	specs := map[string]string{
		timetracking.SourceName: utils.Env("TIMETRACKING_CRON", defaultTimeTrackingSpec),
		survey.SourceName:       utils.Env("SURVEY_CRON", defaultSurveySpec),
		crm.SourceName:          utils.Env("CRM_CRON", defaultCRMSpec),
	}
	timeout := utils.EnvDuration("SYNC_RUN_TIMEOUT", 10*time.Minute)

	for name, spec := range specs {
		if _, err := app.Cron.AddFunc(spec, func() {
			// keep each run bounded
			rctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if _, err := app.SyncSource(rctx, name); err != nil {
				app.Logger.Error("Scheduled sync failed",
					zap.String("source", name),
					zap.Error(err))
			}
		}); err != nil {
			return err
		}
		app.Logger.Info("Scheduled source sync",
			zap.String("source", name),
			zap.String("spec", spec))
	}

	app.Cron.Start()
	return nil
}

// SetupServer builds the trigger API server.
func SetupServer(app *types.App) error {
	ctler := controller.NewController(app)
	router, err := ctler.NewRouter()
	if err != nil {
		return err
	}

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3002")

	app.Server = &http.Server{Addr: addr, Handler: controller.WithCORS(router)}
	app.Logger.Info("Starting server", zap.String("addr", addr))

	return nil
}
