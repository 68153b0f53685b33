package types

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/consultia/bonusx/pkg/db/models/report"
	"github.com/consultia/bonusx/pkg/redis"
	"github.com/consultia/bonusx/pkg/source"
	"github.com/consultia/bonusx/pkg/source/crm"
	"github.com/consultia/bonusx/pkg/source/survey"
	"github.com/consultia/bonusx/pkg/source/timetracking"
	"github.com/consultia/bonusx/pkg/utils"
	"github.com/go-jose/go-jose/v4/json"
	"go.uber.org/zap"
)

// ErrSyncInProgress is returned when the source is already syncing or its
// table's replace lock is held by another run.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrUnknownSource is returned for a source name no adapter claims.
var ErrUnknownSource = errors.New("unknown source")

// Sources lists the syncable source names in trigger order.
func Sources() []string {
	return []string{timetracking.SourceName, crm.SourceName, survey.SourceName}
}

// SyncSource runs one full sync for a source: fetch every page, normalize,
// then a single warehouse write. All-or-nothing: any fetch or normalize
// failure aborts before anything is written. A run event is published either
// way.
func (a *App) SyncSource(ctx context.Context, name string) (*redis.RunEvent, error) {
	if _, running := a.Running.LoadOrStore(name, time.Now().UTC()); running {
		a.Logger.Warn("Source already syncing, skipping", zap.String("source", name))
		return nil, ErrSyncInProgress
	}
	defer a.Running.Delete(name)

	start := time.Now()
	event := &redis.RunEvent{Source: name}

	var err error
	switch name {
	case timetracking.SourceName:
		event.Table = report.TimeEntriesTableName
		event.Rows, err = a.syncTimeTracking(ctx)
	case crm.SourceName:
		event.Table = report.DealsTableName
		event.Rows, err = a.withReplaceLock(ctx, report.DealsTableName, a.syncCRM)
	case survey.SourceName:
		event.Table = report.SatisfactionTableName
		event.Rows, err = a.withReplaceLock(ctx, report.SatisfactionTableName, func(ctx context.Context) (int, error) {
			rows, skipped, err := a.syncSurvey(ctx)
			event.Skipped = skipped
			return rows, err
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	event.Duration = time.Since(start).Seconds()
	if err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			return nil, err
		}
		event.Error = err.Error()
		a.publish(ctx, event)
		return event, err
	}

	a.Logger.Info("Sync completed",
		zap.String("source", name),
		zap.String("table", event.Table),
		zap.Int("rows", event.Rows),
		zap.Int("skipped", event.Skipped),
		zap.Float64("duration_seconds", event.Duration))
	a.publish(ctx, event)
	return event, nil
}

// SyncAll syncs every source, one pool task each. Sources are independent: a
// failing source is reported and the rest still run to completion.
func (a *App) SyncAll(ctx context.Context) {
	group := a.Pool.NewGroup()
	for _, name := range Sources() {
		group.Submit(func() {
			if _, err := a.SyncSource(ctx, name); err != nil && !errors.Is(err, ErrSyncInProgress) {
				a.Logger.Error("Sync failed",
					zap.String("source", name),
					zap.Error(err))
			}
		})
	}
	_ = group.Wait()
}

// withReplaceLock guards a replace-mode sync with the table's redis lock so
// two runs never swap the same table concurrently. A held lock skips the run.
func (a *App) withReplaceLock(ctx context.Context, table string, sync func(context.Context) (int, error)) (int, error) {
	if a.RedisClient != nil {
		ttl := utils.EnvDuration("SYNC_LOCK_TTL", redis.DefaultLockTTL)
		acquired, err := a.RedisClient.AcquireSyncLock(ctx, table, ttl)
		if err != nil {
			return 0, err
		}
		if !acquired {
			a.Logger.Warn("Replace lock held, skipping run", zap.String("table", table))
			return 0, ErrSyncInProgress
		}
		defer a.RedisClient.ReleaseSyncLock(ctx, table)
	}
	return sync(ctx)
}

func (a *App) syncTimeTracking(ctx context.Context) (int, error) {
	window := source.LastDays(utils.EnvInt("TIMETRACKING_WINDOW_DAYS", 7))
	entries, err := a.TimeTracking.Fetch(ctx, window)
	if err != nil {
		return 0, err
	}
	return a.DB.WriteTimeEntries(ctx, a.TimeTracking.Normalize(entries))
}

func (a *App) syncCRM(ctx context.Context) (int, error) {
	window := source.LastDays(utils.EnvInt("CRM_WINDOW_DAYS", 92))
	deals, err := a.CRM.Fetch(ctx, window)
	if err != nil {
		return 0, err
	}
	return a.DB.WriteDeals(ctx, a.CRM.Normalize(deals))
}

func (a *App) syncSurvey(ctx context.Context) (int, int, error) {
	idx, err := a.Survey.FetchForm(ctx)
	if err != nil {
		return 0, 0, err
	}
	responses, err := a.Survey.FetchResponses(ctx)
	if err != nil {
		return 0, 0, err
	}
	rows, skipped := a.Survey.Normalize(responses, idx)
	written, err := a.DB.WriteSatisfaction(ctx, rows)
	return written, skipped, err
}

// publish sends the run event to the sync:runs channel. Best-effort.
func (a *App) publish(ctx context.Context, event *redis.RunEvent) {
	if a.RedisClient == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		a.Logger.Warn("Failed to encode run event", zap.Error(err))
		return
	}
	a.RedisClient.Publish(ctx, redis.RunsChannel, payload)
}
