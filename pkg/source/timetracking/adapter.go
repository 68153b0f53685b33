// Package timetracking pulls logged time entries from the time-tracking SaaS
// and normalizes them into weekly consultant report rows.
package timetracking

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/consultia/bonusx/pkg/db/models/report"
	"github.com/consultia/bonusx/pkg/identity"
	"github.com/consultia/bonusx/pkg/period"
	"github.com/consultia/bonusx/pkg/source"
	"github.com/consultia/bonusx/pkg/utils"
	"go.uber.org/zap"
)

const (
	// SourceName identifies this adapter in errors, logs, and run events.
	SourceName = "timetracking"

	reportIDPrefix = "CLK_"
	msPerHour      = 3_600_000
)

// RawEntry is one time entry as the source API returns it. Durations and
// timestamps arrive as epoch-millisecond strings.
type RawEntry struct {
	ID    string `json:"id"`
	Time  string `json:"time"`
	Start string `json:"start"`
	User  struct {
		Email string `json:"email"`
	} `json:"user"`
	Task struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"task"`
}

type entriesPage struct {
	Data       []RawEntry `json:"data"`
	NextCursor string     `json:"next_cursor"`
}

// Adapter fetches and normalizes time entries for one team.
type Adapter struct {
	client   *source.Client
	teamID   string
	mapper   *identity.Mapper
	logger   *zap.Logger
	maxPages int
}

// New builds the adapter from TIMETRACKING_* environment configuration.
func New(logger *zap.Logger, mapper *identity.Mapper) *Adapter {
	client := source.NewClient(source.Opts{
		Source:  SourceName,
		BaseURL: utils.Env("TIMETRACKING_BASE_URL", "https://api.clickup.com/api/v2"),
		Headers: map[string]string{
			"Authorization": utils.Env("TIMETRACKING_API_TOKEN", ""),
			"Content-Type":  "application/json",
		},
		RPS:   utils.EnvInt("TIMETRACKING_RPS", 10),
		Burst: utils.EnvInt("TIMETRACKING_BURST", 20),
	})
	return NewWithClient(client, utils.Env("TIMETRACKING_TEAM_ID", ""), logger, mapper)
}

// NewWithClient builds the adapter over an existing source client. Used by
// tests and by callers with non-default transport settings.
func NewWithClient(client *source.Client, teamID string, logger *zap.Logger, mapper *identity.Mapper) *Adapter {
	return &Adapter{
		client:   client,
		teamID:   teamID,
		mapper:   mapper,
		logger:   logger.With(zap.String("source", SourceName)),
		maxPages: source.DefaultMaxPages,
	}
}

// Name returns the adapter's source name.
func (a *Adapter) Name() string { return SourceName }

// Fetch pulls every time entry in the window, following the response cursor
// until the source reports no further pages.
func (a *Adapter) Fetch(ctx context.Context, w source.Window) ([]RawEntry, error) {
	path := fmt.Sprintf("/team/%s/time_entries", a.teamID)

	var entries []RawEntry
	cursor := ""
	for page := 0; ; page++ {
		if page >= a.maxPages {
			return nil, &source.PaginationError{Source: SourceName, MaxPages: a.maxPages}
		}

		query := url.Values{
			"start_date":             []string{strconv.FormatInt(w.Start.UnixMilli(), 10)},
			"end_date":               []string{strconv.FormatInt(w.End.UnixMilli(), 10)},
			"include_task_tags":      []string{"true"},
			"include_location_names": []string{"true"},
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var resp entriesPage
		if err := a.client.GetJSON(ctx, path, query, &resp); err != nil {
			return nil, err
		}

		entries = append(entries, resp.Data...)
		if resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	a.logger.Debug("Fetched time entries", zap.Int("entries", len(entries)))
	return entries, nil
}

// Normalize converts raw entries into warehouse rows. Every entry yields a
// row: zero-duration entries are kept, unknown emails and tasks map to the
// identity sentinels, and unparseable numerics normalize to zero with a
// warning rather than dropping the entry.
func (a *Adapter) Normalize(entries []RawEntry) []*report.TimeEntryRow {
	rows := make([]*report.TimeEntryRow, 0, len(entries))
	for _, entry := range entries {
		durationMs := a.parseMillis(entry.ID, "time", entry.Time)
		startMs := a.parseMillis(entry.ID, "start", entry.Start)
		start := time.UnixMilli(startMs).UTC()

		weekStart, weekEnd := period.WeekWindowOf(start)
		key := period.KeyOf(start)

		rows = append(rows, &report.TimeEntryRow{
			ReportID:     reportIDPrefix + entry.ID,
			ConsultantID: a.mapper.ResolveConsultantEmail(entry.User.Email),
			ProjectID:    a.mapper.ResolveProject(entry.Task.Name),
			WeekStart:    weekStart,
			WeekEnd:      weekEnd,
			LoggedHours:  float64(durationMs) / msPerHour,
			Quarter:      uint8(key.Quarter),
			Year:         uint16(key.Year),
			WeekNumber:   uint8(period.WeekNumberOf(start)),
		})
	}
	return rows
}

func (a *Adapter) parseMillis(entryID, field, value string) int64 {
	if value == "" {
		return 0
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		a.logger.Warn("Unparseable millisecond field",
			zap.String("entry_id", entryID),
			zap.String("field", field),
			zap.String("value", value))
		return 0
	}
	return ms
}
