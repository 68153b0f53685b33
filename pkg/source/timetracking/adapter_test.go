package timetracking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/consultia/bonusx/pkg/identity"
	"github.com/consultia/bonusx/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAdapter(baseURL string) *Adapter {
	client := source.NewClient(source.Opts{
		Source:  SourceName,
		BaseURL: baseURL,
	})
	return NewWithClient(client, "team123", zap.NewNop(), identity.New(identity.DefaultConfig()))
}

func TestFetchFollowsCursor(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/team/team123/time_entries", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("start_date"))
		assert.NotEmpty(t, r.URL.Query().Get("end_date"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			_, _ = w.Write([]byte(`{"data":[{"id":"1","time":"3600000","start":"1755561600000"}],"next_cursor":"abc"}`))
			return
		}
		assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
		_, _ = w.Write([]byte(`{"data":[{"id":"2","time":"1800000","start":"1755561600000"}]}`))
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	entries, err := adapter.Fetch(context.Background(), source.LastDays(7))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].ID)
	assert.Equal(t, "2", entries[1].ID)
}

func TestFetchBoundsPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Always hands back another cursor.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[],"next_cursor":"again"}`))
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	adapter.maxPages = 5

	_, err := adapter.Fetch(context.Background(), source.LastDays(7))
	var pagErr *source.PaginationError
	require.ErrorAs(t, err, &pagErr)
	assert.Equal(t, 5, pagErr.MaxPages)
}

func TestNormalize(t *testing.T) {
	adapter := newTestAdapter("http://unused")

	// Tuesday 2025-08-19 00:00 UTC.
	start := time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC)

	entry := RawEntry{ID: "4385723", Time: "5400000", Start: millis(start)}
	entry.User.Email = "anthony@company.com"
	entry.Task.Name = "Atlantic City kickoff"

	rows := adapter.Normalize([]RawEntry{entry})
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "CLK_4385723", row.ReportID)
	assert.Equal(t, "CONS002", row.ConsultantID)
	assert.Equal(t, "PROJ001", row.ProjectID)
	assert.InDelta(t, 1.5, row.LoggedHours, 1e-9)
	assert.Equal(t, time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC), row.WeekStart)
	assert.Equal(t, time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC), row.WeekEnd)
	assert.Equal(t, uint8(3), row.Quarter)
	assert.Equal(t, uint16(2025), row.Year)
	assert.Equal(t, uint8(34), row.WeekNumber)
}

func TestNormalizeKeepsZeroDurationAndUnknowns(t *testing.T) {
	adapter := newTestAdapter("http://unused")

	entry := RawEntry{ID: "99", Time: "0", Start: millis(time.Date(2025, 2, 3, 12, 0, 0, 0, time.UTC))}
	entry.User.Email = "stranger@elsewhere.com"
	entry.Task.Name = "Internal all-hands"

	rows := adapter.Normalize([]RawEntry{entry})
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].LoggedHours)
	assert.Equal(t, identity.UnknownConsultant, rows[0].ConsultantID)
	assert.Equal(t, identity.UnknownProject, rows[0].ProjectID)
}

func TestNormalizeUnparseableDuration(t *testing.T) {
	adapter := newTestAdapter("http://unused")

	entry := RawEntry{ID: "7", Time: "not-a-number", Start: millis(time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC))}
	entry.User.Email = "julian@company.com"
	entry.Task.Name = "Etafashion sprint"

	rows := adapter.Normalize([]RawEntry{entry})
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].LoggedHours)
	assert.Equal(t, "CONS003", rows[0].ConsultantID)
	assert.Equal(t, "PROJ002", rows[0].ProjectID)
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
