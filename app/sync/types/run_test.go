package types

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/consultia/bonusx/pkg/db/models/report"
	"github.com/consultia/bonusx/pkg/db/warehouse"
	"github.com/consultia/bonusx/pkg/identity"
	"github.com/consultia/bonusx/pkg/source"
	"github.com/consultia/bonusx/pkg/source/crm"
	"github.com/consultia/bonusx/pkg/source/survey"
	"github.com/consultia/bonusx/pkg/source/timetracking"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBatch and fakeConn are mutex-guarded because SyncAll writes from
// several pool workers at once.
type fakeBatch struct {
	mu   sync.Mutex
	rows [][]any
	sent bool
}

func (b *fakeBatch) Append(v ...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows = append(b.rows, v)
	return nil
}

func (b *fakeBatch) Send() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = true
	return nil
}

func (b *fakeBatch) Abort() error { return nil }

func (b *fakeBatch) wasSent() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent
}

type fakeConn struct {
	mu          sync.Mutex
	execQueries []string
	batch       *fakeBatch
}

func (c *fakeConn) Exec(_ context.Context, query string, _ ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execQueries = append(c.execQueries, query)
	return nil
}

func (c *fakeConn) Select(context.Context, any, string, ...any) error { return nil }

func (c *fakeConn) PrepareBatch(context.Context, string) (warehouse.Batch, error) {
	return c.batch, nil
}

func (c *fakeConn) Ping(context.Context) error { return nil }

func (c *fakeConn) Close() error { return nil }

// fakeUpstream serves every source API from one handler.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/time_entries"):
			_, _ = w.Write([]byte(`{"data":[{"id":"1","time":"5400000","start":"1755561600000","user":{"email":"anthony@company.com"},"task":{"name":"Atlantic City kickoff"}}]}`))
		case r.URL.Path == "/objects/deals":
			_, _ = w.Write([]byte(`{"results":[{"id":"D1","properties":{"dealname":"Chinalco renewal","amount":"50000","closedate":"` +
				time.Now().UTC().Format(time.RFC3339) + `","dealstage":"closedwon","hubspot_owner_id":"rod_solar_id"}}]}`))
		case strings.HasPrefix(r.URL.Path, "/objects/deals/"):
			_, _ = w.Write([]byte(`{"properties":{"deal_collaborators":"anthony_id"}}`))
		case strings.HasSuffix(r.URL.Path, "/responses"):
			_, _ = w.Write([]byte(`{"responses":[{"responseId":"R1","lastSubmittedTime":"2025-08-10T15:04:05Z","answers":{"q-rating":{"scaleAnswer":{"answer":5}},"q-project":{"textAnswers":{"answers":[{"value":"Etafashion Price Engine"}]}}}}]}`))
		case strings.HasPrefix(r.URL.Path, "/forms/"):
			_, _ = w.Write([]byte(`{"items":[{"title":"Nombre del Proyecto","questionItem":{"question":{"questionId":"q-project"}}},{"title":"Calificación General","questionItem":{"question":{"questionId":"q-rating"}}}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func newTestApp(baseURL string, conn *fakeConn) *App {
	logger := zap.NewNop()
	mapper := identity.New(identity.DefaultConfig())
	client := func(name string) *source.Client {
		return source.NewClient(source.Opts{Source: name, BaseURL: baseURL})
	}

	return &App{
		DB:           warehouse.NewWithConn(conn, "bonus_test", logger),
		Mapper:       mapper,
		TimeTracking: timetracking.NewWithClient(client(timetracking.SourceName), "team1", logger, mapper),
		CRM:          crm.NewWithClient(client(crm.SourceName), logger, mapper),
		Survey:       survey.NewWithClient(client(survey.SourceName), "form1", logger, mapper),
		Pool:         pond.NewPool(3),
		Running:      xsync.NewMap[string, time.Time](),
		Logger:       logger,
	}
}

func execCount(conn *fakeConn, fragment string) int {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	n := 0
	for _, q := range conn.execQueries {
		if strings.Contains(q, fragment) {
			n++
		}
	}
	return n
}

func TestSyncSourceTimeTracking(t *testing.T) {
	server := fakeUpstream(t)
	defer server.Close()

	conn := &fakeConn{batch: &fakeBatch{}}
	app := newTestApp(server.URL, conn)

	event, err := app.SyncSource(context.Background(), timetracking.SourceName)
	require.NoError(t, err)
	assert.Equal(t, report.TimeEntriesTableName, event.Table)
	assert.Equal(t, 1, event.Rows)
	assert.True(t, conn.batch.wasSent())

	// Append mode: no staging swap.
	assert.Zero(t, execCount(conn, "EXCHANGE TABLES"))

	// The run is no longer tracked as in-flight.
	_, running := app.Running.Load(timetracking.SourceName)
	assert.False(t, running)
}

func TestSyncSourceCRMReplaces(t *testing.T) {
	server := fakeUpstream(t)
	defer server.Close()

	conn := &fakeConn{batch: &fakeBatch{}}
	app := newTestApp(server.URL, conn)

	event, err := app.SyncSource(context.Background(), crm.SourceName)
	require.NoError(t, err)
	assert.Equal(t, report.DealsTableName, event.Table)
	// Owner row plus one collaborator row.
	assert.Equal(t, 2, event.Rows)
	assert.Equal(t, 1, execCount(conn, "EXCHANGE TABLES"))
}

func TestSyncSourceSurveyCountsSkipped(t *testing.T) {
	server := fakeUpstream(t)
	defer server.Close()

	conn := &fakeConn{batch: &fakeBatch{}}
	app := newTestApp(server.URL, conn)

	event, err := app.SyncSource(context.Background(), survey.SourceName)
	require.NoError(t, err)
	assert.Equal(t, report.SatisfactionTableName, event.Table)
	assert.Equal(t, 1, event.Rows)
	assert.Zero(t, event.Skipped)
}

func TestSyncSourceUnknown(t *testing.T) {
	app := newTestApp("http://unused", &fakeConn{batch: &fakeBatch{}})

	_, err := app.SyncSource(context.Background(), "mainframe")
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestSyncSourceAlreadyRunning(t *testing.T) {
	app := newTestApp("http://unused", &fakeConn{batch: &fakeBatch{}})
	app.Running.Store(crm.SourceName, time.Now().UTC())

	_, err := app.SyncSource(context.Background(), crm.SourceName)
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestSyncSourceFetchFailureWritesNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	conn := &fakeConn{batch: &fakeBatch{}}
	app := newTestApp(server.URL, conn)

	event, err := app.SyncSource(context.Background(), crm.SourceName)
	require.Error(t, err)
	require.NotNil(t, event)
	assert.NotEmpty(t, event.Error)

	// The fetch failed before any warehouse statement ran.
	assert.Empty(t, conn.execQueries)
	assert.False(t, conn.batch.wasSent())
}

func TestSyncAllRunsEverySource(t *testing.T) {
	server := fakeUpstream(t)
	defer server.Close()

	conn := &fakeConn{batch: &fakeBatch{}}
	app := newTestApp(server.URL, conn)

	app.SyncAll(context.Background())

	// Two replace-mode sources swapped their tables; the append-mode source
	// only batched.
	assert.Equal(t, 2, execCount(conn, "EXCHANGE TABLES"))
	assert.True(t, conn.batch.wasSent())
}
