package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/consultia/bonusx/app/query/types"
	"github.com/consultia/bonusx/pkg/bonus"
	"github.com/consultia/bonusx/pkg/db/models/report"
	"github.com/consultia/bonusx/pkg/db/warehouse"
	"github.com/consultia/bonusx/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecords struct {
	records map[string]*report.BonusRecord
}

func (f *fakeRecords) GetLatestBonusRecord(_ context.Context, consultantID string) (*report.BonusRecord, error) {
	record, ok := f.records[consultantID]
	if !ok {
		return nil, warehouse.ErrNoBonusRecord
	}
	return record, nil
}

func (f *fakeRecords) GetBonusRecord(_ context.Context, consultantID string, quarter uint8, year uint16) (*report.BonusRecord, error) {
	record, ok := f.records[consultantID]
	if !ok || record.Quarter != quarter || record.Year != year {
		return nil, warehouse.ErrNoBonusRecord
	}
	return record, nil
}

func newTestRouter(t *testing.T, src bonus.RecordSource) http.Handler {
	t.Helper()
	app := &types.App{
		Aggregator: bonus.New(src, zap.NewNop()),
		Mapper:     identity.New(identity.DefaultConfig()),
		Logger:     zap.NewNop(),
	}
	router, err := NewController(app).NewRouter()
	require.NoError(t, err)
	return router
}

func sampleRecords() *fakeRecords {
	return &fakeRecords{records: map[string]*report.BonusRecord{
		"CONS001": {
			ConsultantID:         "CONS001",
			ConsultantName:       "Rodolfo Solar",
			PlanType:             "Sales",
			Quarter:              3,
			Year:                 2025,
			IndividualCommission: 12055.20,
			IndividualTCV:        50000,
			TotalBonus:           13305.20,
		},
	}}
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleBonus(t *testing.T) {
	router := newTestRouter(t, sampleRecords())

	rec := get(t, router, "/api/bonus/CONS001")
	require.Equal(t, http.StatusOK, rec.Code)

	var record report.BonusRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "CONS001", record.ConsultantID)
	assert.InDelta(t, 13305.20, record.TotalBonus, 1e-9)
}

func TestHandleBonusNotFoundIsJSON404(t *testing.T) {
	router := newTestRouter(t, sampleRecords())

	rec := get(t, router, "/api/bonus/CONS999")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "consultant not found", body["error"])
}

func TestHandleBonusPeriodParams(t *testing.T) {
	router := newTestRouter(t, sampleRecords())

	rec := get(t, router, "/api/bonus/CONS001?quarter=3&year=2025")
	assert.Equal(t, http.StatusOK, rec.Code)

	// A period with no record is a 404, same shape as a missing consultant.
	rec = get(t, router, "/api/bonus/CONS001?quarter=1&year=2024")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, router, "/api/bonus/CONS001?quarter=9")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBreakdown(t *testing.T) {
	router := newTestRouter(t, sampleRecords())

	rec := get(t, router, "/api/breakdown/CONS001")
	require.Equal(t, http.StatusOK, rec.Code)

	var breakdown bonus.Breakdown
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &breakdown))
	assert.Equal(t, "Q3 2025", breakdown.Period)
	require.Len(t, breakdown.Breakdown, 3)
	assert.InDelta(t, 12055.20, breakdown.Breakdown[bonus.CategoryIndividual]["Individual Commission"], 1e-9)
}

func TestHandleRecommendations(t *testing.T) {
	router := newTestRouter(t, sampleRecords())

	rec := get(t, router, "/api/recommendations/CONS001/Sales")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body["recommendations"])
	assert.NotEmpty(t, body["recommendations"])
}

func TestHandleRecommendationsInvalidPlan(t *testing.T) {
	router := newTestRouter(t, sampleRecords())

	rec := get(t, router, "/api/recommendations/CONS001/Wizard")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleConsultants(t *testing.T) {
	router := newTestRouter(t, sampleRecords())

	rec := get(t, router, "/api/consultants")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Consultants []identity.Consultant `json:"consultants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Consultants, 3)
	assert.Equal(t, "CONS001", body.Consultants[0].ID)
	assert.Equal(t, identity.PlanSales, body.Consultants[0].Plan)
}
