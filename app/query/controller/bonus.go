package controller

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/consultia/bonusx/pkg/bonus"
	"github.com/consultia/bonusx/pkg/identity"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// parsePeriod reads the optional quarter/year query parameters. Zero means
// "latest". Both must parse as positive integers when present.
func parsePeriod(r *http.Request) (quarter, year int, err error) {
	qs := r.URL.Query()
	if v := qs.Get("quarter"); v != "" {
		quarter, err = strconv.Atoi(v)
		if err != nil || quarter < 1 || quarter > 4 {
			return 0, 0, errors.New("invalid quarter")
		}
	}
	if v := qs.Get("year"); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil || year < 1 {
			return 0, 0, errors.New("invalid year")
		}
	}
	return quarter, year, nil
}

// HandleBonus returns the consolidated bonus record for a consultant.
func (c *Controller) HandleBonus(w http.ResponseWriter, r *http.Request) {
	consultantID := mux.Vars(r)["consultant_id"]

	quarter, year, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := c.App.Aggregator.GetBonus(r.Context(), consultantID, quarter, year)
	if errors.Is(err, bonus.ErrNotFound) {
		writeError(w, http.StatusNotFound, "consultant not found")
		return
	}
	if err != nil {
		c.App.Logger.Error("Bonus lookup failed",
			zap.String("consultant_id", consultantID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// HandleBreakdown returns the categorized bonus breakdown for a consultant.
func (c *Controller) HandleBreakdown(w http.ResponseWriter, r *http.Request) {
	consultantID := mux.Vars(r)["consultant_id"]

	quarter, year, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	breakdown, err := c.App.Aggregator.GetBreakdown(r.Context(), consultantID, quarter, year)
	if errors.Is(err, bonus.ErrNotFound) {
		writeError(w, http.StatusNotFound, "consultant not found")
		return
	}
	if err != nil {
		c.App.Logger.Error("Breakdown lookup failed",
			zap.String("consultant_id", consultantID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, breakdown)
}

// HandleRecommendations returns plan-specific improvement recommendations.
func (c *Controller) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	consultantID := vars["consultant_id"]

	plan, ok := identity.ParsePlanType(vars["plan_type"])
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid plan type")
		return
	}

	recommendations, err := c.App.Aggregator.GetRecommendations(r.Context(), consultantID, plan)
	if errors.Is(err, bonus.ErrNotFound) {
		writeError(w, http.StatusNotFound, "consultant not found")
		return
	}
	if err != nil {
		c.App.Logger.Error("Recommendations lookup failed",
			zap.String("consultant_id", consultantID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"recommendations": recommendations})
}

// HandleConsultants lists the consultant directory.
func (c *Controller) HandleConsultants(w http.ResponseWriter, _ *http.Request) {
	consultants := c.App.Mapper.Directory()
	sort.Slice(consultants, func(i, j int) bool { return consultants[i].ID < consultants[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"consultants": consultants})
}
