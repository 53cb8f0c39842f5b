package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/store-locator/internal/db"
	"github.com/ukydev/store-locator/internal/geo"
	"github.com/ukydev/store-locator/internal/metrics"
	"github.com/ukydev/store-locator/internal/models"
	"github.com/ukydev/store-locator/internal/serviceability"
)

// CheckHandler answers "which stores can deliver to this point?"
type CheckHandler struct {
	Stores       db.StoreCollection
	RadiusMeters float64
	Metrics      *metrics.Collector
}

// Check handles GET /api/check?lat=..&lon=..
func (h *CheckHandler) Check(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	location, err := geo.ParseCoordinate(q.Get("lat"), q.Get("lon"))
	if err != nil {
		h.Metrics.ObserveCheck(metrics.OutcomeInvalid, 0, nil)
		writeInvalid(w, r, err.Error())
		return
	}

	candidates, err := h.Stores.FindStoresNear(r.Context(), location, h.RadiusMeters)
	if err != nil {
		h.Metrics.ObserveCheck(metrics.OutcomeFailed, 0, nil)
		writeFailure(w, r, "find_stores_near", err)
		return
	}

	results, err := serviceability.Evaluate(location, candidates)
	if err != nil {
		// the delivery location is already valid, so this is a corrupt stored record
		h.Metrics.ObserveCheck(metrics.OutcomeFailed, len(candidates), nil)
		writeFailure(w, r, "evaluate", err)
		return
	}

	distances := make([]int, len(results))
	for i, res := range results {
		distances[i] = res.Distance
	}
	outcome := metrics.OutcomeServed
	if len(results) == 0 {
		outcome = metrics.OutcomeNoStores
	}
	h.Metrics.ObserveCheck(outcome, len(results), distances)

	log.WithFields(log.Fields{
		"location":    location.String(),
		"serviceable": len(results),
	}).Debug("Serviceability check")

	writeJSON(w, r, http.StatusOK, models.ServiceabilityResponse{
		DeliveryLocation:  location,
		ServiceableStores: results,
		TotalStores:       len(results),
	})
}
