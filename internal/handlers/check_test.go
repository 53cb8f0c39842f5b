package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/store-locator/internal/geo"
	"github.com/ukydev/store-locator/internal/metrics"
	"github.com/ukydev/store-locator/internal/models"
)

func newCheckHandler(t *testing.T, stores *MockStoreCollection) (*CheckHandler, *metrics.Collector) {
	t.Helper()
	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	return &CheckHandler{Stores: stores, RadiusMeters: 16000, Metrics: collector}, collector
}

func TestCheckHandler_Serviceable(t *testing.T) {
	stores := new(MockStoreCollection)
	handler, collector := newCheckHandler(t, stores)

	newYork := geo.Coordinate{Lat: 40.7128, Lon: -74.0060}
	candidates := []models.Store{
		{ID: "a", Name: "City Hall", Location: geo.Coordinate{Lat: 40.7130, Lon: -74.0062}},
		{ID: "b", Name: "Williamsburg", Location: geo.Coordinate{Lat: 40.7306, Lon: -73.9352}},
	}
	stores.On("FindStoresNear", mock.Anything, newYork, 16000.0).Return(candidates, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/check?lat=40.7128&lon=-74.0060", nil)
	w := httptest.NewRecorder()
	handler.Check(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp models.ServiceabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, newYork, resp.DeliveryLocation)
	assert.Equal(t, 2, resp.TotalStores)
	require.Len(t, resp.ServiceableStores, 2)
	assert.Equal(t, "a", resp.ServiceableStores[0].ID)
	assert.Equal(t, "b", resp.ServiceableStores[1].ID)
	assert.Equal(t, 6286, resp.ServiceableStores[1].Distance)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Checks.WithLabelValues(metrics.OutcomeServed)))
	stores.AssertExpectations(t)
}

func TestCheckHandler_NoStores(t *testing.T) {
	stores := new(MockStoreCollection)
	handler, collector := newCheckHandler(t, stores)
	stores.On("FindStoresNear", mock.Anything, geo.Coordinate{}, 16000.0).Return([]models.Store{}, nil)

	w := httptest.NewRecorder()
	handler.Check(w, httptest.NewRequest(http.MethodGet, "/api/check?lat=0&lon=0", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, []interface{}{}, raw["serviceableStores"])
	assert.Equal(t, float64(0), raw["totalStores"])
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Checks.WithLabelValues(metrics.OutcomeNoStores)))
}

func TestCheckHandler_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing both", ""},
		{"missing lon", "?lat=40.7"},
		{"missing lat", "?lon=-74"},
		{"non numeric", "?lat=abc&lon=-74"},
		{"out of range", "?lat=91&lon=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := new(MockStoreCollection)
			handler, collector := newCheckHandler(t, stores)

			w := httptest.NewRecorder()
			handler.Check(w, httptest.NewRequest(http.MethodGet, "/api/check"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp models.APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, "Invalid request", resp.Message)
			assert.NotEmpty(t, resp.Error)

			// no lookup and no distance computation on bad input
			stores.AssertNotCalled(t, "FindStoresNear", mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, 1.0, testutil.ToFloat64(collector.Checks.WithLabelValues(metrics.OutcomeInvalid)))
		})
	}
}

func TestCheckHandler_LookupFailure(t *testing.T) {
	stores := new(MockStoreCollection)
	handler, _ := newCheckHandler(t, stores)
	stores.On("FindStoresNear", mock.Anything, mock.Anything, 16000.0).Return(nil, assert.AnError)

	w := httptest.NewRecorder()
	handler.Check(w, httptest.NewRequest(http.MethodGet, "/api/check?lat=1&lon=1", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestCheckHandler_CorruptStoredLocation(t *testing.T) {
	stores := new(MockStoreCollection)
	handler, _ := newCheckHandler(t, stores)
	stores.On("FindStoresNear", mock.Anything, mock.Anything, 16000.0).
		Return([]models.Store{{ID: "x", Name: "Broken", Location: geo.Coordinate{Lat: 200, Lon: 0}}}, nil)

	w := httptest.NewRecorder()
	handler.Check(w, httptest.NewRequest(http.MethodGet, "/api/check?lat=1&lon=1", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
