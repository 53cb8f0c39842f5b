package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/store-locator/internal/db"
	"github.com/ukydev/store-locator/internal/events"
	"github.com/ukydev/store-locator/internal/geo"
	"github.com/ukydev/store-locator/internal/metrics"
	"github.com/ukydev/store-locator/internal/models"
)

const eventPublishTimeout = 3 * time.Second

// StoreHandler serves the admin CRUD surface over stores.
type StoreHandler struct {
	Stores  db.StoreCollection
	Events  events.Publisher
	Metrics *metrics.Collector
}

// List handles GET /api/store
func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	stores, err := h.Stores.ListStores(r.Context())
	if err != nil {
		writeFailure(w, r, "list_stores", err)
		return
	}
	writeJSON(w, r, http.StatusOK, stores)
}

// Create handles POST /api/store with {"name": "...", "location": {"lat": .., "lon": ..}}
func (h *StoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalid(w, r, "body must be a JSON object")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeInvalid(w, r, "name is required")
		return
	}
	if req.Location == nil {
		writeInvalid(w, r, "location is required")
		return
	}
	location, err := geo.NewCoordinate(req.Location.Lat, req.Location.Lon)
	if err != nil {
		writeInvalid(w, r, err.Error())
		return
	}

	store, err := h.Stores.InsertStore(r.Context(), name, location)
	if err != nil {
		writeFailure(w, r, "insert_store", err)
		return
	}
	h.Metrics.ObserveMutation("create")
	h.publish(r.Context(), events.NewStoreCreated(*store))

	log.WithFields(log.Fields{"store_id": store.ID, "name": store.Name, "location": location.String()}).Info("Store created")

	writeJSON(w, r, http.StatusCreated, models.APIResponse{
		Success: true,
		Message: "Store created",
		Data:    store,
	})
}

// Delete handles DELETE /api/store?id=...
func (h *StoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeInvalid(w, r, "id is required")
		return
	}

	err := h.Stores.DeleteStore(r.Context(), id)
	switch {
	case errors.Is(err, db.ErrInvalidID):
		writeInvalid(w, r, err.Error())
		return
	case errors.Is(err, db.ErrStoreNotFound):
		writeJSON(w, r, http.StatusNotFound, models.APIResponse{
			Success: false,
			Message: "Store " + id + " not found",
		})
		return
	case err != nil:
		writeFailure(w, r, "delete_store", err)
		return
	}
	h.Metrics.ObserveMutation("delete")
	h.publish(r.Context(), events.NewStoreDeleted(id))

	log.WithField("store_id", id).Info("Store deleted")

	writeJSON(w, r, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Store " + id + " deleted",
	})
}

// publish sends a lifecycle event. Failures are logged; the mutation has
// already been committed.
func (h *StoreHandler) publish(ctx context.Context, event events.StoreEvent) {
	if h.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, eventPublishTimeout)
	defer cancel()
	if err := h.Events.Publish(ctx, event); err != nil {
		log.WithFields(log.Fields{"store_id": event.StoreID, "type": event.Type}).WithError(err).Warn("Failed to publish store event")
	}
}
