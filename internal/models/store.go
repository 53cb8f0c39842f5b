package models

import (
	"time"

	"github.com/ukydev/store-locator/internal/geo"
)

// Store is a registered pickup/delivery store.
type Store struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Location  geo.Coordinate `json:"location"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateStoreRequest is the admin payload for adding a store.
type CreateStoreRequest struct {
	Name     string          `json:"name"`
	Location *geo.Coordinate `json:"location"`
}

// ServiceabilityResult is a store annotated with its distance from the
// delivery location, in whole meters.
type ServiceabilityResult struct {
	Store
	Distance int `json:"distance"`
}

// ServiceabilityResponse is returned by the check endpoint.
type ServiceabilityResponse struct {
	DeliveryLocation  geo.Coordinate         `json:"deliveryLocation"`
	ServiceableStores []ServiceabilityResult `json:"serviceableStores"`
	TotalStores       int                    `json:"totalStores"`
}

// APIResponse is the envelope for store mutations and rejected requests.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
