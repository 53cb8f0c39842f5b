// Package serviceability annotates candidate stores with their exact distance
// from a delivery location.
//
// Candidates are expected to be pre-filtered by the database's radius query;
// Evaluate never drops or reorders them.
package serviceability

import (
	"fmt"

	"github.com/ukydev/store-locator/internal/geo"
	"github.com/ukydev/store-locator/internal/models"
)

// Evaluate returns one result per candidate, in input order.
func Evaluate(user geo.Coordinate, candidates []models.Store) ([]models.ServiceabilityResult, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}

	results := make([]models.ServiceabilityResult, 0, len(candidates))
	for i, store := range candidates {
		if err := store.Location.Validate(); err != nil {
			return nil, &geo.InvalidInputError{
				Field:  fmt.Sprintf("candidates[%d].location", i),
				Value:  store.Location.String(),
				Reason: err.Error(),
			}
		}
		results = append(results, models.ServiceabilityResult{
			Store:    store,
			Distance: geo.DistanceMeters(user, store.Location),
		})
	}
	return results, nil
}
