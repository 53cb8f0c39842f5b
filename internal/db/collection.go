package db

import (
	"context"
	"errors"

	"github.com/ukydev/store-locator/internal/geo"
	"github.com/ukydev/store-locator/internal/models"
)

var (
	ErrStoreNotFound = errors.New("store not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("username or email already exists")
	ErrInvalidID     = errors.New("invalid id")
)

// StoreCollection defines the interface for store data operations.
type StoreCollection interface {
	EnsureIndexes(ctx context.Context) error
	InsertStore(ctx context.Context, name string, location geo.Coordinate) (*models.Store, error)
	ListStores(ctx context.Context) ([]models.Store, error)
	FindStoreByID(ctx context.Context, id string) (*models.Store, error)
	DeleteStore(ctx context.Context, id string) error
	// FindStoresNear returns stores within radiusMeters of center, nearest first.
	FindStoresNear(ctx context.Context, center geo.Coordinate, radiusMeters float64) ([]models.Store, error)
}

// UserCollection defines the interface for operator account operations
type UserCollection interface {
	EnsureIndexes(ctx context.Context) error
	InsertUser(ctx context.Context, user models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}
