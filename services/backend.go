package services

import (
	"context"
	"encoding/json"

	"github.com/yeremiapane/ordengo-kiosk/models"
)

// Backend is the subset of the REST API the kiosk depends on.
// *BackendClient implements it.
type Backend interface {
	TableAccess(ctx context.Context, tableToken string) (*models.TableAccess, error)
	StartSession(ctx context.Context, req models.SessionStartRequest) (string, error)
	CreateOrder(ctx context.Context, req models.OrderRequest) (json.RawMessage, error)
	CreateNotification(ctx context.Context, req models.NotificationRequest) error
	Settings(ctx context.Context) (*models.RestaurantSettings, error)
}

var _ Backend = (*BackendClient)(nil)
