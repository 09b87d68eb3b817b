package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/appetiteclub/posboard/services/posboard/internal/board"
	"github.com/appetiteclub/posboard/services/posboard/internal/push"
	"github.com/aquamarinepk/aqm"
)

var ErrRejected = errors.New("status update rejected by backend")

// Requester is the part of aqm.ServiceClient the data access needs.
type Requester interface {
	Request(ctx context.Context, method, path string, body interface{}) (*aqm.SuccessResponse, error)
}

type ordersResource struct {
	Active []json.RawMessage `json:"active"`
	Done   []json.RawMessage `json:"done"`
}

type statusUpdate struct {
	Status string `json:"status"`
}

type pushRegistration struct {
	Subscription push.Subscription `json:"subscription"`
	DeviceLabel  string            `json:"device_label,omitempty"`
}

// OrderDataAccess talks to the order backend for one deployment.
type OrderDataAccess struct {
	client Requester
	logger aqm.Logger
}

func NewOrderDataAccess(client Requester, logger aqm.Logger) *OrderDataAccess {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &OrderDataAccess{client: client, logger: logger}
}

// FetchOrders returns the active and done orders of a location. Orders that
// fail to decode or validate are dropped.
func (da *OrderDataAccess) FetchOrders(ctx context.Context, locationID string) ([]board.Order, error) {
	if da == nil || da.client == nil {
		return nil, fmt.Errorf("order client not configured")
	}
	if locationID == "" {
		return nil, fmt.Errorf("missing location id")
	}

	path := fmt.Sprintf("/locations/%s/orders", url.PathEscape(locationID))
	resp, err := da.client.Request(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}

	var res ordersResource
	if err := decodeSuccessResponse(resp, &res); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	orders := make([]board.Order, 0, len(res.Active)+len(res.Done))
	for _, raw := range append(res.Active, res.Done...) {
		var o board.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			da.logger.Info("dropping undecodable order", "location", locationID, "error", err)
			continue
		}
		if err := o.Validate(); err != nil {
			da.logger.Info("dropping invalid order", "location", locationID, "order", o.ID.String(), "error", err)
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// AdvanceStatus asks the backend to move an order to status.
func (da *OrderDataAccess) AdvanceStatus(ctx context.Context, locationID string, orderID board.Ref, status string) error {
	if da == nil || da.client == nil {
		return fmt.Errorf("order client not configured")
	}

	path := fmt.Sprintf("/locations/%s/orders/%s/status", url.PathEscape(locationID), url.PathEscape(orderID.String()))
	resp, err := da.client.Request(ctx, "PATCH", path, statusUpdate{Status: status})
	if err != nil {
		return fmt.Errorf("advance order %s: %w", orderID, err)
	}

	var result struct {
		Success *bool `json:"success"`
	}
	// Bodies without a success flag count as accepted.
	if err := decodeSuccessResponse(resp, &result); err == nil && result.Success != nil && !*result.Success {
		return fmt.Errorf("advance order %s: %w", orderID, ErrRejected)
	}
	return nil
}

// RegisterPushSubscription forwards a display's push subscription.
func (da *OrderDataAccess) RegisterPushSubscription(ctx context.Context, locationID string, sub push.Subscription, deviceLabel string) error {
	if da == nil || da.client == nil {
		return fmt.Errorf("order client not configured")
	}

	path := fmt.Sprintf("/locations/%s/push-subscriptions", url.PathEscape(locationID))
	_, err := da.client.Request(ctx, "POST", path, pushRegistration{Subscription: sub, DeviceLabel: deviceLabel})
	return err
}
