package domain

import (
	"context"
	"errors"
)

type ReminderRun struct {
	Scanned int `json:"scanned"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
}

type Service interface {
	// SendExpiryReminders emails every customer whose current
	// subscription lapses within windowDays, at most once per
	// subscription.
	SendExpiryReminders(ctx context.Context, tenantID string, windowDays int) (ReminderRun, error)
	// SendWelcome emails a newly subscribed customer once.
	SendWelcome(ctx context.Context, tenantID, customerID, subscriptionID string) error
	ListByCustomer(ctx context.Context, tenantID, customerID string) ([]NotificationLog, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
