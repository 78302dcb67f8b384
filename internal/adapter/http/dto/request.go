package dto

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const dateLayout = "2006-01-02"

// ConnectRequest represents a request to link an account to the
// aggregator.
type ConnectRequest struct {
	PublicToken         string `json:"public_token"          validate:"required"`
	AggregatorAccountID string `json:"aggregator_account_id" validate:"required"`
	EffectiveStartDate  string `json:"effective_start_date"  validate:"required"`
}

// Validate checks the request and parses the start date.
func (r *ConnectRequest) Validate() (time.Time, error) {
	if err := validate.Struct(r); err != nil {
		return time.Time{}, err
	}
	start, err := time.Parse(dateLayout, r.EffectiveStartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("effective_start_date must be YYYY-MM-DD: %w", err)
	}
	return start, nil
}

// UpdateStartDateRequest represents a request to move the retention
// boundary. Confirm acknowledges the pruning of already-synced rows.
type UpdateStartDateRequest struct {
	EffectiveStartDate string `json:"effective_start_date" validate:"required"`
	Confirm            bool   `json:"confirm"`
}

// Validate checks the request and parses the start date.
func (r *UpdateStartDateRequest) Validate() (time.Time, error) {
	if err := validate.Struct(r); err != nil {
		return time.Time{}, err
	}
	start, err := time.Parse(dateLayout, r.EffectiveStartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("effective_start_date must be YYYY-MM-DD: %w", err)
	}
	return start, nil
}

// CreateSnapshotRequest represents a request to create a reconcile
// snapshot for one account and month.
type CreateSnapshotRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	Month     string `json:"month"      validate:"required"`
}

// Validate checks the request shape. Month semantics are validated in
// the domain.
func (r *CreateSnapshotRequest) Validate() error {
	return validate.Struct(r)
}

// WebhookRequest represents an aggregator transactions webhook payload.
type WebhookRequest struct {
	WebhookType string `json:"webhook_type" validate:"required"`
	WebhookCode string `json:"webhook_code"`
	ItemID      string `json:"item_id"      validate:"required"`
}

// Validate checks the webhook payload shape.
func (r *WebhookRequest) Validate() error {
	return validate.Struct(r)
}
