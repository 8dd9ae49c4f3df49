package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet represents a payer's mobile-money wallet known to the gateway.
// InstantLimit is the largest amount the gateway confirms synchronously;
// anything above it requires the payer to approve on their handset.
type Wallet struct {
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	Phone        string    `db:"phone"`
	Currency     string    `db:"currency"`
	Balance      int64     `db:"balance"`
	InstantLimit int64     `db:"instant_limit"`
	ID           uuid.UUID `db:"id"`
}
