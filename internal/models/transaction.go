package models

import "time"

// PurchaseKind represents what the payer is buying access to
type PurchaseKind string

const (
	PurchaseKindWatch    PurchaseKind = "WATCH"
	PurchaseKindDownload PurchaseKind = "DOWNLOAD"
)

// Status represents the lifecycle status of a payment transaction
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusSuccessful Status = "SUCCESSFUL"
	StatusFailed     Status = "FAILED"
	StatusTimeout    Status = "TIMEOUT"
)

// Terminal reports whether no further status change is expected for this status
func (s Status) Terminal() bool {
	return s == StatusSuccessful || s == StatusFailed || s == StatusTimeout
}

// Transaction represents one purchase attempt against the mobile-money gateway.
// Once Status reaches a terminal value the transaction is immutable; a retry
// always creates a new transaction with a fresh ID.
type Transaction struct {
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
	ID            string       `db:"id"`
	ItemRef       string       `db:"item_ref"`
	Kind          PurchaseKind `db:"kind"`
	Currency      string       `db:"currency"`
	PayerPhone    string       `db:"payer_phone"`
	PayerID       string       `db:"payer_id"`
	Status        Status       `db:"status"`
	FailureReason string       `db:"failure_reason"`
	Amount        int64        `db:"amount"`
}

// IdempotencyKey tracks processed requests to prevent duplicate transactions
type IdempotencyKey struct {
	CreatedAt      time.Time `db:"created_at"`
	Key            string    `db:"key"`
	RequestPath    string    `db:"request_path"`
	ResponseBody   string    `db:"response_body"`
	ResponseStatus int       `db:"response_status"`
}
