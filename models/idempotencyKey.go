package models

import "time"

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

// IdempotencyKey provides durable, DB-backed replay detection for explicit
// client idempotency handles on mutating endpoints.
// Unique constraint: (business_id, operation, client_key).
type IdempotencyKey struct {
	ID         int               `gorm:"primary_key" json:"id"`
	BusinessId string            `gorm:"size:64;not null;index:uniq_idem,unique" json:"business_id"`
	Operation  string            `gorm:"size:100;not null;index:uniq_idem,unique" json:"operation"`
	ClientKey  string            `gorm:"size:255;not null;index:uniq_idem,unique" json:"client_key"`
	Status     IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	ResultId   *int              `json:"result_id"`
	LastError  *string           `gorm:"type:text" json:"last_error"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
