package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubledgerEntry is the immutable, append-only record of one posted movement,
// kept parallel to the journal line that produced it. Entries are never
// updated in place; a reversal supersedes them with new REVERSAL rows and
// flips the status marker only.
//
// Sign convention (load-bearing for the reports, do not "simplify"):
//   - RECOGNITION rows carry +amount for recognition postings and -amount for
//     accrual settlements (movement out of the accrual balance).
//   - REVERSAL rows carry the exact negation of the row they reverse.
//   - RECLASS rows carry the positive moved amount; the split report adds it
//     to the short bucket and subtracts it from the long bucket.
type SubledgerEntry struct {
	ID            int    `gorm:"primary_key" json:"id"`
	BusinessId    string `gorm:"size:64;index;not null" json:"business_id" binding:"required"`
	LegalEntityId int    `gorm:"index;not null" json:"legal_entity_id" binding:"required"`

	RunId         int  `gorm:"index;not null" json:"run_id"`
	RunLineId     int  `gorm:"index;not null" json:"run_line_id"`
	JournalId     int  `gorm:"index;not null" json:"journal_id"`
	JournalLineId int  `gorm:"index" json:"journal_line_id"`
	ReversesId    *int `gorm:"index" json:"reverses_id"`

	Kind           SubledgerEntryKind `gorm:"size:20;not null" json:"kind"`
	Family         RecognitionFamily  `gorm:"size:30;not null" json:"family"`
	MaturityBucket MaturityBucket     `gorm:"size:20;not null" json:"maturity_bucket"`
	MaturityDate   time.Time          `json:"maturity_date"`

	FiscalPeriodId int       `gorm:"index;not null" json:"fiscal_period_id"`
	EntryDate      time.Time `gorm:"index;not null" json:"entry_date"`

	CurrencyCode string          `gorm:"size:3;not null" json:"currency_code"`
	AmountTxn    decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"amount_txn"`
	AmountBase   decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"amount_base"`

	Status    SubledgerEntryStatus `gorm:"size:20;not null;default:POSTED" json:"status"`
	CreatedAt time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

func (e *SubledgerEntry) GetId() int {
	return e.ID
}
