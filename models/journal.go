package models

import (
	"context"
	"time"

	"github.com/finacore/recognition_backend/utils"
	"github.com/shopspring/decimal"
)

// Journal is the GL artifact produced by posting one run. Journals created by
// this engine are POSTED at creation (no draft stage) and may be marked
// REVERSED exactly once, linking to the journal that reverses them.
type Journal struct {
	ID            int    `gorm:"primary_key" json:"id"`
	BusinessId    string `gorm:"size:64;index;not null" json:"business_id" binding:"required"`
	LegalEntityId int    `gorm:"index;not null" json:"legal_entity_id" binding:"required"`

	JournalNo  string          `gorm:"size:50;not null" json:"journal_no"`
	SequenceNo decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`

	JournalDate    time.Time         `gorm:"not null" json:"journal_date"`
	FiscalPeriodId int               `gorm:"index;not null" json:"fiscal_period_id"`
	Family         RecognitionFamily `gorm:"size:30;not null" json:"family"`
	CurrencyCode   string            `gorm:"size:3;not null" json:"currency_code"`
	ExchangeRate   decimal.Decimal   `gorm:"type:decimal(20,6);default:1" json:"exchange_rate"`
	Notes          string            `gorm:"type:text" json:"notes"`

	RunId int `gorm:"index;not null" json:"run_id"`

	Status JournalStatus `gorm:"size:20;not null;default:POSTED" json:"status"`

	// IsReversal and IsSettlement mark journals whose subledger movement is
	// negative; the reconciliation report sign-adjusts their totals.
	IsReversal          bool          `gorm:"default:false" json:"is_reversal"`
	IsSettlement        bool          `gorm:"default:false" json:"is_settlement"`
	ReversesJournalId   *int          `gorm:"index" json:"reverses_journal_id"`
	ReversedByJournalId *int          `gorm:"index" json:"reversed_by_journal_id"`
	ReversedAt          *time.Time    `json:"reversed_at"`

	TotalDebitBase  decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"total_debit_base"`
	TotalCreditBase decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"total_credit_base"`

	Lines []JournalLine `gorm:"foreignKey:JournalId" json:"lines"`

	CreatedBy string    `gorm:"size:100" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type JournalLine struct {
	ID        int `gorm:"primary_key" json:"id"`
	JournalId int `gorm:"index;not null" json:"journal_id"`
	AccountId int `gorm:"index;not null" json:"account_id" binding:"required"`

	Description string          `gorm:"size:255" json:"description"`
	DebitTxn    decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"debit_txn"`
	CreditTxn   decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"credit_txn"`
	DebitBase   decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"debit_base"`
	CreditBase  decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"credit_base"`
}

func (j *Journal) GetId() int {
	return j.ID
}

func (jl JournalLine) GetId() int {
	return jl.ID
}

// IsBalanced checks the journal's base debit/credit equality within epsilon.
func (j *Journal) IsBalanced() bool {
	return j.TotalDebitBase.Sub(j.TotalCreditBase).Abs().Cmp(BalanceEpsilon) <= 0
}

func GetJournal(ctx context.Context, id int) (*Journal, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationError("business id is required")
	}
	journal, err := utils.FetchModel[Journal](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, utils.NotFoundError("journal %d not found", id)
	}
	return journal, nil
}
