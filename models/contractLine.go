package models

import (
	"context"
	"time"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/utils"
	"github.com/shopspring/decimal"
)

// ContractLine is the recognition-bucket source consumed from the contract
// subsystem. Only the recognition rule fields matter here; contract lifecycle
// CRUD lives elsewhere.
type ContractLine struct {
	ID                int               `gorm:"primary_key" json:"id"`
	BusinessId        string            `gorm:"index;not null" json:"business_id" binding:"required"`
	LegalEntityId     int               `gorm:"index;not null" json:"legal_entity_id" binding:"required"`
	ContractId        int               `gorm:"index;not null" json:"contract_id" binding:"required"`
	LineNo            int               `gorm:"not null" json:"line_no"`
	Description       string            `gorm:"size:255" json:"description"`
	RecognitionMethod RecognitionMethod `gorm:"size:20;not null" json:"recognition_method" binding:"required"`
	RecognitionStart  time.Time         `gorm:"not null" json:"recognition_start" binding:"required"`
	RecognitionEnd    time.Time         `gorm:"not null" json:"recognition_end" binding:"required"`
	CurrencyCode      string            `gorm:"size:3;not null" json:"currency_code" binding:"required"`
	ExchangeRate      decimal.Decimal   `gorm:"type:decimal(20,6);default:1" json:"exchange_rate"`
	AmountTxn         decimal.Decimal   `gorm:"type:decimal(20,6);not null" json:"amount_txn"`
	AmountBase        decimal.Decimal   `gorm:"type:decimal(20,6);not null" json:"amount_base"`

	// Optional per-line account overrides, preferred over purpose-code lookups
	// when posting runs that originate from this line.
	BalanceSheetAccountId *int `json:"balance_sheet_account_id"`
	ProfitLossAccountId   *int `json:"profit_loss_account_id"`

	IsActive  *bool     `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l *ContractLine) GetId() int {
	return l.ID
}

func (l *ContractLine) HasAccountOverrides() bool {
	return l.BalanceSheetAccountId != nil && *l.BalanceSheetAccountId > 0 &&
		l.ProfitLossAccountId != nil && *l.ProfitLossAccountId > 0
}

// GetContractLines loads the requested lines; every requested id must resolve
// inside the caller's scope or the whole call fails.
func GetContractLines(ctx context.Context, businessId string, legalEntityId int, lineIds []int) ([]*ContractLine, error) {
	unqIds := utils.UniqueSlice(lineIds)
	db := config.GetDB()
	var lines []*ContractLine
	if err := db.WithContext(ctx).
		Where("business_id = ? AND legal_entity_id = ? AND id IN ?", businessId, legalEntityId, unqIds).
		Order("contract_id, line_no").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	if len(lines) != len(unqIds) {
		found := make(map[int]bool, len(lines))
		for _, l := range lines {
			found[l.ID] = true
		}
		for _, id := range unqIds {
			if !found[id] {
				return nil, utils.NotFoundError("contract line %d not found", id)
			}
		}
	}
	return lines, nil
}
