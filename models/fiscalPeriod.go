package models

import (
	"context"
	"time"

	"github.com/finacore/recognition_backend/utils"
)

// FiscalPeriod maps (business, legal entity, period) to its posting book and
// date window. The posting engine refuses to touch CLOSED periods.
type FiscalPeriod struct {
	ID            int                `gorm:"primary_key" json:"id"`
	BusinessId    string             `gorm:"index;not null" json:"business_id" binding:"required"`
	LegalEntityId int                `gorm:"index;not null" json:"legal_entity_id" binding:"required"`
	BookId        int                `gorm:"not null" json:"book_id" binding:"required"`
	Name          string             `gorm:"size:100;not null" json:"name" binding:"required"`
	StartDate     time.Time          `gorm:"not null" json:"start_date" binding:"required"`
	EndDate       time.Time          `gorm:"not null" json:"end_date" binding:"required"`
	Status        FiscalPeriodStatus `gorm:"size:20;not null;default:OPEN" json:"status"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *FiscalPeriod) GetId() int {
	return p.ID
}

func (p *FiscalPeriod) IsOpen() bool {
	return p.Status == FiscalPeriodStatusOpen
}

// ContainsDate reports whether d falls inside the period window (inclusive).
func (p *FiscalPeriod) ContainsDate(d time.Time) bool {
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

// GetFiscalPeriod resolves a period inside the caller's scope.
func GetFiscalPeriod(ctx context.Context, businessId string, legalEntityId int, periodId int) (*FiscalPeriod, error) {
	period, err := utils.FetchModel[FiscalPeriod](ctx, businessId, periodId)
	if err != nil {
		return nil, utils.NotFoundError("fiscal period %d not found", periodId)
	}
	if period.LegalEntityId != legalEntityId {
		return nil, utils.NotFoundError("fiscal period %d not found", periodId)
	}
	return period, nil
}

// GetOpenFiscalPeriod resolves a period and rejects it when its book is closed.
func GetOpenFiscalPeriod(ctx context.Context, businessId string, legalEntityId int, periodId int) (*FiscalPeriod, error) {
	period, err := GetFiscalPeriod(ctx, businessId, legalEntityId, periodId)
	if err != nil {
		return nil, err
	}
	if !period.IsOpen() {
		return nil, utils.ConflictError("fiscal period %s is closed", period.Name)
	}
	return period, nil
}
