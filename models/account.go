package models

import (
	"context"
	"time"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/utils"
)

// Account is a GL chart-of-accounts row. The engine only reads accounts; the
// account plan is administered elsewhere.
type Account struct {
	ID               int               `gorm:"primary_key" json:"id"`
	BusinessId       string            `gorm:"index;not null" json:"business_id" binding:"required"`
	LegalEntityId    int               `gorm:"index;not null" json:"legal_entity_id" binding:"required"`
	Code             string            `gorm:"size:50;not null" json:"code" binding:"required"`
	Name             string            `gorm:"size:255;not null" json:"name" binding:"required"`
	MainType         AccountMainType   `gorm:"size:20;not null" json:"main_type" binding:"required"`
	DetailType       AccountDetailType `gorm:"size:50;not null" json:"detail_type" binding:"required"`
	CurrencyCode     string            `gorm:"size:3" json:"currency_code"`
	IsActive         *bool             `gorm:"default:true" json:"is_active"`
	IsPostingAllowed *bool             `gorm:"default:true" json:"is_posting_allowed"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Account) GetId() int {
	return a.ID
}

func (a *Account) CanPost() bool {
	return a.IsActive != nil && *a.IsActive && a.IsPostingAllowed != nil && *a.IsPostingAllowed
}

// GetPostingAccounts loads the requested accounts and fails with a setup error
// if any of them is missing, inactive, posting-disabled, or belongs to another
// legal entity's chart.
func GetPostingAccounts(ctx context.Context, businessId string, legalEntityId int, accountIds []int) (map[int]*Account, error) {
	unqIds := utils.UniqueSlice(accountIds)
	db := config.GetDB()
	var accounts []*Account
	if err := db.WithContext(ctx).
		Where("business_id = ? AND legal_entity_id = ? AND id IN ?", businessId, legalEntityId, unqIds).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	byId := make(map[int]*Account, len(accounts))
	for _, acc := range accounts {
		byId[acc.ID] = acc
	}
	for _, id := range unqIds {
		acc, ok := byId[id]
		if !ok {
			return nil, utils.SetupError("account %d not found in legal entity %d chart", id, legalEntityId)
		}
		if !acc.CanPost() {
			return nil, utils.SetupError("account %s (%d) is inactive or not posting-enabled", acc.Code, id)
		}
	}
	return byId, nil
}
