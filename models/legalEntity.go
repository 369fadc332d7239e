package models

import (
	"context"
	"time"

	"github.com/finacore/recognition_backend/utils"
)

// LegalEntity is the posting entity inside a tenant. Every schedule, run,
// journal and subledger entry is owned by exactly one legal entity.
type LegalEntity struct {
	ID               int       `gorm:"primary_key" json:"id"`
	BusinessId       string    `gorm:"index;not null" json:"business_id" binding:"required"`
	Name             string    `gorm:"size:255;not null" json:"name" binding:"required"`
	BaseCurrencyCode string    `gorm:"size:3;not null" json:"base_currency_code" binding:"required"`
	Timezone         string    `gorm:"size:64" json:"timezone"`
	IsActive         *bool     `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *LegalEntity) GetId() int {
	return e.ID
}

func GetLegalEntity(ctx context.Context, id int) (*LegalEntity, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationError("business id is required")
	}
	entity, err := utils.FetchModel[LegalEntity](ctx, businessId, id)
	if err != nil {
		return nil, utils.NotFoundError("legal entity %d not found", id)
	}
	return entity, nil
}

// ValidateLegalEntityScope is the scope gate for cross-legal-entity access:
// the referenced entity must exist inside the caller's tenant before any of
// its rows are touched.
func ValidateLegalEntityScope(ctx context.Context, businessId string, legalEntityId int) error {
	if legalEntityId <= 0 {
		return utils.ValidationError("legal entity id is required")
	}
	if err := utils.ValidateResourceId[LegalEntity](ctx, businessId, legalEntityId); err != nil {
		return utils.NotFoundError("legal entity %d not found", legalEntityId)
	}
	return nil
}
