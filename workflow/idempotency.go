package workflow

import (
	"context"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/models"
	"github.com/finacore/recognition_backend/utils"
)

// BeginIdempotentOperation claims (operation, clientKey) for this request.
// A nil key result with no error means the caller sent no client key and
// should run without replay protection. When a prior attempt SUCCEEDED the
// stored result id is returned so handlers can echo the earlier outcome; a
// prior STARTED row means a concurrent attempt is still in flight.
func BeginIdempotentOperation(ctx context.Context, operation string, clientKey string) (*models.IdempotencyKey, *int, error) {
	if clientKey == "" {
		return nil, nil, nil
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, nil, utils.ValidationError("business id is required")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	row := models.IdempotencyKey{
		BusinessId: businessId,
		Operation:  operation,
		ClientKey:  clientKey,
		Status:     models.IdempotencyStatusStarted,
	}
	outcome, err := utils.InsertOrGet(tx, &row,
		"business_id = ? AND operation = ? AND client_key = ?", businessId, operation, clientKey)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if outcome.Created {
		if err := tx.Commit().Error; err != nil {
			return nil, nil, err
		}
		return outcome.Existing, nil, nil
	}
	tx.Rollback()

	prior := outcome.Existing
	switch prior.Status {
	case models.IdempotencyStatusSucceeded:
		return nil, prior.ResultId, nil
	case models.IdempotencyStatusStarted:
		return nil, nil, utils.ConflictError("operation %s with key %s is still in progress", operation, clientKey)
	}
	// FAILED rows are reclaimed so the client can retry with the same key
	if err := db.WithContext(ctx).Model(&models.IdempotencyKey{}).
		Where("id = ? AND status = ?", prior.ID, models.IdempotencyStatusFailed).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error; err != nil {
		return nil, nil, err
	}
	prior.Status = models.IdempotencyStatusStarted
	return prior, nil, nil
}

// FinishIdempotentOperation records the outcome on the claimed key. No-op when
// the request ran without one.
func FinishIdempotentOperation(ctx context.Context, key *models.IdempotencyKey, resultId *int, opErr error) {
	if key == nil {
		return
	}
	db := config.GetDB()
	updates := map[string]interface{}{}
	if opErr != nil {
		msg := opErr.Error()
		updates["status"] = models.IdempotencyStatusFailed
		updates["last_error"] = msg
	} else {
		updates["status"] = models.IdempotencyStatusSucceeded
		updates["result_id"] = resultId
	}
	if err := db.WithContext(ctx).Model(&models.IdempotencyKey{}).
		Where("id = ?", key.ID).Updates(updates).Error; err != nil {
		config.LogError(config.GetLogger(), "workflow", "FinishIdempotentOperation", "persist outcome", key, err)
	}
}
