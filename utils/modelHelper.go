package utils

import (
	"context"
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/finacore/recognition_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

/* DB fetching */

// fetch model from db
// (may return RecordNotFound)
func FetchSingleModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch model from db
// (ctx's business_id is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, businessId string, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// FetchModelForUpdate loads the row under SELECT ... FOR UPDATE on the given
// transaction, serializing concurrent mutations of the same row for the
// duration of the transaction.
func FetchModelForUpdate[T any](ctx context.Context, tx *gorm.DB, businessId string, id int, associations ...string) (*T, error) {
	dbCtx := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ?", businessId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// fetch all models from db
// (ctx's business_id is used in query's WHERE)
func FetchAllModels[T any](ctx context.Context, businessId string, associations ...string) ([]*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var results []*T
	err := dbCtx.Find(&results).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return results, nil
}

/* Insert-or-get */

// InsertOutcome tags the result of InsertOrGet: either the row was created,
// or an identical deterministic identifier already existed and the prior row
// is returned instead.
type InsertOutcome[T any] struct {
	Created  bool
	Existing *T
}

// IsDuplicateKeyError reports whether err is a MySQL duplicate-entry (1062)
// violation, the structural signal for an idempotent resubmission.
func IsDuplicateKeyError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// InsertOrGet creates row; on a duplicate-key violation it re-reads the
// existing row by lookupCond instead of erroring. Any other insert failure
// propagates as-is.
func InsertOrGet[T any](tx *gorm.DB, row *T, lookupCond string, lookupArgs ...interface{}) (InsertOutcome[T], error) {
	if err := tx.Create(row).Error; err == nil {
		return InsertOutcome[T]{Created: true, Existing: row}, nil
	} else if !IsDuplicateKeyError(err) {
		return InsertOutcome[T]{}, err
	}

	var existing T
	if err := tx.Where(lookupCond, lookupArgs...).First(&existing).Error; err != nil {
		return InsertOutcome[T]{}, err
	}
	return InsertOutcome[T]{Created: false, Existing: &existing}, nil
}
