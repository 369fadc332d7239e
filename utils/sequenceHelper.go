package utils

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"github.com/finacore/recognition_backend/config"
)

var sequenceMutex sync.Mutex

func GetTypeName[T any]() string {
	var v T
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// GetSequence returns the next sequence_no for model T within a business.
// The counter lives in redis and is seeded from max(sequence_no) in the DB the
// first time it is seen; the uniqueness re-check makes a stale redis counter
// self-heal instead of producing a duplicate number.
func GetSequence[T any](ctx context.Context, businessId string) (int64, error) {
	var model T
	sequenceMutex.Lock()
	defer sequenceMutex.Unlock()

	cacheKey := businessId + "-" + strings.ToLower(GetTypeName[T]()) + "_seq"
	var seqNo int64
	var err error
	db := config.GetDB()

	for {
		seqNo, err = config.GetRedisCounter(ctx, cacheKey)
		if err != nil {
			return 0, err
		}
		// if not found in redis, seed from db
		if seqNo == 1 {
			var dbSeq *int64
			if err := db.WithContext(ctx).Model(&model).Select("max(sequence_no)").
				Where("business_id = ?", businessId).
				Scan(&dbSeq).Error; err != nil {
				return 0, err
			}
			if dbSeq == nil {
				seqNo = 0
			} else {
				seqNo = *dbSeq
			}
			seqNo++
			if err := config.SetRedisObject(cacheKey, &seqNo, 0); err != nil {
				return 0, err
			}
		}
		// check if sequence number exists in db
		err = ValidateUnique[T](ctx, businessId, "sequence_no", seqNo, 0)
		if err == nil {
			break
		}
	}
	return seqNo, nil
}
