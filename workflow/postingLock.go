package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/finacore/recognition_backend/config"
	"gorm.io/gorm"
)

// AcquireBusinessPostingLock serializes posting per business across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB that will do the posting transaction.
func AcquireBusinessPostingLock(tx *gorm.DB, businessId string) error {
	lockName := fmt.Sprintf("posting:%s", businessId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for business_id=%s", businessId)
	}
	return nil
}

func ReleaseBusinessPostingLock(tx *gorm.DB, businessId string) {
	lockName := fmt.Sprintf("posting:%s", businessId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// AcquireRunPostingLock adds a redis-level guard per run on top of the MySQL
// advisory lock when redis is configured. Returns a nil lock when redis is
// not available; callers treat that as "MySQL lock only".
func AcquireRunPostingLock(ctx context.Context, businessId string, runId int) (*redislock.Lock, error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil, nil
	}
	key := fmt.Sprintf("posting:%s:run:%d", businessId, runId)
	lock, err := locker.Obtain(ctx, key, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(200*time.Millisecond), 10),
	})
	if err != nil {
		if err == redislock.ErrNotObtained {
			return nil, fmt.Errorf("run %d is already being posted", runId)
		}
		return nil, err
	}
	return lock, nil
}

func ReleaseRunPostingLock(ctx context.Context, lock *redislock.Lock) {
	if lock == nil {
		return
	}
	_ = lock.Release(ctx)
}
