package models

import (
	"context"
	"errors"
	"time"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecognitionSchedule is the planned recognition of one source event, split
// into per-bucket lines. Created by the schedule generator; the posting
// engine only transitions its status.
type RecognitionSchedule struct {
	ID            int    `gorm:"primary_key" json:"id"`
	BusinessId    string `gorm:"size:64;index;not null;index:uniq_schedule_event,unique" json:"business_id" binding:"required"`
	LegalEntityId int    `gorm:"not null;index:uniq_schedule_event,unique" json:"legal_entity_id" binding:"required"`

	// SourceEventId makes generation idempotent: resubmitting the same payload
	// derives the same id and trips the unique index instead of duplicating.
	SourceEventId string `gorm:"size:64;not null;index:uniq_schedule_event,unique" json:"source_event_id"`

	Status          ScheduleStatus    `gorm:"size:20;not null;default:DRAFT" json:"status"`
	Family          RecognitionFamily `gorm:"size:30;not null" json:"family" binding:"required"`
	MaturityBucket  MaturityBucket    `gorm:"size:20;not null;default:SHORT_TERM" json:"maturity_bucket"`
	MaturityDate    time.Time         `json:"maturity_date"`
	ReclassRequired bool              `gorm:"default:false" json:"reclass_required"`

	CurrencyCode string          `gorm:"size:3;not null" json:"currency_code" binding:"required"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(20,6);default:1" json:"exchange_rate"`
	AmountTxn    decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"amount_txn"`
	AmountBase   decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"amount_base"`

	FiscalPeriodId    int       `gorm:"index;not null" json:"fiscal_period_id"`
	PeriodWindowStart time.Time `json:"period_window_start"`
	PeriodWindowEnd   time.Time `json:"period_window_end"`

	Lines []RecognitionScheduleLine `gorm:"foreignKey:ScheduleId" json:"lines"`

	CreatedBy string    `gorm:"size:100" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type RecognitionScheduleLine struct {
	ID         int `gorm:"primary_key" json:"id"`
	ScheduleId int `gorm:"not null;index;index:uniq_schedule_row,unique" json:"schedule_id"`

	// SourceRowId is deterministic per (schedule, bucket date) so regeneration
	// can append exactly the missing buckets.
	SourceRowId string `gorm:"size:64;not null;index:uniq_schedule_row,unique" json:"source_row_id"`

	BucketDate      time.Time          `gorm:"not null" json:"bucket_date"`
	MaturityBucket  MaturityBucket     `gorm:"size:20;not null;default:SHORT_TERM" json:"maturity_bucket"`
	MaturityDate    time.Time          `json:"maturity_date"`
	ReclassRequired bool               `gorm:"default:false" json:"reclass_required"`
	AmountTxn       decimal.Decimal    `gorm:"type:decimal(20,6);default:0" json:"amount_txn"`
	AmountBase      decimal.Decimal    `gorm:"type:decimal(20,6);default:0" json:"amount_base"`
	ContractId      *int               `gorm:"index" json:"contract_id"`
	ContractLineId  *int               `gorm:"index" json:"contract_line_id"`
	Status          ScheduleLineStatus `gorm:"size:20;not null;default:OPEN" json:"status"`
	CreatedAt       time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *RecognitionSchedule) GetId() int {
	return s.ID
}

func (l RecognitionScheduleLine) GetId() int {
	return l.ID
}

// RecomputeScheduleAggregates re-derives the schedule's totals, dominant
// maturity bucket and reclass flag from all of its persisted lines. Called
// after every line mutation so the header never drifts from its children.
func RecomputeScheduleAggregates(ctx context.Context, tx *gorm.DB, scheduleId int) error {
	var lines []RecognitionScheduleLine
	if err := tx.WithContext(ctx).
		Where("schedule_id = ?", scheduleId).
		Order("bucket_date").
		Find(&lines).Error; err != nil {
		return err
	}

	totalTxn := decimal.Zero
	totalBase := decimal.Zero
	longBase := decimal.Zero
	reclass := false
	var maturityDate time.Time
	for _, l := range lines {
		totalTxn = totalTxn.Add(l.AmountTxn)
		totalBase = totalBase.Add(l.AmountBase)
		if l.MaturityBucket == MaturityBucketLongTerm {
			longBase = longBase.Add(l.AmountBase)
		}
		if l.ReclassRequired {
			reclass = true
		}
		if l.MaturityDate.After(maturityDate) {
			maturityDate = l.MaturityDate
		}
	}

	bucket := MaturityBucketShortTerm
	// the schedule carries the dominant bucket of its lines
	if longBase.Cmp(totalBase.Sub(longBase)) > 0 {
		bucket = MaturityBucketLongTerm
	}

	updates := map[string]interface{}{
		"amount_txn":       totalTxn,
		"amount_base":      totalBase,
		"maturity_bucket":  bucket,
		"maturity_date":    maturityDate,
		"reclass_required": reclass,
	}
	if status, ok := DeriveScheduleStatus(lines); ok {
		updates["status"] = status
	}

	return tx.WithContext(ctx).Model(&RecognitionSchedule{}).
		Where("id = ?", scheduleId).
		Updates(updates).Error
}

// DeriveScheduleStatus folds the line statuses into the header status: any
// open line keeps the schedule READY, a fully reversed schedule is REVERSED,
// anything else means every line has been posted or settled. Returns false
// when there are no lines to derive from.
func DeriveScheduleStatus(lines []RecognitionScheduleLine) (ScheduleStatus, bool) {
	if len(lines) == 0 {
		return "", false
	}
	allReversed := true
	for _, l := range lines {
		if l.Status == ScheduleLineStatusOpen {
			return ScheduleStatusReady, true
		}
		if l.Status != ScheduleLineStatusReversed {
			allReversed = false
		}
	}
	if allReversed {
		return ScheduleStatusReversed, true
	}
	return ScheduleStatusPosted, true
}

func GetSchedule(ctx context.Context, id int) (*RecognitionSchedule, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationError("business id is required")
	}
	schedule, err := utils.FetchModel[RecognitionSchedule](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, utils.NotFoundError("schedule %d not found", id)
	}
	return schedule, nil
}

// GetScheduleBySourceEvent returns the prior schedule for a source event, or
// nil when none exists.
func GetScheduleBySourceEvent(ctx context.Context, businessId string, legalEntityId int, sourceEventId string) (*RecognitionSchedule, error) {
	db := config.GetDB()
	var schedule RecognitionSchedule
	err := db.WithContext(ctx).Preload("Lines").
		Where("business_id = ? AND legal_entity_id = ? AND source_event_id = ?", businessId, legalEntityId, sourceEventId).
		First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &schedule, nil
}

type SchedulesConnection struct {
	Edges    []*SchedulesEdge `json:"edges"`
	PageInfo *PageInfo        `json:"pageInfo"`
}

type SchedulesEdge struct {
	Cursor string               `json:"cursor"`
	Node   *RecognitionSchedule `json:"node"`
}

func PaginateSchedules(ctx context.Context, limit *int, after *string, legalEntityId *int, family *RecognitionFamily, status *ScheduleStatus, fiscalPeriodId *int) (*SchedulesConnection, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationError("business id is required")
	}

	decodedCursor, _ := DecodeCursor(after)
	edges := make([]*SchedulesEdge, *limit)
	count := 0
	hasNextPage := false

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Lines").Where("business_id = ?", businessId)
	if legalEntityId != nil && *legalEntityId > 0 {
		dbCtx = dbCtx.Where("legal_entity_id = ?", *legalEntityId)
	}
	if family != nil && *family != "" {
		dbCtx = dbCtx.Where("family = ?", *family)
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if fiscalPeriodId != nil && *fiscalPeriodId > 0 {
		dbCtx = dbCtx.Where("fiscal_period_id = ?", *fiscalPeriodId)
	}

	var results []*RecognitionSchedule
	var err error
	if decodedCursor == "" {
		err = dbCtx.Order("created_at DESC").Limit(*limit + 1).Find(&results).Error
	} else {
		err = dbCtx.Order("created_at DESC").Limit(*limit+1).Where("created_at < ?", decodedCursor).Find(&results).Error
	}
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		if count == *limit {
			hasNextPage = true
		}
		if count < *limit {
			edges[count] = &SchedulesEdge{
				Cursor: EncodeCursor(result.CreatedAt.String()),
				Node:   result,
			}
			count++
		}
	}

	pageInfo := PageInfo{
		StartCursor: "",
		EndCursor:   "",
		HasNextPage: &hasNextPage,
	}
	if count > 0 {
		pageInfo.StartCursor = EncodeCursor(edges[0].Node.CreatedAt.String())
		pageInfo.EndCursor = EncodeCursor(edges[count-1].Node.CreatedAt.String())
	}

	connection := SchedulesConnection{
		Edges:    edges[:count],
		PageInfo: &pageInfo,
	}

	return &connection, nil
}
