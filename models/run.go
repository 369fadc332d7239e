package models

import (
	"context"
	"time"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecognitionRun materializes a schedule (or a direct payload) for posting.
// A run is the unit the posting and reversal engines operate on.
type RecognitionRun struct {
	ID            int    `gorm:"primary_key" json:"id"`
	BusinessId    string `gorm:"size:64;index;not null;index:uniq_run_event,unique" json:"business_id" binding:"required"`
	LegalEntityId int    `gorm:"not null;index:uniq_run_event,unique" json:"legal_entity_id" binding:"required"`

	RunNo      string          `gorm:"size:50;not null" json:"run_no"`
	SequenceNo decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`

	// SourceEventId guards run creation against duplicate submissions.
	SourceEventId string `gorm:"size:64;not null;index:uniq_run_event,unique" json:"source_event_id"`

	ScheduleId      *int `gorm:"index" json:"schedule_id"`
	ReversalOfRunId *int `gorm:"index" json:"reversal_of_run_id"`

	Status          RunStatus         `gorm:"size:20;not null;default:DRAFT" json:"status"`
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

	JournalId         *int `gorm:"index" json:"journal_id"`
	ReversalJournalId *int `gorm:"index" json:"reversal_journal_id"`

	Lines []RecognitionRunLine `gorm:"foreignKey:RunId" json:"lines"`

	CreatedBy  string     `gorm:"size:100" json:"created_by"`
	PostedBy   string     `gorm:"size:100" json:"posted_by"`
	PostedAt   *time.Time `json:"posted_at"`
	ReversedBy string     `gorm:"size:100" json:"reversed_by"`
	ReversedAt *time.Time `json:"reversed_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type RecognitionRunLine struct {
	ID    int `gorm:"primary_key" json:"id"`
	RunId int `gorm:"not null;index;index:uniq_run_row,unique" json:"run_id"`

	ScheduleLineId *int   `gorm:"index" json:"schedule_line_id"`
	SourceRowId    string `gorm:"size:64;not null;index:uniq_run_row,unique" json:"source_row_id"`

	BucketDate      time.Time       `gorm:"not null" json:"bucket_date"`
	MaturityBucket  MaturityBucket  `gorm:"size:20;not null;default:SHORT_TERM" json:"maturity_bucket"`
	MaturityDate    time.Time       `json:"maturity_date"`
	ReclassRequired bool            `gorm:"default:false" json:"reclass_required"`
	AmountTxn       decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"amount_txn"`
	AmountBase      decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"amount_base"`
	ContractId      *int            `gorm:"index" json:"contract_id"`
	ContractLineId  *int            `gorm:"index" json:"contract_line_id"`
	Status          RunLineStatus   `gorm:"size:20;not null;default:OPEN" json:"status"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *RecognitionRun) GetId() int {
	return r.ID
}

func (l RecognitionRunLine) GetId() int {
	return l.ID
}

func (r *RecognitionRun) IsPosted() bool {
	return r.Status == RunStatusPosted
}

func (r *RecognitionRun) IsReversed() bool {
	return r.Status == RunStatusReversed
}

func GetRun(ctx context.Context, id int) (*RecognitionRun, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationError("business id is required")
	}
	run, err := utils.FetchModel[RecognitionRun](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, utils.NotFoundError("run %d not found", id)
	}
	return run, nil
}

// CountBlockingRunsForScheduleLines counts run lines referencing the given
// schedule lines whose run is still open or posted. Any non-zero count trips
// the rerun guard.
func CountBlockingRunsForScheduleLines(ctx context.Context, tx *gorm.DB, businessId string, scheduleLineIds []int) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&RecognitionRunLine{}).
		Joins("JOIN recognition_runs ON recognition_runs.id = recognition_run_lines.run_id").
		Where("recognition_runs.business_id = ?", businessId).
		Where("recognition_run_lines.schedule_line_id IN ?", scheduleLineIds).
		Where("recognition_runs.status IN ?", []RunStatus{RunStatusDraft, RunStatusReady, RunStatusPosted}).
		Count(&count).Error
	return count, err
}

type RunsConnection struct {
	Edges    []*RunsEdge `json:"edges"`
	PageInfo *PageInfo   `json:"pageInfo"`
}

type RunsEdge struct {
	Cursor string          `json:"cursor"`
	Node   *RecognitionRun `json:"node"`
}

func PaginateRuns(ctx context.Context, limit *int, after *string, legalEntityId *int, family *RecognitionFamily, status *RunStatus, fiscalPeriodId *int) (*RunsConnection, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationError("business id is required")
	}

	decodedCursor, _ := DecodeCursor(after)
	edges := make([]*RunsEdge, *limit)
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

	var results []*RecognitionRun
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
			edges[count] = &RunsEdge{
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

	connection := RunsConnection{
		Edges:    edges[:count],
		PageInfo: &pageInfo,
	}

	return &connection, nil
}
