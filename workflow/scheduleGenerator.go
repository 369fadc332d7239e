package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/models"
	"github.com/finacore/recognition_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// sourceEventNamespace seeds deterministic identifiers: resubmitting the same
// payload derives the same UUID and trips the unique index instead of
// creating a second row.
var sourceEventNamespace = uuid.MustParse("c1f9f6a2-50f0-4bd0-9d3e-7a13f52b4ad1")

func DeriveDeterministicId(parts ...string) string {
	return uuid.NewSHA1(sourceEventNamespace, []byte(strings.Join(parts, "|"))).String()
}

// recognitionBucket is one computed time bucket before persistence.
type recognitionBucket struct {
	Date            time.Time
	AmountTxn       decimal.Decimal
	AmountBase      decimal.Decimal
	MaturityBucket  models.MaturityBucket
	ReclassRequired bool
	InWindow        bool
}

// ClassifyMaturity tags a maturity date SHORT_TERM or LONG_TERM against the
// one-year threshold from the period's end date.
func ClassifyMaturity(maturityDate, periodEnd time.Time) models.MaturityBucket {
	if maturityDate.After(periodEnd.AddDate(1, 0, 0)) {
		return models.MaturityBucketLongTerm
	}
	return models.MaturityBucketShortTerm
}

// monthEndsBetween returns every calendar month end between start and end
// inclusive. A start after the last month end of its own month still counts
// that month's end when it is not after end.
func monthEndsBetween(start, end time.Time) []time.Time {
	var ends []time.Time
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for {
		monthEnd := cursor.AddDate(0, 1, -1)
		if monthEnd.After(end) {
			break
		}
		if !monthEnd.Before(start) {
			ends = append(ends, monthEnd)
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	return ends
}

// SplitEvenly divides total across n buckets at 6 decimal places, folding the
// rounding remainder into the last bucket so the parts sum back exactly.
func SplitEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	per := total.DivRound(decimal.NewFromInt(int64(n)), 6)
	parts := make([]decimal.Decimal, n)
	running := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = per
		running = running.Add(per)
	}
	parts[n-1] = total.Sub(running)
	return parts
}

// ComputeContractLineBuckets derives the recognition buckets for one contract
// line against a target period. Out-of-window buckets are computed (they feed
// the schedule's maturity totals) but flagged for non-persistence.
func ComputeContractLineBuckets(line *models.ContractLine, period *models.FiscalPeriod) ([]recognitionBucket, error) {
	var dates []time.Time
	switch line.RecognitionMethod {
	case models.RecognitionMethodStraightLine:
		dates = monthEndsBetween(line.RecognitionStart, line.RecognitionEnd)
		if len(dates) == 0 {
			return nil, utils.ValidationError("contract line %d has no month ends between recognition start and end", line.ID)
		}
	case models.RecognitionMethodMilestone:
		if !line.RecognitionStart.Equal(line.RecognitionEnd) {
			return nil, utils.ValidationError("contract line %d: milestone recognition requires start equal to end", line.ID)
		}
		dates = []time.Time{line.RecognitionStart}
	case models.RecognitionMethodManual:
		return nil, utils.ValidationError("contract line %d uses MANUAL recognition and cannot be generated automatically", line.ID)
	default:
		return nil, utils.ValidationError("contract line %d has unsupported recognition method %s", line.ID, line.RecognitionMethod)
	}

	txnParts := SplitEvenly(line.AmountTxn, len(dates))
	baseParts := SplitEvenly(line.AmountBase, len(dates))

	buckets := make([]recognitionBucket, len(dates))
	for i, d := range dates {
		bucket := ClassifyMaturity(d, period.EndDate)
		buckets[i] = recognitionBucket{
			Date:            d,
			AmountTxn:       txnParts[i],
			AmountBase:      baseParts[i],
			MaturityBucket:  bucket,
			ReclassRequired: bucket == models.MaturityBucketLongTerm,
			InWindow:        period.ContainsDate(d),
		}
	}
	return buckets, nil
}

type GenerateScheduleInput struct {
	LegalEntityId  int                      `json:"legal_entity_id" binding:"required"`
	Family         models.RecognitionFamily `json:"family" binding:"required"`
	FiscalPeriodId int                      `json:"fiscal_period_id" binding:"required"`
	CurrencyCode   string                   `json:"currency_code" binding:"required"`
	ExchangeRate   decimal.Decimal          `json:"exchange_rate"`
	AmountTxn      decimal.Decimal          `json:"amount_txn" binding:"required"`
	AmountBase     decimal.Decimal          `json:"amount_base" binding:"required"`
	MaturityDate   time.Time                `json:"maturity_date"`
	SourceEventId  string                   `json:"source_event_id"`
	Notes          string                   `json:"notes"`
}

func (input *GenerateScheduleInput) validate(ctx context.Context, businessId string) error {
	if !input.Family.Valid() {
		return utils.ValidationError("unsupported recognition family %s", input.Family)
	}
	if input.AmountTxn.Sign() <= 0 || input.AmountBase.Sign() <= 0 {
		return utils.ValidationError("schedule amounts must be positive")
	}
	if input.CurrencyCode == "" {
		return utils.ValidationError("currency code is required")
	}
	if err := models.ValidateLegalEntityScope(ctx, businessId, input.LegalEntityId); err != nil {
		return err
	}
	return nil
}

// GenerateScheduleResult reports whether the returned schedule was created by
// this call or replayed from an identical earlier submission.
type GenerateScheduleResult struct {
	Schedule         *models.RecognitionSchedule `json:"schedule"`
	IdempotentReplay bool                        `json:"idempotent_replay"`
}

// GenerateSchedule creates one schedule with a single line from a posted
// amount. Resubmission of identical input resolves to the prior row.
func GenerateSchedule(ctx context.Context, input *GenerateScheduleInput) (*GenerateScheduleResult, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationError("business id is required")
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}
	period, err := models.GetOpenFiscalPeriod(ctx, businessId, input.LegalEntityId, input.FiscalPeriodId)
	if err != nil {
		return nil, err
	}

	maturityDate := input.MaturityDate
	if maturityDate.IsZero() {
		maturityDate = period.EndDate
	}
	bucket := ClassifyMaturity(maturityDate, period.EndDate)

	sourceEventId := input.SourceEventId
	if sourceEventId == "" {
		sourceEventId = DeriveDeterministicId(
			businessId,
			fmt.Sprint(input.LegalEntityId),
			string(input.Family),
			fmt.Sprint(input.FiscalPeriodId),
			input.CurrencyCode,
			input.AmountTxn.String(),
			input.AmountBase.String(),
			maturityDate.Format("2006-01-02"),
		)
	}

	exchangeRate := input.ExchangeRate
	if exchangeRate.IsZero() {
		exchangeRate = decimal.NewFromInt(1)
	}
	userName, _ := utils.GetUserNameFromContext(ctx)

	schedule := models.RecognitionSchedule{
		BusinessId:        businessId,
		LegalEntityId:     input.LegalEntityId,
		SourceEventId:     sourceEventId,
		Status:            models.ScheduleStatusReady,
		Family:            input.Family,
		MaturityBucket:    bucket,
		MaturityDate:      maturityDate,
		ReclassRequired:   bucket == models.MaturityBucketLongTerm,
		CurrencyCode:      input.CurrencyCode,
		ExchangeRate:      exchangeRate,
		AmountTxn:         input.AmountTxn,
		AmountBase:        input.AmountBase,
		FiscalPeriodId:    period.ID,
		PeriodWindowStart: period.StartDate,
		PeriodWindowEnd:   period.EndDate,
		CreatedBy:         userName,
		Lines: []models.RecognitionScheduleLine{{
			SourceRowId:     DeriveDeterministicId(sourceEventId, maturityDate.Format("2006-01-02")),
			BucketDate:      maturityDate,
			MaturityBucket:  bucket,
			MaturityDate:    maturityDate,
			ReclassRequired: bucket == models.MaturityBucketLongTerm,
			AmountTxn:       input.AmountTxn,
			AmountBase:      input.AmountBase,
			Status:          models.ScheduleLineStatusOpen,
		}},
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	outcome, err := utils.InsertOrGet(tx, &schedule,
		"business_id = ? AND legal_entity_id = ? AND source_event_id = ?",
		businessId, input.LegalEntityId, sourceEventId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if !outcome.Created {
		existing, err := models.GetSchedule(ctx, outcome.Existing.ID)
		if err != nil {
			return nil, err
		}
		return &GenerateScheduleResult{Schedule: existing, IdempotentReplay: true}, nil
	}
	return &GenerateScheduleResult{Schedule: &schedule}, nil
}

type GenerateFromContractInput struct {
	LegalEntityId         int                      `json:"legal_entity_id" binding:"required"`
	Family                models.RecognitionFamily `json:"family" binding:"required"`
	FiscalPeriodId        int                      `json:"fiscal_period_id" binding:"required"`
	ContractLineIds       []int                    `json:"contract_line_ids" binding:"required"`
	RegenerateMissingOnly *bool                    `json:"regenerate_missing_only"`
}

// GenerateSchedulesFromContract derives one schedule per selected contract
// line. Re-invocation appends only missing buckets when regenerateMissingOnly
// is unset or true, and fails loudly on duplicates otherwise.
func GenerateSchedulesFromContract(ctx context.Context, input *GenerateFromContractInput) ([]*models.RecognitionSchedule, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationError("business id is required")
	}
	if !input.Family.Valid() {
		return nil, utils.ValidationError("unsupported recognition family %s", input.Family)
	}
	if len(input.ContractLineIds) == 0 {
		return nil, utils.ValidationError("at least one contract line is required")
	}
	if err := models.ValidateLegalEntityScope(ctx, businessId, input.LegalEntityId); err != nil {
		return nil, err
	}
	period, err := models.GetOpenFiscalPeriod(ctx, businessId, input.LegalEntityId, input.FiscalPeriodId)
	if err != nil {
		return nil, err
	}

	contractLines, err := models.GetContractLines(ctx, businessId, input.LegalEntityId, input.ContractLineIds)
	if err != nil {
		return nil, err
	}

	missingOnly := input.RegenerateMissingOnly == nil || *input.RegenerateMissingOnly
	userName, _ := utils.GetUserNameFromContext(ctx)

	db := config.GetDB()
	schedules := make([]*models.RecognitionSchedule, 0, len(contractLines))

	for _, line := range contractLines {
		buckets, err := ComputeContractLineBuckets(line, period)
		if err != nil {
			return nil, err
		}

		sourceEventId := DeriveDeterministicId(
			businessId,
			fmt.Sprint(input.LegalEntityId),
			string(input.Family),
			fmt.Sprint(period.ID),
			"contract-line",
			fmt.Sprint(line.ID),
		)

		tx := db.WithContext(ctx).Begin()
		schedule, err := generateContractLineSchedule(ctx, tx, businessId, input, period, line, buckets, sourceEventId, missingOnly, userName)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Commit().Error; err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

func generateContractLineSchedule(
	ctx context.Context,
	tx *gorm.DB,
	businessId string,
	input *GenerateFromContractInput,
	period *models.FiscalPeriod,
	line *models.ContractLine,
	buckets []recognitionBucket,
	sourceEventId string,
	missingOnly bool,
	userName string,
) (*models.RecognitionSchedule, error) {

	// header maturity is derived from ALL buckets, including the ones outside
	// the period window that never become lines
	longBase := decimal.Zero
	totalBase := decimal.Zero
	reclass := false
	var maturityDate time.Time
	for _, b := range buckets {
		totalBase = totalBase.Add(b.AmountBase)
		if b.MaturityBucket == models.MaturityBucketLongTerm {
			longBase = longBase.Add(b.AmountBase)
			reclass = true
		}
		if b.Date.After(maturityDate) {
			maturityDate = b.Date
		}
	}
	headerBucket := models.MaturityBucketShortTerm
	if longBase.Cmp(totalBase.Sub(longBase)) > 0 {
		headerBucket = models.MaturityBucketLongTerm
	}

	exchangeRate := line.ExchangeRate
	if exchangeRate.IsZero() {
		exchangeRate = decimal.NewFromInt(1)
	}

	header := models.RecognitionSchedule{
		BusinessId:        businessId,
		LegalEntityId:     input.LegalEntityId,
		SourceEventId:     sourceEventId,
		Status:            models.ScheduleStatusReady,
		Family:            input.Family,
		MaturityBucket:    headerBucket,
		MaturityDate:      maturityDate,
		ReclassRequired:   reclass,
		CurrencyCode:      line.CurrencyCode,
		ExchangeRate:      exchangeRate,
		FiscalPeriodId:    period.ID,
		PeriodWindowStart: period.StartDate,
		PeriodWindowEnd:   period.EndDate,
		CreatedBy:         userName,
	}
	outcome, err := utils.InsertOrGet(tx, &header,
		"business_id = ? AND legal_entity_id = ? AND source_event_id = ?",
		businessId, input.LegalEntityId, sourceEventId)
	if err != nil {
		return nil, err
	}
	schedule := outcome.Existing

	if !outcome.Created && !missingOnly {
		return nil, utils.ConflictError("schedule for contract line %d already exists", line.ID)
	}

	for _, b := range buckets {
		if !b.InWindow {
			continue
		}
		scheduleLine := models.RecognitionScheduleLine{
			ScheduleId:      schedule.ID,
			SourceRowId:     DeriveDeterministicId(sourceEventId, b.Date.Format("2006-01-02")),
			BucketDate:      b.Date,
			MaturityBucket:  b.MaturityBucket,
			MaturityDate:    b.Date,
			ReclassRequired: b.ReclassRequired,
			AmountTxn:       b.AmountTxn,
			AmountBase:      b.AmountBase,
			ContractId:      &line.ContractId,
			ContractLineId:  &line.ID,
			Status:          models.ScheduleLineStatusOpen,
		}
		lineOutcome, err := utils.InsertOrGet(tx, &scheduleLine,
			"schedule_id = ? AND source_row_id = ?", schedule.ID, scheduleLine.SourceRowId)
		if err != nil {
			return nil, err
		}
		if !lineOutcome.Created && !missingOnly {
			return nil, utils.ConflictError("schedule %d already has a bucket for %s", schedule.ID, b.Date.Format("2006-01-02"))
		}
	}

	// amounts from persisted lines; maturity fields from the full bucket set
	if err := models.RecomputeScheduleAggregates(ctx, tx, schedule.ID); err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&models.RecognitionSchedule{}).
		Where("id = ?", schedule.ID).
		Updates(map[string]interface{}{
			"maturity_bucket":  headerBucket,
			"maturity_date":    maturityDate,
			"reclass_required": reclass,
		}).Error; err != nil {
		return nil, err
	}

	var refreshed models.RecognitionSchedule
	if err := tx.WithContext(ctx).Preload("Lines").First(&refreshed, schedule.ID).Error; err != nil {
		return nil, err
	}
	return &refreshed, nil
}
