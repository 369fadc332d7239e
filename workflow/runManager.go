package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/models"
	"github.com/finacore/recognition_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateRunInput struct {
	LegalEntityId  int                       `json:"legal_entity_id" binding:"required"`
	ScheduleId     *int                      `json:"schedule_id"`
	Family         *models.RecognitionFamily `json:"family"`
	FiscalPeriodId int                       `json:"fiscal_period_id" binding:"required"`
	CurrencyCode   string                    `json:"currency_code"`
	ExchangeRate   decimal.Decimal           `json:"exchange_rate"`
	AmountTxn      decimal.Decimal           `json:"amount_txn"`
	AmountBase     decimal.Decimal           `json:"amount_base"`
	MaturityDate   time.Time                 `json:"maturity_date"`
	SourceEventId  string                    `json:"source_event_id"`
}

// CreateRun materializes a run from a schedule (copying its lines 1:1 after
// the rerun guard passes) or from the payload totals as one synthetic line.
// Duplicate submissions are rejected outright: a second run for the same
// source event is a logic error, not a benign retry.
func CreateRun(ctx context.Context, input *CreateRunInput) (*models.RecognitionRun, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationError("business id is required")
	}
	if err := models.ValidateLegalEntityScope(ctx, businessId, input.LegalEntityId); err != nil {
		return nil, err
	}
	period, err := models.GetOpenFiscalPeriod(ctx, businessId, input.LegalEntityId, input.FiscalPeriodId)
	if err != nil {
		return nil, err
	}
	userName, _ := utils.GetUserNameFromContext(ctx)

	run := models.RecognitionRun{
		BusinessId:        businessId,
		LegalEntityId:     input.LegalEntityId,
		Status:            models.RunStatusReady,
		FiscalPeriodId:    period.ID,
		PeriodWindowStart: period.StartDate,
		PeriodWindowEnd:   period.EndDate,
		CreatedBy:         userName,
	}

	// the rerun guard and the insert share one transaction: the FOR UPDATE
	// on the schedule row serializes concurrent creates over the same
	// schedule, so two callers cannot both pass the guard
	db := config.GetDB()
	if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.ScheduleId != nil && *input.ScheduleId > 0 {
			schedule, err := utils.FetchModelForUpdate[models.RecognitionSchedule](ctx, tx, businessId, *input.ScheduleId, "Lines")
			if err != nil {
				return utils.NotFoundError("schedule %d not found", *input.ScheduleId)
			}
			if schedule.LegalEntityId != input.LegalEntityId {
				return utils.NotFoundError("schedule %d not found", *input.ScheduleId)
			}
			if len(schedule.Lines) == 0 {
				return utils.ValidationError("schedule %d has no lines", schedule.ID)
			}

			// rerun guard: none of these schedule lines may already belong
			// to an open or posted run
			lineIds := make([]int, 0, len(schedule.Lines))
			for _, l := range schedule.Lines {
				lineIds = append(lineIds, l.ID)
			}
			blocking, err := models.CountBlockingRunsForScheduleLines(ctx, tx, businessId, lineIds)
			if err != nil {
				return err
			}
			if blocking > 0 {
				return utils.ConflictError("schedule %d has lines with an open or posted run", schedule.ID)
			}

			run.ScheduleId = &schedule.ID
			run.Family = schedule.Family
			run.MaturityBucket = schedule.MaturityBucket
			run.MaturityDate = schedule.MaturityDate
			run.ReclassRequired = schedule.ReclassRequired
			run.CurrencyCode = schedule.CurrencyCode
			run.ExchangeRate = schedule.ExchangeRate
			run.AmountTxn = schedule.AmountTxn
			run.AmountBase = schedule.AmountBase
			run.SourceEventId = input.SourceEventId
			if run.SourceEventId == "" {
				run.SourceEventId = DeriveDeterministicId("run", businessId, fmt.Sprint(input.LegalEntityId), "schedule", fmt.Sprint(schedule.ID))
			}

			for _, l := range schedule.Lines {
				scheduleLineId := l.ID
				run.Lines = append(run.Lines, models.RecognitionRunLine{
					ScheduleLineId:  &scheduleLineId,
					SourceRowId:     l.SourceRowId,
					BucketDate:      l.BucketDate,
					MaturityBucket:  l.MaturityBucket,
					MaturityDate:    l.MaturityDate,
					ReclassRequired: l.ReclassRequired,
					AmountTxn:       l.AmountTxn,
					AmountBase:      l.AmountBase,
					ContractId:      l.ContractId,
					ContractLineId:  l.ContractLineId,
					Status:          models.RunLineStatusOpen,
				})
			}
		} else {
			if input.Family == nil || !input.Family.Valid() {
				return utils.ValidationError("family is required when no schedule is referenced")
			}
			if input.AmountTxn.Sign() <= 0 || input.AmountBase.Sign() <= 0 {
				return utils.ValidationError("run amounts must be positive")
			}
			if input.CurrencyCode == "" {
				return utils.ValidationError("currency code is required")
			}
			maturityDate := input.MaturityDate
			if maturityDate.IsZero() {
				maturityDate = period.EndDate
			}
			bucket := ClassifyMaturity(maturityDate, period.EndDate)
			exchangeRate := input.ExchangeRate
			if exchangeRate.IsZero() {
				exchangeRate = decimal.NewFromInt(1)
			}

			run.Family = *input.Family
			run.MaturityBucket = bucket
			run.MaturityDate = maturityDate
			run.ReclassRequired = bucket == models.MaturityBucketLongTerm
			run.CurrencyCode = input.CurrencyCode
			run.ExchangeRate = exchangeRate
			run.AmountTxn = input.AmountTxn
			run.AmountBase = input.AmountBase
			run.SourceEventId = input.SourceEventId
			if run.SourceEventId == "" {
				run.SourceEventId = DeriveDeterministicId(
					"run", businessId, fmt.Sprint(input.LegalEntityId), string(run.Family),
					fmt.Sprint(period.ID), input.CurrencyCode, input.AmountTxn.String(),
					maturityDate.Format("2006-01-02"),
				)
			}
			run.Lines = []models.RecognitionRunLine{{
				SourceRowId:     DeriveDeterministicId(run.SourceEventId, maturityDate.Format("2006-01-02")),
				BucketDate:      maturityDate,
				MaturityBucket:  bucket,
				MaturityDate:    maturityDate,
				ReclassRequired: bucket == models.MaturityBucketLongTerm,
				AmountTxn:       input.AmountTxn,
				AmountBase:      input.AmountBase,
				Status:          models.RunLineStatusOpen,
			}}
		}

		seqNo, err := utils.GetSequence[models.RecognitionRun](ctx, businessId)
		if err != nil {
			return err
		}
		run.SequenceNo = decimal.NewFromInt(seqNo)
		run.RunNo = "RUN-" + fmt.Sprint(seqNo)

		if err := tx.Create(&run).Error; err != nil {
			if utils.IsDuplicateKeyError(err) {
				return utils.ConflictError("a run for source event %s already exists", run.SourceEventId)
			}
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &run, nil
}
