package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/models"
	"github.com/finacore/recognition_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type ReverseRunInput struct {
	RunId          int    `json:"run_id" binding:"required"`
	FiscalPeriodId *int   `json:"fiscal_period_id"`
	Notes          string `json:"notes"`
}

// mirrorJournalLines swaps every debit and credit, keeping account order and
// descriptions intact.
func mirrorJournalLines(original []models.JournalLine) []models.JournalLine {
	mirrored := make([]models.JournalLine, 0, len(original))
	for _, jl := range original {
		mirrored = append(mirrored, models.JournalLine{
			AccountId:   jl.AccountId,
			Description: jl.Description,
			DebitTxn:    jl.CreditTxn,
			CreditTxn:   jl.DebitTxn,
			DebitBase:   jl.CreditBase,
			CreditBase:  jl.DebitBase,
		})
	}
	return mirrored
}

// ReverseRun produces the exact structural mirror of a posted run: a new
// journal with every debit and credit swapped, a reversal run linked to the
// original, and negated subledger entries superseding the originals. The
// original artifacts are only ever marked REVERSED, never mutated otherwise.
func ReverseRun(ctx context.Context, input *ReverseRunInput) (*models.RecognitionRun, error) {
	ctx, span := tracer.Start(ctx, "workflow.reverseRun")
	defer span.End()
	span.SetAttributes(attribute.Int("run_id", input.RunId))

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationError("business id is required")
	}
	userName, _ := utils.GetUserNameFromContext(ctx)

	redisLock, err := AcquireRunPostingLock(ctx, businessId, input.RunId)
	if err != nil {
		return nil, err
	}
	defer ReleaseRunPostingLock(ctx, redisLock)

	db := config.GetDB()
	var reversed reversalOutcome
	if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// GET_LOCK is connection-scoped: the release must run on the
		// transaction's own connection before it returns to the pool
		if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
			return err
		}
		defer ReleaseBusinessPostingLock(tx, businessId)
		return reverseRunInTx(ctx, tx, input, businessId, userName, &reversed)
	}); err != nil {
		return nil, err
	}

	config.GetLogger().WithFields(map[string]interface{}{
		"module":      "workflow",
		"run_no":      reversed.RunNo,
		"mirror_no":   reversed.MirrorNo,
		"reversal_of": reversed.OriginalRunId,
	}).Info("run reversed")

	return models.GetRun(ctx, reversed.ReversalRunId)
}

// reversalOutcome carries the identifiers the caller logs and reloads after
// the transaction commits.
type reversalOutcome struct {
	OriginalRunId int
	ReversalRunId int
	RunNo         string
	MirrorNo      string
}

func reverseRunInTx(ctx context.Context, tx *gorm.DB, input *ReverseRunInput, businessId string, userName string, reversed *reversalOutcome) error {
	run, err := utils.FetchModelForUpdate[models.RecognitionRun](ctx, tx, businessId, input.RunId, "Lines")
	if err != nil {
		return utils.NotFoundError("run %d not found", input.RunId)
	}
	if run.IsReversed() {
		return utils.ConflictError("run %s is already reversed", run.RunNo)
	}
	if !run.IsPosted() || run.JournalId == nil {
		return utils.ConflictError("run %s is not posted, nothing to reverse", run.RunNo)
	}

	original, err := utils.FetchModel[models.Journal](ctx, businessId, *run.JournalId, "Lines")
	if err != nil {
		return utils.NotFoundError("journal %d not found", *run.JournalId)
	}
	if original.Status == models.JournalStatusReversed {
		return utils.ConflictError("journal %s is already reversed", original.JournalNo)
	}

	periodId := original.FiscalPeriodId
	if input.FiscalPeriodId != nil && *input.FiscalPeriodId > 0 {
		periodId = *input.FiscalPeriodId
	}
	period, err := models.GetOpenFiscalPeriod(ctx, businessId, run.LegalEntityId, periodId)
	if err != nil {
		return err
	}
	// maturity boundary guard, same rule the settlement path enforces
	if run.Family.IsAccrual() && period.EndDate.Before(run.MaturityDate) {
		return utils.ValidationError("run %s matures %s, after the reversal period end %s",
			run.RunNo, run.MaturityDate.Format("2006-01-02"), period.EndDate.Format("2006-01-02"))
	}

	seqNo, err := utils.GetSequence[models.Journal](ctx, businessId)
	if err != nil {
		return err
	}
	mirror := models.Journal{
		BusinessId:        businessId,
		LegalEntityId:     run.LegalEntityId,
		JournalNo:         "REV-" + original.JournalNo,
		SequenceNo:        decimal.NewFromInt(seqNo),
		JournalDate:       period.EndDate,
		FiscalPeriodId:    period.ID,
		Family:            original.Family,
		CurrencyCode:      original.CurrencyCode,
		ExchangeRate:      original.ExchangeRate,
		Notes:             input.Notes,
		RunId:             run.ID,
		Status:            models.JournalStatusPosted,
		IsReversal:        true,
		ReversesJournalId: &original.ID,
		TotalDebitBase:    original.TotalCreditBase,
		TotalCreditBase:   original.TotalDebitBase,
		CreatedBy:         userName,
	}
	mirror.Lines = mirrorJournalLines(original.Lines)
	if err := tx.Create(&mirror).Error; err != nil {
		return err
	}

	now := time.Now()
	if err := tx.Model(&models.Journal{}).Where("id = ?", original.ID).Updates(map[string]interface{}{
		"status":                 models.JournalStatusReversed,
		"reversed_by_journal_id": mirror.ID,
		"reversed_at":            now,
	}).Error; err != nil {
		return err
	}

	runSeqNo, err := utils.GetSequence[models.RecognitionRun](ctx, businessId)
	if err != nil {
		return err
	}
	reversalRun := models.RecognitionRun{
		BusinessId:        businessId,
		LegalEntityId:     run.LegalEntityId,
		RunNo:             "RUN-" + fmt.Sprint(runSeqNo),
		SequenceNo:        decimal.NewFromInt(runSeqNo),
		SourceEventId:     DeriveDeterministicId("reversal", businessId, fmt.Sprint(run.LegalEntityId), "run", fmt.Sprint(run.ID)),
		ScheduleId:        run.ScheduleId,
		ReversalOfRunId:   &run.ID,
		Status:            models.RunStatusPosted,
		Family:            run.Family,
		MaturityBucket:    run.MaturityBucket,
		MaturityDate:      run.MaturityDate,
		ReclassRequired:   false,
		CurrencyCode:      run.CurrencyCode,
		ExchangeRate:      run.ExchangeRate,
		AmountTxn:         run.AmountTxn.Neg(),
		AmountBase:        run.AmountBase.Neg(),
		FiscalPeriodId:    period.ID,
		PeriodWindowStart: period.StartDate,
		PeriodWindowEnd:   period.EndDate,
		JournalId:         &mirror.ID,
		CreatedBy:         userName,
		PostedBy:          userName,
		PostedAt:          &now,
	}
	for _, l := range run.Lines {
		reversalRun.Lines = append(reversalRun.Lines, models.RecognitionRunLine{
			ScheduleLineId:  l.ScheduleLineId,
			SourceRowId:     DeriveDeterministicId("reversal", fmt.Sprint(run.ID), l.SourceRowId),
			BucketDate:      l.BucketDate,
			MaturityBucket:  l.MaturityBucket,
			MaturityDate:    l.MaturityDate,
			AmountTxn:       l.AmountTxn.Neg(),
			AmountBase:      l.AmountBase.Neg(),
			ContractId:      l.ContractId,
			ContractLineId:  l.ContractLineId,
			Status:          models.RunLineStatusPosted,
		})
	}
	if err := tx.Create(&reversalRun).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return utils.ConflictError("run %s already has a reversal run", run.RunNo)
		}
		return err
	}

	reversalLineByOriginal := make(map[int]int, len(reversalRun.Lines))
	for i, l := range run.Lines {
		if i < len(reversalRun.Lines) {
			reversalLineByOriginal[l.ID] = reversalRun.Lines[i].ID
		}
	}

	var entries []*models.SubledgerEntry
	if err := tx.Where("business_id = ? AND run_id = ? AND status = ?",
		businessId, run.ID, models.SubledgerEntryStatusPosted).
		Find(&entries).Error; err != nil {
		return err
	}
	for _, e := range entries {
		runLineId := e.RunLineId
		if mapped, ok := reversalLineByOriginal[e.RunLineId]; ok {
			runLineId = mapped
		}
		negated := models.SubledgerEntry{
			BusinessId:     businessId,
			LegalEntityId:  e.LegalEntityId,
			RunId:          reversalRun.ID,
			RunLineId:      runLineId,
			JournalId:      mirror.ID,
			ReversesId:     &e.ID,
			Kind:           models.SubledgerEntryKindReversal,
			Family:         e.Family,
			MaturityBucket: e.MaturityBucket,
			MaturityDate:   e.MaturityDate,
			FiscalPeriodId: period.ID,
			EntryDate:      period.EndDate,
			CurrencyCode:   e.CurrencyCode,
			AmountTxn:      e.AmountTxn.Neg(),
			AmountBase:     e.AmountBase.Neg(),
			Status:         models.SubledgerEntryStatusPosted,
		}
		if err := tx.Create(&negated).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.SubledgerEntry{}).Where("id = ?", e.ID).
			Update("status", models.SubledgerEntryStatusReversed).Error; err != nil {
			return err
		}
	}

	if err := tx.Model(&models.RecognitionRunLine{}).Where("run_id = ?", run.ID).
		Update("status", models.RunLineStatusReversed).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.RecognitionRun{}).Where("id = ?", run.ID).Updates(map[string]interface{}{
		"status":              models.RunStatusReversed,
		"reversal_journal_id": mirror.ID,
		"reversed_by":         userName,
		"reversed_at":         now,
	}).Error; err != nil {
		return err
	}

	if run.ScheduleId != nil {
		var scheduleLineIds []int
		for _, l := range run.Lines {
			if l.ScheduleLineId != nil {
				scheduleLineIds = append(scheduleLineIds, *l.ScheduleLineId)
			}
		}
		if len(scheduleLineIds) > 0 {
			if err := tx.Model(&models.RecognitionScheduleLine{}).
				Where("id IN ?", scheduleLineIds).
				Update("status", models.ScheduleLineStatusReversed).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.RecognitionSchedule{}).
			Where("id = ?", *run.ScheduleId).
			Update("status", models.ScheduleStatusReversed).Error; err != nil {
			return err
		}
	}

	reversed.OriginalRunId = run.ID
	reversed.ReversalRunId = reversalRun.ID
	reversed.RunNo = run.RunNo
	reversed.MirrorNo = mirror.JournalNo
	return nil
}
