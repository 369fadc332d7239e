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

type PostRunInput struct {
	RunId          int    `json:"run_id" binding:"required"`
	FiscalPeriodId *int   `json:"fiscal_period_id"`
	Notes          string `json:"notes"`
}

// lineAllocation pairs one open run line with the accounts its journal lines
// will hit. ReclassFrom/To are zero unless the line still sits in the
// long-term slot with the reclass flag set.
type lineAllocation struct {
	Line *models.RecognitionRunLine

	BalanceSheetAccountId int
	ProfitLossAccountId   int

	ReclassFromAccountId int
	ReclassToAccountId   int
}

// PostRun posts the run's open lines due on or before the target period end as
// one balanced journal: recognition releases the balance-sheet position into
// profit and loss.
func PostRun(ctx context.Context, input *PostRunInput) (*models.RecognitionRun, error) {
	return postRunWithAction(ctx, input, models.PostingActionRecognition)
}

// SettleAccrualRun settles a posted-to-be accrual run against the family's
// settlement clearing account instead of profit and loss. Only the two
// ACCRUED_* families support it.
func SettleAccrualRun(ctx context.Context, input *PostRunInput) (*models.RecognitionRun, error) {
	return postRunWithAction(ctx, input, models.PostingActionSettlement)
}

func postRunWithAction(ctx context.Context, input *PostRunInput, action models.PostingAction) (*models.RecognitionRun, error) {
	ctx, span := tracer.Start(ctx, "workflow.postRun")
	defer span.End()
	span.SetAttributes(attribute.Int("run_id", input.RunId), attribute.String("action", string(action)))

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
	var posted postingOutcome
	if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// GET_LOCK is connection-scoped: the release must run on the
		// transaction's own connection before it returns to the pool
		if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
			return err
		}
		defer ReleaseBusinessPostingLock(tx, businessId)
		return postRunInTx(ctx, tx, input, action, businessId, userName, &posted)
	}); err != nil {
		return nil, err
	}

	config.GetLogger().WithFields(map[string]interface{}{
		"module":     "workflow",
		"run_no":     posted.RunNo,
		"journal_no": posted.JournalNo,
		"action":     action,
		"lines":      posted.LineCount,
	}).Info("run posted")

	return models.GetRun(ctx, posted.RunId)
}

// postingOutcome carries the identifiers the caller logs and reloads after
// the transaction commits.
type postingOutcome struct {
	RunId     int
	RunNo     string
	JournalNo string
	LineCount int
}

func postRunInTx(ctx context.Context, tx *gorm.DB, input *PostRunInput, action models.PostingAction, businessId string, userName string, posted *postingOutcome) error {
	run, err := utils.FetchModelForUpdate[models.RecognitionRun](ctx, tx, businessId, input.RunId, "Lines")
	if err != nil {
		return utils.NotFoundError("run %d not found", input.RunId)
	}
	if run.IsPosted() {
		return utils.ConflictError("run %s is already posted", run.RunNo)
	}
	if run.IsReversed() {
		return utils.ConflictError("run %s is reversed", run.RunNo)
	}
	if !action.SupportsFamily(run.Family) {
		return utils.ValidationError("action %s does not support family %s", action, run.Family)
	}

	periodId := run.FiscalPeriodId
	if input.FiscalPeriodId != nil && *input.FiscalPeriodId > 0 {
		periodId = *input.FiscalPeriodId
	}
	period, err := models.GetOpenFiscalPeriod(ctx, businessId, run.LegalEntityId, periodId)
	if err != nil {
		return err
	}
	if action == models.PostingActionSettlement && run.MaturityDate.After(period.EndDate) {
		return utils.ValidationError("run %s matures %s, after the settlement period end %s",
			run.RunNo, run.MaturityDate.Format("2006-01-02"), period.EndDate.Format("2006-01-02"))
	}

	var dueLines []*models.RecognitionRunLine
	for i := range run.Lines {
		l := &run.Lines[i]
		if l.Status == models.RunLineStatusOpen && !l.BucketDate.After(period.EndDate) {
			dueLines = append(dueLines, l)
		}
	}
	if len(dueLines) == 0 {
		return utils.ValidationError("run %s has no open lines due on or before %s",
			run.RunNo, period.EndDate.Format("2006-01-02"))
	}

	allocations, err := resolveLineAccounts(ctx, businessId, run, dueLines, action)
	if err != nil {
		return err
	}

	journalLines, totalDebit, totalCredit := buildJournalLines(action, run.Family, allocations)
	if totalDebit.Sub(totalCredit).Abs().Cmp(models.BalanceEpsilon) > 0 {
		err := fmt.Errorf("journal for run %s is out of balance: debit %s credit %s",
			run.RunNo, totalDebit.String(), totalCredit.String())
		config.LogError(config.GetLogger(), "workflow", "postRunInTx", "balance check", run, err)
		return err
	}

	seqNo, err := utils.GetSequence[models.Journal](ctx, businessId)
	if err != nil {
		return err
	}
	journal := models.Journal{
		BusinessId:      businessId,
		LegalEntityId:   run.LegalEntityId,
		JournalNo:       "JRN-" + fmt.Sprint(seqNo),
		SequenceNo:      decimal.NewFromInt(seqNo),
		JournalDate:     period.EndDate,
		FiscalPeriodId:  period.ID,
		Family:          run.Family,
		CurrencyCode:    run.CurrencyCode,
		ExchangeRate:    run.ExchangeRate,
		Notes:           input.Notes,
		RunId:           run.ID,
		Status:          models.JournalStatusPosted,
		IsSettlement:    action == models.PostingActionSettlement,
		TotalDebitBase:  totalDebit,
		TotalCreditBase: totalCredit,
		Lines:           journalLines,
		CreatedBy:       userName,
	}
	if err := tx.Create(&journal).Error; err != nil {
		return err
	}

	// journal lines are aggregated by account, so several subledger entries may
	// point at the same journal line
	journalLineByAccount := make(map[int]int, len(journal.Lines))
	for _, jl := range journal.Lines {
		journalLineByAccount[jl.AccountId] = jl.ID
	}

	now := time.Now()
	lineStatus := models.RunLineStatusPosted
	if action == models.PostingActionSettlement {
		lineStatus = models.RunLineStatusSettled
	}
	var scheduleLineIds []int
	for _, alloc := range allocations {
		l := alloc.Line
		entryAmountTxn := l.AmountTxn
		entryAmountBase := l.AmountBase
		if action == models.PostingActionSettlement {
			entryAmountTxn = entryAmountTxn.Neg()
			entryAmountBase = entryAmountBase.Neg()
		}
		entry := models.SubledgerEntry{
			BusinessId:     businessId,
			LegalEntityId:  run.LegalEntityId,
			RunId:          run.ID,
			RunLineId:      l.ID,
			JournalId:      journal.ID,
			JournalLineId:  journalLineByAccount[alloc.BalanceSheetAccountId],
			Kind:           models.SubledgerEntryKindRecognition,
			Family:         run.Family,
			MaturityBucket: l.MaturityBucket,
			MaturityDate:   l.MaturityDate,
			FiscalPeriodId: period.ID,
			EntryDate:      period.EndDate,
			CurrencyCode:   run.CurrencyCode,
			AmountTxn:      entryAmountTxn,
			AmountBase:     entryAmountBase,
			Status:         models.SubledgerEntryStatusPosted,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"status": lineStatus}
		if alloc.ReclassFromAccountId > 0 {
			reclass := models.SubledgerEntry{
				BusinessId:     businessId,
				LegalEntityId:  run.LegalEntityId,
				RunId:          run.ID,
				RunLineId:      l.ID,
				JournalId:      journal.ID,
				JournalLineId:  journalLineByAccount[alloc.ReclassToAccountId],
				Kind:           models.SubledgerEntryKindReclass,
				Family:         run.Family,
				MaturityBucket: models.MaturityBucketShortTerm,
				MaturityDate:   l.MaturityDate,
				FiscalPeriodId: period.ID,
				EntryDate:      period.EndDate,
				CurrencyCode:   run.CurrencyCode,
				AmountTxn:      l.AmountTxn,
				AmountBase:     l.AmountBase,
				Status:         models.SubledgerEntryStatusPosted,
			}
			if err := tx.Create(&reclass).Error; err != nil {
				return err
			}
			updates["maturity_bucket"] = models.MaturityBucketShortTerm
			updates["reclass_required"] = false
		}
		if err := tx.Model(&models.RecognitionRunLine{}).Where("id = ?", l.ID).Updates(updates).Error; err != nil {
			return err
		}
		if l.ScheduleLineId != nil {
			scheduleLineIds = append(scheduleLineIds, *l.ScheduleLineId)
		}
	}

	if len(scheduleLineIds) > 0 {
		if err := tx.Model(&models.RecognitionScheduleLine{}).
			Where("id IN ?", scheduleLineIds).
			Update("status", models.ScheduleLineStatusSettled).Error; err != nil {
			return err
		}
	}

	runUpdates := map[string]interface{}{
		"status":     models.RunStatusPosted,
		"journal_id": journal.ID,
		"posted_by":  userName,
		"posted_at":  now,
	}
	if err := tx.Model(&models.RecognitionRun{}).Where("id = ?", run.ID).Updates(runUpdates).Error; err != nil {
		return err
	}
	if run.ScheduleId != nil {
		if err := tx.Model(&models.RecognitionSchedule{}).
			Where("id = ?", *run.ScheduleId).
			Update("status", models.ScheduleStatusPosted).Error; err != nil {
			return err
		}
	}

	posted.RunId = run.ID
	posted.RunNo = run.RunNo
	posted.JournalNo = journal.JournalNo
	posted.LineCount = len(dueLines)
	return nil
}

// needsMaturityReclass reports whether posting this line first moves its
// amount from the long-term to the short-term balance-sheet slot, i.e. the
// line is still tagged LONG_TERM and carries the reclass flag from
// generation.
func needsMaturityReclass(action models.PostingAction, l *models.RecognitionRunLine) bool {
	return action == models.PostingActionRecognition &&
		l.MaturityBucket == models.MaturityBucketLongTerm &&
		l.ReclassRequired
}

// resolveLineAccounts picks the balance-sheet and offset accounts per due
// line. Contract-line overrides win over purpose-code mappings; settlement
// always offsets against the family's clearing purpose account.
func resolveLineAccounts(ctx context.Context, businessId string, run *models.RecognitionRun, dueLines []*models.RecognitionRunLine, action models.PostingAction) ([]lineAllocation, error) {
	codes := make([]models.PurposeCode, 0, 4)
	shortCode, err := models.PurposeCodeFor(run.Family, models.PurposeRoleBalanceSheetShort)
	if err != nil {
		return nil, err
	}
	longCode, err := models.PurposeCodeFor(run.Family, models.PurposeRoleBalanceSheetLong)
	if err != nil {
		return nil, err
	}
	codes = append(codes, shortCode, longCode)

	offsetRole := models.PurposeRoleProfitAndLoss
	if action == models.PostingActionSettlement {
		offsetRole = models.PurposeRoleSettlement
	}
	offsetCode, err := models.PurposeCodeFor(run.Family, offsetRole)
	if err != nil {
		return nil, err
	}
	codes = append(codes, offsetCode)

	byCode, err := models.ResolvePurposeAccounts(ctx, businessId, run.LegalEntityId, codes)
	if err != nil {
		return nil, err
	}

	// contract-line overrides apply to recognition only; settlement must hit
	// the mapped clearing account
	overrides := map[int]*models.ContractLine{}
	if action == models.PostingActionRecognition {
		var contractLineIds []int
		for _, l := range dueLines {
			if l.ContractLineId != nil && *l.ContractLineId > 0 {
				contractLineIds = append(contractLineIds, *l.ContractLineId)
			}
		}
		if len(contractLineIds) > 0 {
			contractLines, err := models.GetContractLines(ctx, businessId, run.LegalEntityId, contractLineIds)
			if err != nil {
				return nil, err
			}
			overrideAccountIds := make([]int, 0)
			for _, cl := range contractLines {
				if cl.HasAccountOverrides() {
					overrides[cl.ID] = cl
					overrideAccountIds = append(overrideAccountIds, *cl.BalanceSheetAccountId, *cl.ProfitLossAccountId)
				}
			}
			if len(overrideAccountIds) > 0 {
				if _, err := models.GetPostingAccounts(ctx, businessId, run.LegalEntityId, overrideAccountIds); err != nil {
					return nil, err
				}
			}
		}
	}

	allocations := make([]lineAllocation, 0, len(dueLines))
	for _, l := range dueLines {
		alloc := lineAllocation{Line: l}

		if l.MaturityBucket == models.MaturityBucketLongTerm {
			alloc.BalanceSheetAccountId = byCode[longCode]
		} else {
			alloc.BalanceSheetAccountId = byCode[shortCode]
		}
		alloc.ProfitLossAccountId = byCode[offsetCode]

		if l.ContractLineId != nil {
			if cl, ok := overrides[*l.ContractLineId]; ok {
				alloc.BalanceSheetAccountId = *cl.BalanceSheetAccountId
				alloc.ProfitLossAccountId = *cl.ProfitLossAccountId
			}
		}

		// flagged long positions reclass into the short slot before
		// recognition hits them; settlement clears the balance wherever it
		// sits instead
		if needsMaturityReclass(action, l) {
			alloc.ReclassFromAccountId = byCode[longCode]
			alloc.ReclassToAccountId = byCode[shortCode]
			alloc.BalanceSheetAccountId = byCode[shortCode]
			if l.ContractLineId != nil {
				if _, ok := overrides[*l.ContractLineId]; ok {
					// overridden lines keep their single balance-sheet account,
					// nothing to move between maturity slots
					alloc.ReclassFromAccountId = 0
					alloc.ReclassToAccountId = 0
					alloc.BalanceSheetAccountId = *overrides[*l.ContractLineId].BalanceSheetAccountId
				}
			}
		}

		allocations = append(allocations, alloc)
	}
	return allocations, nil
}

// buildJournalLines folds the allocations into journal lines aggregated by
// account and returns them with the base debit/credit totals.
func buildJournalLines(action models.PostingAction, family models.RecognitionFamily, allocations []lineAllocation) ([]models.JournalLine, decimal.Decimal, decimal.Decimal) {
	type amounts struct {
		debitTxn, creditTxn   decimal.Decimal
		debitBase, creditBase decimal.Decimal
	}
	byAccount := map[int]*amounts{}
	var order []int
	get := func(accountId int) *amounts {
		if a, ok := byAccount[accountId]; ok {
			return a
		}
		a := &amounts{
			debitTxn: decimal.Zero, creditTxn: decimal.Zero,
			debitBase: decimal.Zero, creditBase: decimal.Zero,
		}
		byAccount[accountId] = a
		order = append(order, accountId)
		return a
	}

	bsIsDebit := family.BalanceSheetIsDebit()
	if action == models.PostingActionSettlement {
		// settlement moves value out of the accrual balance, so the
		// balance-sheet side flips relative to recognition
		bsIsDebit = !bsIsDebit
	}
	bsIsLiability := family.BalanceSheetIsLiability()
	for _, alloc := range allocations {
		l := alloc.Line

		bs := get(alloc.BalanceSheetAccountId)
		pl := get(alloc.ProfitLossAccountId)
		if bsIsDebit {
			bs.debitTxn = bs.debitTxn.Add(l.AmountTxn)
			bs.debitBase = bs.debitBase.Add(l.AmountBase)
			pl.creditTxn = pl.creditTxn.Add(l.AmountTxn)
			pl.creditBase = pl.creditBase.Add(l.AmountBase)
		} else {
			pl.debitTxn = pl.debitTxn.Add(l.AmountTxn)
			pl.debitBase = pl.debitBase.Add(l.AmountBase)
			bs.creditTxn = bs.creditTxn.Add(l.AmountTxn)
			bs.creditBase = bs.creditBase.Add(l.AmountBase)
		}

		if alloc.ReclassFromAccountId > 0 && alloc.ReclassToAccountId > 0 {
			from := get(alloc.ReclassFromAccountId)
			to := get(alloc.ReclassToAccountId)
			if bsIsLiability {
				// release the long liability, build the short one
				from.debitTxn = from.debitTxn.Add(l.AmountTxn)
				from.debitBase = from.debitBase.Add(l.AmountBase)
				to.creditTxn = to.creditTxn.Add(l.AmountTxn)
				to.creditBase = to.creditBase.Add(l.AmountBase)
			} else {
				to.debitTxn = to.debitTxn.Add(l.AmountTxn)
				to.debitBase = to.debitBase.Add(l.AmountBase)
				from.creditTxn = from.creditTxn.Add(l.AmountTxn)
				from.creditBase = from.creditBase.Add(l.AmountBase)
			}
		}
	}

	lines := make([]models.JournalLine, 0, len(order))
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, accountId := range order {
		a := byAccount[accountId]
		lines = append(lines, models.JournalLine{
			AccountId:  accountId,
			DebitTxn:   a.debitTxn,
			CreditTxn:  a.creditTxn,
			DebitBase:  a.debitBase,
			CreditBase: a.creditBase,
		})
		totalDebit = totalDebit.Add(a.debitBase)
		totalCredit = totalCredit.Add(a.creditBase)
	}
	return lines, totalDebit, totalCredit
}
