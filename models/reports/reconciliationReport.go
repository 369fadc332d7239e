package reports

import (
	"context"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/models"
	"github.com/finacore/recognition_backend/utils"
	"github.com/shopspring/decimal"
)

type ReconciliationGroup struct {
	LegalEntityId  int                      `json:"legalEntityId"`
	FiscalPeriodId int                      `json:"fiscalPeriodId"`
	Family         models.RecognitionFamily `json:"family"`
	CurrencyCode   string                   `json:"currencyCode"`

	JournalTotalBase   decimal.Decimal `json:"journalTotalBase"`
	SubledgerTotalBase decimal.Decimal `json:"subledgerTotalBase"`
	DifferenceBase     decimal.Decimal `json:"differenceBase"`
	Matches            bool            `json:"matches"`
}

type ReconciliationResponse struct {
	Reconciled bool                   `json:"reconciled"`
	Groups     []*ReconciliationGroup `json:"groups"`
}

// GetReconciliationReport cross-checks the subledger against the journals this
// engine produced. Per (legal entity, fiscal period, family, currency) group
// it compares the signed subledger total with the journals' total-debit
// figure, sign-adjusted for reversal and settlement journals whose subledger
// movement is negative by convention. The report is reconciled only when every
// group matches within the balance epsilon.
func GetReconciliationReport(ctx context.Context, fiscalPeriodId *int, legalEntityId *int) (*ReconciliationResponse, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationError("business id is required")
	}

	db := config.GetDB()
	journalQuery := db.WithContext(ctx).
		Where("business_id = ? AND status = ?", businessId, models.JournalStatusPosted)
	if fiscalPeriodId != nil && *fiscalPeriodId > 0 {
		journalQuery = journalQuery.Where("fiscal_period_id = ?", *fiscalPeriodId)
	}
	if legalEntityId != nil && *legalEntityId > 0 {
		journalQuery = journalQuery.Where("legal_entity_id = ?", *legalEntityId)
	}
	var journals []*models.Journal
	if err := journalQuery.Find(&journals).Error; err != nil {
		return nil, err
	}

	journalIds := make([]int, 0, len(journals))
	for _, j := range journals {
		journalIds = append(journalIds, j.ID)
	}
	var entries []*models.SubledgerEntry
	if len(journalIds) > 0 {
		if err := db.WithContext(ctx).
			Where("business_id = ? AND journal_id IN ?", businessId, journalIds).
			Find(&entries).Error; err != nil {
			return nil, err
		}
	}

	return reconcile(journals, entries), nil
}

type reconciliationKey struct {
	LegalEntityId  int
	FiscalPeriodId int
	Family         models.RecognitionFamily
	CurrencyCode   string
}

// reconcile is the pure comparison core over already-loaded rows.
func reconcile(journals []*models.Journal, entries []*models.SubledgerEntry) *ReconciliationResponse {
	groups := map[reconciliationKey]*ReconciliationGroup{}
	var order []reconciliationKey
	get := func(key reconciliationKey) *ReconciliationGroup {
		if g, ok := groups[key]; ok {
			return g
		}
		g := &ReconciliationGroup{
			LegalEntityId:      key.LegalEntityId,
			FiscalPeriodId:     key.FiscalPeriodId,
			Family:             key.Family,
			CurrencyCode:       key.CurrencyCode,
			JournalTotalBase:   decimal.Zero,
			SubledgerTotalBase: decimal.Zero,
		}
		groups[key] = g
		order = append(order, key)
		return g
	}

	for _, j := range journals {
		g := get(reconciliationKey{j.LegalEntityId, j.FiscalPeriodId, j.Family, j.CurrencyCode})
		signed := j.TotalDebitBase
		if j.IsReversal || j.IsSettlement {
			signed = signed.Neg()
		}
		g.JournalTotalBase = g.JournalTotalBase.Add(signed)
	}
	for _, e := range entries {
		g := get(reconciliationKey{e.LegalEntityId, e.FiscalPeriodId, e.Family, e.CurrencyCode})
		g.SubledgerTotalBase = g.SubledgerTotalBase.Add(e.AmountBase)
	}

	response := &ReconciliationResponse{Reconciled: true}
	for _, key := range order {
		g := groups[key]
		g.DifferenceBase = g.SubledgerTotalBase.Sub(g.JournalTotalBase)
		g.Matches = g.DifferenceBase.Abs().Cmp(models.BalanceEpsilon) <= 0
		if !g.Matches {
			response.Reconciled = false
		}
		response.Groups = append(response.Groups, g)
	}
	return response
}
