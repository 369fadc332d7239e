package reports

import (
	"context"
	"time"

	"github.com/finacore/recognition_backend/models"
	"github.com/shopspring/decimal"
)

type MaturitySplitResponse struct {
	LegalEntityId int                      `json:"legalEntityId"`
	Family        models.RecognitionFamily `json:"family"`
	CurrencyCode  string                   `json:"currencyCode"`
	ShortTermBase decimal.Decimal          `json:"shortTermBase"`
	LongTermBase  decimal.Decimal          `json:"longTermBase"`
	TotalBase     decimal.Decimal          `json:"totalBase"`
}

// GetDeferredRevenueSplitReport reports the deferred revenue position as of
// asOfDate, split into its current and non-current liability portions.
func GetDeferredRevenueSplitReport(ctx context.Context, asOfDate time.Time, legalEntityId *int) ([]*MaturitySplitResponse, error) {
	return getMaturitySplitReport(ctx, asOfDate, legalEntityId,
		[]models.RecognitionFamily{models.RecognitionFamilyDeferredRevenue})
}

// GetAccrualSplitReport covers both accrual families in one report.
func GetAccrualSplitReport(ctx context.Context, asOfDate time.Time, legalEntityId *int) ([]*MaturitySplitResponse, error) {
	return getMaturitySplitReport(ctx, asOfDate, legalEntityId,
		[]models.RecognitionFamily{models.RecognitionFamilyAccruedRevenue, models.RecognitionFamilyAccruedExpense})
}

func GetPrepaidExpenseSplitReport(ctx context.Context, asOfDate time.Time, legalEntityId *int) ([]*MaturitySplitResponse, error) {
	return getMaturitySplitReport(ctx, asOfDate, legalEntityId,
		[]models.RecognitionFamily{models.RecognitionFamilyPrepaidExpense})
}

func getMaturitySplitReport(ctx context.Context, asOfDate time.Time, legalEntityId *int, families []models.RecognitionFamily) ([]*MaturitySplitResponse, error) {
	entries, err := fetchSubledgerEntries(ctx, SubledgerFilter{
		LegalEntityId: legalEntityId,
		Families:      families,
		ToDate:        &asOfDate,
	})
	if err != nil {
		return nil, err
	}
	return buildMaturitySplit(entries), nil
}

func buildMaturitySplit(entries []*models.SubledgerEntry) []*MaturitySplitResponse {
	totals, order := accumulateSplit(entries)
	results := make([]*MaturitySplitResponse, 0, len(order))
	for _, key := range order {
		t := totals[key]
		results = append(results, &MaturitySplitResponse{
			LegalEntityId: key.LegalEntityId,
			Family:        key.Family,
			CurrencyCode:  key.CurrencyCode,
			ShortTermBase: t.Short,
			LongTermBase:  t.Long,
			TotalBase:     t.Total(),
		})
	}
	return results
}
