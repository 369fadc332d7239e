package reports

import (
	"context"
	"time"

	"github.com/finacore/recognition_backend/models"
	"github.com/finacore/recognition_backend/utils"
	"github.com/shopspring/decimal"
)

type RollforwardResponse struct {
	LegalEntityId int                      `json:"legalEntityId"`
	Family        models.RecognitionFamily `json:"family"`
	CurrencyCode  string                   `json:"currencyCode"`

	OpeningBase  decimal.Decimal `json:"openingBase"`
	MovementBase decimal.Decimal `json:"movementBase"`
	ClosingBase  decimal.Decimal `json:"closingBase"`

	ClosingShortBase decimal.Decimal `json:"closingShortBase"`
	ClosingLongBase  decimal.Decimal `json:"closingLongBase"`
}

// GetRollforwardReport splits cumulative subledger movement per (legal entity,
// family, currency) into opening (strictly before fromDate), movement (within
// the window, both dates inclusive) and closing (cumulative through toDate),
// with the closing balance additionally split short/long.
func GetRollforwardReport(ctx context.Context, fromDate time.Time, toDate time.Time, legalEntityId *int, family *models.RecognitionFamily) ([]*RollforwardResponse, error) {
	if toDate.Before(fromDate) {
		return nil, utils.ValidationError("toDate %s is before fromDate %s",
			toDate.Format("2006-01-02"), fromDate.Format("2006-01-02"))
	}

	var families []models.RecognitionFamily
	if family != nil && *family != "" {
		if !family.Valid() {
			return nil, utils.ValidationError("unknown family %s", *family)
		}
		families = []models.RecognitionFamily{*family}
	}

	// a single unbounded-from fetch covers opening, movement and closing
	entries, err := fetchSubledgerEntries(ctx, SubledgerFilter{
		LegalEntityId: legalEntityId,
		Families:      families,
		ToDate:        &toDate,
	})
	if err != nil {
		return nil, err
	}
	return buildRollforward(entries, fromDate), nil
}

func buildRollforward(entries []*models.SubledgerEntry, fromDate time.Time) []*RollforwardResponse {
	type rollforwardTotals struct {
		opening  decimal.Decimal
		movement decimal.Decimal
		closing  bucketTotals
	}
	totals := map[reportKey]*rollforwardTotals{}
	var order []reportKey

	for _, e := range entries {
		key := reportKey{e.LegalEntityId, e.Family, e.CurrencyCode}
		t, ok := totals[key]
		if !ok {
			t = &rollforwardTotals{
				opening:  decimal.Zero,
				movement: decimal.Zero,
				closing:  bucketTotals{Short: decimal.Zero, Long: decimal.Zero},
			}
			totals[key] = t
			order = append(order, key)
		}
		// RECLASS rows only move amount between buckets, they never change the
		// scalar balance
		if e.Kind != models.SubledgerEntryKindReclass {
			if e.EntryDate.Before(fromDate) {
				t.opening = t.opening.Add(e.AmountBase)
			} else {
				t.movement = t.movement.Add(e.AmountBase)
			}
		}
		applyEntry(&t.closing, e)
	}

	results := make([]*RollforwardResponse, 0, len(order))
	for _, key := range order {
		t := totals[key]
		results = append(results, &RollforwardResponse{
			LegalEntityId:    key.LegalEntityId,
			Family:           key.Family,
			CurrencyCode:     key.CurrencyCode,
			OpeningBase:      t.opening,
			MovementBase:     t.movement,
			ClosingBase:      t.opening.Add(t.movement),
			ClosingShortBase: t.closing.Short,
			ClosingLongBase:  t.closing.Long,
		})
	}
	return results
}
