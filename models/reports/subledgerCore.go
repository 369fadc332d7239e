package reports

import (
	"context"
	"time"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/models"
	"github.com/finacore/recognition_backend/utils"
	"github.com/shopspring/decimal"
)

// SubledgerFilter is the shared predicate for all subledger reports. Date
// bounds are inclusive; a nil bound means unbounded on that side. Families is
// the report variant's allow-list.
type SubledgerFilter struct {
	LegalEntityId *int
	Families      []models.RecognitionFamily
	FromDate      *time.Time
	ToDate        *time.Time
}

func fetchSubledgerEntries(ctx context.Context, filter SubledgerFilter) ([]*models.SubledgerEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationError("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if filter.LegalEntityId != nil && *filter.LegalEntityId > 0 {
		dbCtx = dbCtx.Where("legal_entity_id = ?", *filter.LegalEntityId)
	}
	if len(filter.Families) > 0 {
		dbCtx = dbCtx.Where("family IN ?", filter.Families)
	}
	if filter.FromDate != nil {
		dbCtx = dbCtx.Where("entry_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		dbCtx = dbCtx.Where("entry_date <= ?", *filter.ToDate)
	}

	var entries []*models.SubledgerEntry
	if err := dbCtx.Order("entry_date, id").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// reportKey groups subledger movement the way every report shape presents it.
type reportKey struct {
	LegalEntityId int
	Family        models.RecognitionFamily
	CurrencyCode  string
}

type bucketTotals struct {
	Short decimal.Decimal
	Long  decimal.Decimal
}

func (t bucketTotals) Total() decimal.Decimal {
	return t.Short.Add(t.Long)
}

// applyEntry folds one entry into the short/long totals using the signed
// movement rules: RECOGNITION and REVERSAL rows carry their own sign and land
// in their bucket; RECLASS rows move their amount from long to short.
func applyEntry(t *bucketTotals, e *models.SubledgerEntry) {
	if e.Kind == models.SubledgerEntryKindReclass {
		t.Short = t.Short.Add(e.AmountBase)
		t.Long = t.Long.Sub(e.AmountBase)
		return
	}
	if e.MaturityBucket == models.MaturityBucketLongTerm {
		t.Long = t.Long.Add(e.AmountBase)
	} else {
		t.Short = t.Short.Add(e.AmountBase)
	}
}

// accumulateSplit aggregates entries into per-key bucket totals, preserving
// first-seen key order for stable report output.
func accumulateSplit(entries []*models.SubledgerEntry) (map[reportKey]*bucketTotals, []reportKey) {
	totals := map[reportKey]*bucketTotals{}
	var order []reportKey
	for _, e := range entries {
		key := reportKey{e.LegalEntityId, e.Family, e.CurrencyCode}
		t, ok := totals[key]
		if !ok {
			t = &bucketTotals{Short: decimal.Zero, Long: decimal.Zero}
			totals[key] = t
			order = append(order, key)
		}
		applyEntry(t, e)
	}
	return totals, order
}
