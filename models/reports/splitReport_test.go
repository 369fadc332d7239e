package reports

import (
	"testing"
	"time"

	"github.com/finacore/recognition_backend/models"
	"github.com/shopspring/decimal"
)

func TestApplyEntryBucketsBySign(t *testing.T) {
	totals := bucketTotals{Short: decimal.Zero, Long: decimal.Zero}
	applyEntry(&totals, entry(models.SubledgerEntryKindRecognition, models.MaturityBucketShortTerm, "100", date(2026, time.January, 31)))
	applyEntry(&totals, entry(models.SubledgerEntryKindRecognition, models.MaturityBucketLongTerm, "40", date(2026, time.January, 31)))
	applyEntry(&totals, entry(models.SubledgerEntryKindReversal, models.MaturityBucketShortTerm, "-25", date(2026, time.February, 28)))
	if !totals.Short.Equal(decimal.RequireFromString("75")) {
		t.Fatalf("short expected 75, got %s", totals.Short)
	}
	if !totals.Long.Equal(decimal.RequireFromString("40")) {
		t.Fatalf("long expected 40, got %s", totals.Long)
	}
	if !totals.Total().Equal(decimal.RequireFromString("115")) {
		t.Fatalf("total expected 115, got %s", totals.Total())
	}
}

func TestApplyEntryReclassShiftsLongToShort(t *testing.T) {
	totals := bucketTotals{Short: decimal.Zero, Long: decimal.RequireFromString("100")}
	applyEntry(&totals, entry(models.SubledgerEntryKindReclass, models.MaturityBucketShortTerm, "60", date(2026, time.March, 31)))
	if !totals.Short.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("short expected 60, got %s", totals.Short)
	}
	if !totals.Long.Equal(decimal.RequireFromString("40")) {
		t.Fatalf("long expected 40, got %s", totals.Long)
	}
}

func TestBuildMaturitySplit(t *testing.T) {
	prepaid := entry(models.SubledgerEntryKindRecognition, models.MaturityBucketLongTerm, "300", date(2026, time.January, 31))
	prepaid.Family = models.RecognitionFamilyPrepaidExpense
	entries := []*models.SubledgerEntry{
		entry(models.SubledgerEntryKindRecognition, models.MaturityBucketShortTerm, "120", date(2026, time.January, 31)),
		entry(models.SubledgerEntryKindRecognition, models.MaturityBucketLongTerm, "80", date(2026, time.January, 31)),
		entry(models.SubledgerEntryKindReclass, models.MaturityBucketShortTerm, "80", date(2026, time.February, 28)),
		prepaid,
	}
	rows := buildMaturitySplit(entries)
	if len(rows) != 2 {
		t.Fatalf("expected one row per family, got %d", len(rows))
	}
	defrev := rows[0]
	if defrev.Family != models.RecognitionFamilyDeferredRevenue {
		t.Fatalf("first row should be the first-seen family, got %s", defrev.Family)
	}
	if !defrev.ShortTermBase.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("short-term expected 200 after reclass, got %s", defrev.ShortTermBase)
	}
	if !defrev.LongTermBase.IsZero() {
		t.Fatalf("long-term expected 0 after reclass, got %s", defrev.LongTermBase)
	}
	if !defrev.TotalBase.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("total expected 200, got %s", defrev.TotalBase)
	}
	if !rows[1].LongTermBase.Equal(decimal.RequireFromString("300")) {
		t.Fatalf("prepaid long-term expected 300, got %s", rows[1].LongTermBase)
	}
}
