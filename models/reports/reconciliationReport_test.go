package reports

import (
	"testing"
	"time"

	"github.com/finacore/recognition_backend/models"
	"github.com/shopspring/decimal"
)

func postedJournal(id int, totalDebit string) *models.Journal {
	return &models.Journal{
		ID:             id,
		LegalEntityId:  1,
		FiscalPeriodId: 3,
		Family:         models.RecognitionFamilyDeferredRevenue,
		CurrencyCode:   "USD",
		Status:         models.JournalStatusPosted,
		TotalDebitBase: decimal.RequireFromString(totalDebit),
	}
}

func periodEntry(amount string) *models.SubledgerEntry {
	e := entry(models.SubledgerEntryKindRecognition, models.MaturityBucketShortTerm, amount, date(2026, time.March, 31))
	e.FiscalPeriodId = 3
	return e
}

func TestReconcileMatchedGroup(t *testing.T) {
	journals := []*models.Journal{postedJournal(1, "100")}
	entries := []*models.SubledgerEntry{periodEntry("60"), periodEntry("40")}
	resp := reconcile(journals, entries)
	if !resp.Reconciled {
		t.Fatalf("expected reconciled response, got %+v", resp.Groups[0])
	}
	g := resp.Groups[0]
	if !g.DifferenceBase.IsZero() {
		t.Fatalf("difference expected 0, got %s", g.DifferenceBase)
	}
}

func TestReconcileSignAdjustsReversalJournals(t *testing.T) {
	reversal := postedJournal(2, "100")
	reversal.IsReversal = true
	journals := []*models.Journal{postedJournal(1, "100"), reversal}
	// original entries were marked REVERSED and superseded by negations; the
	// group's subledger movement nets to zero
	entries := []*models.SubledgerEntry{periodEntry("100"), periodEntry("-100")}
	resp := reconcile(journals, entries)
	if !resp.Reconciled {
		t.Fatalf("reversal group should reconcile: %+v", resp.Groups[0])
	}
	if !resp.Groups[0].JournalTotalBase.IsZero() {
		t.Fatalf("journal side expected 0 after sign adjustment, got %s", resp.Groups[0].JournalTotalBase)
	}
}

func TestReconcileSignAdjustsSettlementJournals(t *testing.T) {
	settlement := postedJournal(3, "80")
	settlement.IsSettlement = true
	settlement.Family = models.RecognitionFamilyAccruedRevenue
	e := periodEntry("-80")
	e.Family = models.RecognitionFamilyAccruedRevenue
	resp := reconcile([]*models.Journal{settlement}, []*models.SubledgerEntry{e})
	if !resp.Reconciled {
		t.Fatalf("settlement group should reconcile: %+v", resp.Groups[0])
	}
}

func TestReconcileFlagsMismatch(t *testing.T) {
	journals := []*models.Journal{postedJournal(1, "100")}
	entries := []*models.SubledgerEntry{periodEntry("99")}
	resp := reconcile(journals, entries)
	if resp.Reconciled {
		t.Fatalf("one-unit gap must not reconcile")
	}
	g := resp.Groups[0]
	if g.Matches {
		t.Fatalf("group should be flagged as mismatched: %+v", g)
	}
	if !g.DifferenceBase.Equal(decimal.RequireFromString("-1")) {
		t.Fatalf("difference expected -1, got %s", g.DifferenceBase)
	}
}

func TestReconcileToleratesEpsilonRounding(t *testing.T) {
	journals := []*models.Journal{postedJournal(1, "100")}
	entries := []*models.SubledgerEntry{periodEntry("100.000001")}
	resp := reconcile(journals, entries)
	if !resp.Reconciled {
		t.Fatalf("a sub-epsilon difference should still reconcile: %s", resp.Groups[0].DifferenceBase)
	}
}
