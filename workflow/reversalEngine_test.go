package workflow

import (
	"testing"

	"github.com/finacore/recognition_backend/models"
	"github.com/shopspring/decimal"
)

func TestMirrorJournalLinesSwapsDebitAndCredit(t *testing.T) {
	original := []models.JournalLine{
		{AccountId: 10, Description: "release", DebitTxn: decimal.RequireFromString("100"), DebitBase: decimal.RequireFromString("100")},
		{AccountId: 20, Description: "revenue", CreditTxn: decimal.RequireFromString("100"), CreditBase: decimal.RequireFromString("100")},
	}
	mirrored := mirrorJournalLines(original)
	if len(mirrored) != len(original) {
		t.Fatalf("expected %d mirrored lines, got %d", len(original), len(mirrored))
	}
	for i := range original {
		o, m := original[i], mirrored[i]
		if m.AccountId != o.AccountId || m.Description != o.Description {
			t.Fatalf("line %d should keep account and description: %+v", i, m)
		}
		if !m.DebitBase.Equal(o.CreditBase) || !m.CreditBase.Equal(o.DebitBase) {
			t.Fatalf("line %d base amounts not swapped: %+v", i, m)
		}
		if !m.DebitTxn.Equal(o.CreditTxn) || !m.CreditTxn.Equal(o.DebitTxn) {
			t.Fatalf("line %d txn amounts not swapped: %+v", i, m)
		}
	}
}

func TestMirrorJournalLinesNetsToZeroPerAccount(t *testing.T) {
	original, totalDebit, totalCredit := buildJournalLines(
		models.PostingActionRecognition,
		models.RecognitionFamilyDeferredRevenue,
		[]lineAllocation{
			{
				Line:                  runLine("100", "100"),
				BalanceSheetAccountId: 30, ProfitLossAccountId: 40,
				ReclassFromAccountId: 31, ReclassToAccountId: 30,
			},
			{Line: runLine("55.5", "55.5"), BalanceSheetAccountId: 30, ProfitLossAccountId: 40},
		})
	mirrored := mirrorJournalLines(original)

	net := map[int]decimal.Decimal{}
	for _, jl := range original {
		net[jl.AccountId] = jl.DebitBase.Sub(jl.CreditBase)
	}
	for _, jl := range mirrored {
		net[jl.AccountId] = net[jl.AccountId].Add(jl.DebitBase.Sub(jl.CreditBase))
	}
	for accountId, d := range net {
		if !d.IsZero() {
			t.Fatalf("account %d does not net to zero after reversal: %s", accountId, d)
		}
	}

	// the mirror's totals are the original's, swapped
	var mirrorDebit, mirrorCredit decimal.Decimal
	for _, jl := range mirrored {
		mirrorDebit = mirrorDebit.Add(jl.DebitBase)
		mirrorCredit = mirrorCredit.Add(jl.CreditBase)
	}
	if !mirrorDebit.Equal(totalCredit) || !mirrorCredit.Equal(totalDebit) {
		t.Fatalf("mirror totals expected %s/%s, got %s/%s", totalCredit, totalDebit, mirrorDebit, mirrorCredit)
	}
}
