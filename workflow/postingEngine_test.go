package workflow

import (
	"testing"

	"github.com/finacore/recognition_backend/models"
	"github.com/shopspring/decimal"
)

func runLine(txn, base string) *models.RecognitionRunLine {
	return &models.RecognitionRunLine{
		AmountTxn:  decimal.RequireFromString(txn),
		AmountBase: decimal.RequireFromString(base),
	}
}

func lineFor(lines []models.JournalLine, accountId int) *models.JournalLine {
	for i := range lines {
		if lines[i].AccountId == accountId {
			return &lines[i]
		}
	}
	return nil
}

func TestBuildJournalLinesDeferredRevenueRecognition(t *testing.T) {
	allocations := []lineAllocation{
		{Line: runLine("100", "100"), BalanceSheetAccountId: 10, ProfitLossAccountId: 20},
	}
	lines, totalDebit, totalCredit := buildJournalLines(
		models.PostingActionRecognition, models.RecognitionFamilyDeferredRevenue, allocations)
	if len(lines) != 2 {
		t.Fatalf("expected 2 journal lines, got %d", len(lines))
	}
	bs := lineFor(lines, 10)
	pl := lineFor(lines, 20)
	if bs == nil || pl == nil {
		t.Fatalf("missing balance-sheet or P&L line: %+v", lines)
	}
	// recognition releases the deferred revenue liability into revenue
	if !bs.DebitBase.Equal(decimal.RequireFromString("100")) || !bs.CreditBase.IsZero() {
		t.Fatalf("liability line should be a 100 debit, got debit %s credit %s", bs.DebitBase, bs.CreditBase)
	}
	if !pl.CreditBase.Equal(decimal.RequireFromString("100")) || !pl.DebitBase.IsZero() {
		t.Fatalf("revenue line should be a 100 credit, got debit %s credit %s", pl.DebitBase, pl.CreditBase)
	}
	if !totalDebit.Equal(totalCredit) {
		t.Fatalf("unbalanced journal: debit %s credit %s", totalDebit, totalCredit)
	}
}

func TestBuildJournalLinesPrepaidExpenseRecognition(t *testing.T) {
	allocations := []lineAllocation{
		{Line: runLine("40", "40"), BalanceSheetAccountId: 11, ProfitLossAccountId: 21},
	}
	lines, _, _ := buildJournalLines(
		models.PostingActionRecognition, models.RecognitionFamilyPrepaidExpense, allocations)
	bs := lineFor(lines, 11)
	pl := lineFor(lines, 21)
	// prepaid release charges expense and credits the asset
	if !pl.DebitBase.Equal(decimal.RequireFromString("40")) {
		t.Fatalf("expense line should be a 40 debit, got %s", pl.DebitBase)
	}
	if !bs.CreditBase.Equal(decimal.RequireFromString("40")) {
		t.Fatalf("asset line should be a 40 credit, got %s", bs.CreditBase)
	}
}

func TestBuildJournalLinesSettlementFlipsBalanceSheetSide(t *testing.T) {
	allocations := []lineAllocation{
		{Line: runLine("75", "75"), BalanceSheetAccountId: 12, ProfitLossAccountId: 22},
	}
	lines, totalDebit, totalCredit := buildJournalLines(
		models.PostingActionSettlement, models.RecognitionFamilyAccruedRevenue, allocations)
	bs := lineFor(lines, 12)
	clearing := lineFor(lines, 22)
	// accrued revenue is a debit-balance asset; settlement credits it out
	// against the clearing account
	if !bs.CreditBase.Equal(decimal.RequireFromString("75")) || !bs.DebitBase.IsZero() {
		t.Fatalf("accrual line should be a 75 credit, got debit %s credit %s", bs.DebitBase, bs.CreditBase)
	}
	if !clearing.DebitBase.Equal(decimal.RequireFromString("75")) {
		t.Fatalf("clearing line should be a 75 debit, got %s", clearing.DebitBase)
	}
	if !totalDebit.Equal(totalCredit) {
		t.Fatalf("unbalanced journal: debit %s credit %s", totalDebit, totalCredit)
	}
}

func TestBuildJournalLinesLiabilityReclass(t *testing.T) {
	allocations := []lineAllocation{
		{
			Line:                  runLine("100", "100"),
			BalanceSheetAccountId: 30, ProfitLossAccountId: 40,
			ReclassFromAccountId: 31, ReclassToAccountId: 30,
		},
	}
	lines, totalDebit, totalCredit := buildJournalLines(
		models.PostingActionRecognition, models.RecognitionFamilyDeferredRevenue, allocations)
	if len(lines) != 3 {
		t.Fatalf("expected 3 journal lines, got %d", len(lines))
	}
	long := lineFor(lines, 31)
	short := lineFor(lines, 30)
	// liability reclass debits the long bucket and credits the short one;
	// the short account also carries the recognition debit
	if !long.DebitBase.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("long liability should be a 100 debit, got %s", long.DebitBase)
	}
	if !short.CreditBase.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("short liability should carry a 100 reclass credit, got %s", short.CreditBase)
	}
	if !short.DebitBase.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("short liability should carry the 100 recognition debit, got %s", short.DebitBase)
	}
	if !totalDebit.Equal(totalCredit) {
		t.Fatalf("unbalanced journal: debit %s credit %s", totalDebit, totalCredit)
	}
}

func TestBuildJournalLinesAssetReclass(t *testing.T) {
	allocations := []lineAllocation{
		{
			Line:                  runLine("60", "60"),
			BalanceSheetAccountId: 50, ProfitLossAccountId: 60,
			ReclassFromAccountId: 51, ReclassToAccountId: 50,
		},
	}
	lines, _, _ := buildJournalLines(
		models.PostingActionRecognition, models.RecognitionFamilyPrepaidExpense, allocations)
	long := lineFor(lines, 51)
	short := lineFor(lines, 50)
	// asset reclass is the mirror image: credit long, debit short
	if !long.CreditBase.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("long asset should be a 60 credit, got %s", long.CreditBase)
	}
	if !short.DebitBase.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("short asset should carry a 60 reclass debit, got %s", short.DebitBase)
	}
}

func TestBuildJournalLinesAggregatesByAccount(t *testing.T) {
	allocations := []lineAllocation{
		{Line: runLine("10", "10"), BalanceSheetAccountId: 70, ProfitLossAccountId: 80},
		{Line: runLine("20", "20"), BalanceSheetAccountId: 70, ProfitLossAccountId: 80},
		{Line: runLine("30.5", "30.5"), BalanceSheetAccountId: 70, ProfitLossAccountId: 80},
	}
	lines, totalDebit, totalCredit := buildJournalLines(
		models.PostingActionRecognition, models.RecognitionFamilyDeferredRevenue, allocations)
	if len(lines) != 2 {
		t.Fatalf("three run lines over two accounts should fold into 2 journal lines, got %d", len(lines))
	}
	bs := lineFor(lines, 70)
	if !bs.DebitBase.Equal(decimal.RequireFromString("60.5")) {
		t.Fatalf("aggregated debit expected 60.5, got %s", bs.DebitBase)
	}
	if !totalDebit.Equal(decimal.RequireFromString("60.5")) || !totalCredit.Equal(totalDebit) {
		t.Fatalf("totals expected 60.5/60.5, got %s/%s", totalDebit, totalCredit)
	}
}

func TestBuildJournalLinesBalancesWithUnevenSplits(t *testing.T) {
	parts := SplitEvenly(decimal.RequireFromString("100"), 3)
	allocations := make([]lineAllocation, 0, len(parts))
	for _, p := range parts {
		allocations = append(allocations, lineAllocation{
			Line:                  &models.RecognitionRunLine{AmountTxn: p, AmountBase: p},
			BalanceSheetAccountId: 90, ProfitLossAccountId: 91,
		})
	}
	_, totalDebit, totalCredit := buildJournalLines(
		models.PostingActionRecognition, models.RecognitionFamilyDeferredRevenue, allocations)
	if totalDebit.Sub(totalCredit).Abs().GreaterThan(models.BalanceEpsilon) {
		t.Fatalf("journal out of balance beyond epsilon: debit %s credit %s", totalDebit, totalCredit)
	}
	if !totalDebit.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("total debit expected 100, got %s", totalDebit)
	}
}

func TestNeedsMaturityReclass(t *testing.T) {
	flagged := &models.RecognitionRunLine{
		MaturityBucket:  models.MaturityBucketLongTerm,
		ReclassRequired: true,
	}
	cases := []struct {
		name   string
		action models.PostingAction
		line   *models.RecognitionRunLine
		want   bool
	}{
		{"recognition of flagged long line", models.PostingActionRecognition, flagged, true},
		{"settlement never reclasses", models.PostingActionSettlement, flagged, false},
		{"short line stays put", models.PostingActionRecognition, &models.RecognitionRunLine{
			MaturityBucket: models.MaturityBucketShortTerm, ReclassRequired: true}, false},
		{"long line without the flag", models.PostingActionRecognition, &models.RecognitionRunLine{
			MaturityBucket: models.MaturityBucketLongTerm}, false},
	}
	for _, c := range cases {
		if got := needsMaturityReclass(c.action, c.line); got != c.want {
			t.Fatalf("%s: needsMaturityReclass = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestLongMaturityLineReclassesOnRecognition(t *testing.T) {
	// a line generated long before its maturity: due in the current period
	// but maturing 14 months past the period end
	periodEnd := date(2026, 1, 31)
	maturityDate := date(2027, 3, 31)
	line := &models.RecognitionRunLine{
		BucketDate:      periodEnd,
		MaturityBucket:  ClassifyMaturity(maturityDate, date(2025, 12, 31)),
		MaturityDate:    maturityDate,
		ReclassRequired: true,
		AmountTxn:       decimal.RequireFromString("100"),
		AmountBase:      decimal.RequireFromString("100"),
	}
	if line.MaturityBucket != models.MaturityBucketLongTerm {
		t.Fatalf("line maturing 14 months out should classify LONG_TERM, got %s", line.MaturityBucket)
	}
	if !needsMaturityReclass(models.PostingActionRecognition, line) {
		t.Fatal("flagged long-term line must reclass before recognition")
	}

	alloc := lineAllocation{Line: line, BalanceSheetAccountId: 50, ProfitLossAccountId: 60}
	alloc.ReclassFromAccountId = 51
	alloc.ReclassToAccountId = 50
	lines, totalDebit, totalCredit := buildJournalLines(
		models.PostingActionRecognition, models.RecognitionFamilyDeferredRevenue, []lineAllocation{alloc})
	if len(lines) != 3 {
		t.Fatalf("expected reclass pair plus recognition pair folded to 3 lines, got %d", len(lines))
	}
	long := lineFor(lines, 51)
	short := lineFor(lines, 50)
	if long == nil || !long.DebitBase.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("long slot should carry the 100 reclass debit: %+v", long)
	}
	if !short.CreditBase.Equal(decimal.RequireFromString("100")) || !short.DebitBase.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("short slot should carry the reclass credit and the recognition debit, got debit %s credit %s",
			short.DebitBase, short.CreditBase)
	}
	if !totalDebit.Equal(totalCredit) {
		t.Fatalf("unbalanced journal: debit %s credit %s", totalDebit, totalCredit)
	}
}
