package workflow

import (
	"testing"
	"time"

	"github.com/finacore/recognition_backend/models"
	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthEndsBetween(t *testing.T) {
	cases := []struct {
		name     string
		start    time.Time
		end      time.Time
		expected []time.Time
	}{
		{
			"full year",
			date(2026, time.January, 1), date(2026, time.December, 31),
			[]time.Time{
				date(2026, time.January, 31), date(2026, time.February, 28), date(2026, time.March, 31),
				date(2026, time.April, 30), date(2026, time.May, 31), date(2026, time.June, 30),
				date(2026, time.July, 31), date(2026, time.August, 31), date(2026, time.September, 30),
				date(2026, time.October, 31), date(2026, time.November, 30), date(2026, time.December, 31),
			},
		},
		{
			"mid-month start keeps its own month end",
			date(2026, time.January, 15), date(2026, time.March, 31),
			[]time.Time{date(2026, time.January, 31), date(2026, time.February, 28), date(2026, time.March, 31)},
		},
		{
			"end before first month end yields nothing",
			date(2026, time.January, 1), date(2026, time.January, 30),
			nil,
		},
		{
			"leap february",
			date(2028, time.February, 1), date(2028, time.February, 29),
			[]time.Time{date(2028, time.February, 29)},
		},
	}
	for _, tc := range cases {
		got := monthEndsBetween(tc.start, tc.end)
		if len(got) != len(tc.expected) {
			t.Fatalf("%s: expected %d month ends, got %d (%v)", tc.name, len(tc.expected), len(got), got)
		}
		for i := range got {
			if !got[i].Equal(tc.expected[i]) {
				t.Fatalf("%s: month end %d expected %s, got %s", tc.name, i, tc.expected[i], got[i])
			}
		}
	}
}

func TestSplitEvenlySumsBackExactly(t *testing.T) {
	cases := []struct {
		total string
		n     int
	}{
		{"1200", 12},
		{"100", 3},
		{"0.01", 3},
		{"99999.99", 7},
		{"-1200", 12},
	}
	for _, tc := range cases {
		total := decimal.RequireFromString(tc.total)
		parts := SplitEvenly(total, tc.n)
		if len(parts) != tc.n {
			t.Fatalf("SplitEvenly(%s, %d) expected %d parts, got %d", tc.total, tc.n, tc.n, len(parts))
		}
		sum := decimal.Zero
		for _, p := range parts {
			sum = sum.Add(p)
		}
		if !sum.Equal(total) {
			t.Fatalf("SplitEvenly(%s, %d) parts sum to %s", tc.total, tc.n, sum)
		}
	}
}

func TestSplitEvenlyEvenTotalHasEqualParts(t *testing.T) {
	parts := SplitEvenly(decimal.RequireFromString("1200"), 12)
	for i, p := range parts {
		if !p.Equal(decimal.RequireFromString("100")) {
			t.Fatalf("part %d expected 100, got %s", i, p)
		}
	}
}

func TestSplitEvenlyRemainderFoldsIntoLastPart(t *testing.T) {
	parts := SplitEvenly(decimal.RequireFromString("100"), 3)
	per := decimal.RequireFromString("33.333333")
	for i := 0; i < 2; i++ {
		if !parts[i].Equal(per) {
			t.Fatalf("part %d expected %s, got %s", i, per, parts[i])
		}
	}
	if !parts[2].Equal(decimal.RequireFromString("33.333334")) {
		t.Fatalf("last part expected 33.333334, got %s", parts[2])
	}
}

func TestSplitEvenlyRejectsNonPositiveCount(t *testing.T) {
	if parts := SplitEvenly(decimal.RequireFromString("100"), 0); parts != nil {
		t.Fatalf("expected nil for n=0, got %v", parts)
	}
}

func TestClassifyMaturityOneYearThreshold(t *testing.T) {
	periodEnd := date(2026, time.January, 31)
	cases := []struct {
		maturity time.Time
		expected models.MaturityBucket
	}{
		{date(2026, time.June, 30), models.MaturityBucketShortTerm},
		{date(2027, time.January, 31), models.MaturityBucketShortTerm}, // exactly one year out is still short
		{date(2027, time.February, 1), models.MaturityBucketLongTerm},
		{date(2025, time.December, 31), models.MaturityBucketShortTerm},
	}
	for _, tc := range cases {
		if got := ClassifyMaturity(tc.maturity, periodEnd); got != tc.expected {
			t.Fatalf("ClassifyMaturity(%s, %s) expected %s, got %s", tc.maturity, periodEnd, tc.expected, got)
		}
	}
}

func TestComputeContractLineBucketsStraightLine(t *testing.T) {
	period := &models.FiscalPeriod{
		StartDate: date(2026, time.January, 1),
		EndDate:   date(2026, time.January, 31),
	}
	line := &models.ContractLine{
		ID:                1,
		RecognitionMethod: models.RecognitionMethodStraightLine,
		RecognitionStart:  date(2026, time.January, 1),
		RecognitionEnd:    date(2027, time.June, 30),
		AmountTxn:         decimal.RequireFromString("1800"),
		AmountBase:        decimal.RequireFromString("1800"),
	}
	buckets, err := ComputeContractLineBuckets(line, period)
	if err != nil {
		t.Fatalf("ComputeContractLineBuckets: %v", err)
	}
	if len(buckets) != 18 {
		t.Fatalf("expected 18 buckets, got %d", len(buckets))
	}
	if !buckets[0].InWindow {
		t.Fatalf("first bucket (2026-01-31) should be inside the target period")
	}
	if buckets[1].InWindow {
		t.Fatalf("second bucket (2026-02-28) should be outside the target period")
	}
	// buckets after 2027-01-31 are more than a year past the period end
	for i, b := range buckets {
		wantLong := b.Date.After(date(2027, time.January, 31))
		if (b.MaturityBucket == models.MaturityBucketLongTerm) != wantLong {
			t.Fatalf("bucket %d (%s) maturity %s", i, b.Date, b.MaturityBucket)
		}
		if b.ReclassRequired != wantLong {
			t.Fatalf("bucket %d (%s) reclass flag %v", i, b.Date, b.ReclassRequired)
		}
	}
	sum := decimal.Zero
	for _, b := range buckets {
		sum = sum.Add(b.AmountBase)
	}
	if !sum.Equal(line.AmountBase) {
		t.Fatalf("bucket amounts sum to %s, expected %s", sum, line.AmountBase)
	}
}

func TestComputeContractLineBucketsMilestone(t *testing.T) {
	period := &models.FiscalPeriod{
		StartDate: date(2026, time.March, 1),
		EndDate:   date(2026, time.March, 31),
	}
	line := &models.ContractLine{
		ID:                2,
		RecognitionMethod: models.RecognitionMethodMilestone,
		RecognitionStart:  date(2026, time.March, 15),
		RecognitionEnd:    date(2026, time.March, 15),
		AmountTxn:         decimal.RequireFromString("500"),
		AmountBase:        decimal.RequireFromString("500"),
	}
	buckets, err := ComputeContractLineBuckets(line, period)
	if err != nil {
		t.Fatalf("ComputeContractLineBuckets: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	if !buckets[0].AmountBase.Equal(line.AmountBase) {
		t.Fatalf("milestone bucket amount %s, expected %s", buckets[0].AmountBase, line.AmountBase)
	}

	line.RecognitionEnd = date(2026, time.April, 15)
	if _, err := ComputeContractLineBuckets(line, period); err == nil {
		t.Fatalf("milestone with start != end should be rejected")
	}
}

func TestComputeContractLineBucketsRejectsManual(t *testing.T) {
	period := &models.FiscalPeriod{
		StartDate: date(2026, time.January, 1),
		EndDate:   date(2026, time.January, 31),
	}
	line := &models.ContractLine{
		ID:                3,
		RecognitionMethod: models.RecognitionMethodManual,
		RecognitionStart:  date(2026, time.January, 1),
		RecognitionEnd:    date(2026, time.December, 31),
		AmountTxn:         decimal.RequireFromString("100"),
		AmountBase:        decimal.RequireFromString("100"),
	}
	if _, err := ComputeContractLineBuckets(line, period); err == nil {
		t.Fatalf("MANUAL recognition should not generate buckets")
	}
}

func TestDeriveDeterministicId(t *testing.T) {
	a := DeriveDeterministicId("schedule", "biz-1", "7", "DEFERRED_REVENUE")
	b := DeriveDeterministicId("schedule", "biz-1", "7", "DEFERRED_REVENUE")
	if a != b {
		t.Fatalf("same parts should derive the same id: %s vs %s", a, b)
	}
	c := DeriveDeterministicId("schedule", "biz-1", "8", "DEFERRED_REVENUE")
	if a == c {
		t.Fatalf("different parts should derive different ids")
	}
	// joining with a separator keeps ("ab","c") distinct from ("a","bc")
	if DeriveDeterministicId("ab", "c") == DeriveDeterministicId("a", "bc") {
		t.Fatalf("part boundaries should matter")
	}
}
