package models

import "testing"

func TestRecognitionFamilyDirections(t *testing.T) {
	cases := []struct {
		family      RecognitionFamily
		bsIsDebit   bool
		isLiability bool
		isAccrual   bool
	}{
		{RecognitionFamilyDeferredRevenue, true, true, false},
		{RecognitionFamilyPrepaidExpense, false, false, false},
		{RecognitionFamilyAccruedRevenue, true, false, true},
		{RecognitionFamilyAccruedExpense, false, true, true},
	}
	for _, tc := range cases {
		if got := tc.family.BalanceSheetIsDebit(); got != tc.bsIsDebit {
			t.Fatalf("%s BalanceSheetIsDebit expected %v, got %v", tc.family, tc.bsIsDebit, got)
		}
		if got := tc.family.BalanceSheetIsLiability(); got != tc.isLiability {
			t.Fatalf("%s BalanceSheetIsLiability expected %v, got %v", tc.family, tc.isLiability, got)
		}
		if got := tc.family.IsAccrual(); got != tc.isAccrual {
			t.Fatalf("%s IsAccrual expected %v, got %v", tc.family, tc.isAccrual, got)
		}
	}
}

func TestPostingActionSupportsFamily(t *testing.T) {
	for _, f := range []RecognitionFamily{
		RecognitionFamilyDeferredRevenue, RecognitionFamilyPrepaidExpense,
		RecognitionFamilyAccruedRevenue, RecognitionFamilyAccruedExpense,
	} {
		if !PostingActionRecognition.SupportsFamily(f) {
			t.Fatalf("recognition should support %s", f)
		}
		if PostingActionSettlement.SupportsFamily(f) != f.IsAccrual() {
			t.Fatalf("settlement support for %s should track IsAccrual", f)
		}
	}
	if PostingActionRecognition.SupportsFamily("BOGUS") {
		t.Fatalf("invalid families are never supported")
	}
}

func TestPurposeCodeForCoversEveryFamilyRole(t *testing.T) {
	for _, f := range []RecognitionFamily{
		RecognitionFamilyDeferredRevenue, RecognitionFamilyPrepaidExpense,
		RecognitionFamilyAccruedRevenue, RecognitionFamilyAccruedExpense,
	} {
		for _, role := range []PurposeRole{PurposeRoleBalanceSheetShort, PurposeRoleBalanceSheetLong, PurposeRoleProfitAndLoss} {
			if _, err := PurposeCodeFor(f, role); err != nil {
				t.Fatalf("PurposeCodeFor(%s, %s): %v", f, role, err)
			}
		}
		_, err := PurposeCodeFor(f, PurposeRoleSettlement)
		if f.IsAccrual() && err != nil {
			t.Fatalf("accrual family %s should have a settlement slot: %v", f, err)
		}
		if !f.IsAccrual() && err == nil {
			t.Fatalf("non-accrual family %s should have no settlement slot", f)
		}
	}
}

func TestBalanceSheetRoleFor(t *testing.T) {
	if BalanceSheetRoleFor(MaturityBucketShortTerm) != PurposeRoleBalanceSheetShort {
		t.Fatalf("short bucket should resolve the short slot")
	}
	if BalanceSheetRoleFor(MaturityBucketLongTerm) != PurposeRoleBalanceSheetLong {
		t.Fatalf("long bucket should resolve the long slot")
	}
}
