package models

import (
	"github.com/shopspring/decimal"
)

// BalanceEpsilon is the tolerance for debit/credit equality checks on base
// currency totals.
var BalanceEpsilon = decimal.New(1, -6)

// --- Recognition families ---

type RecognitionFamily string

const (
	RecognitionFamilyDeferredRevenue RecognitionFamily = "DEFREV"
	RecognitionFamilyPrepaidExpense  RecognitionFamily = "PREPAID_EXPENSE"
	RecognitionFamilyAccruedRevenue  RecognitionFamily = "ACCRUED_REVENUE"
	RecognitionFamilyAccruedExpense  RecognitionFamily = "ACCRUED_EXPENSE"
)

func (f RecognitionFamily) Valid() bool {
	switch f {
	case RecognitionFamilyDeferredRevenue,
		RecognitionFamilyPrepaidExpense,
		RecognitionFamilyAccruedRevenue,
		RecognitionFamilyAccruedExpense:
		return true
	}
	return false
}

// IsAccrual reports whether the family supports the accrual settlement path.
func (f RecognitionFamily) IsAccrual() bool {
	return f == RecognitionFamilyAccruedRevenue || f == RecognitionFamilyAccruedExpense
}

// BalanceSheetIsDebit reports whether the recognition entry debits the
// balance-sheet account for this family (liability release / asset build-up)
// as opposed to crediting it (asset release / liability build-up).
func (f RecognitionFamily) BalanceSheetIsDebit() bool {
	switch f {
	case RecognitionFamilyDeferredRevenue, RecognitionFamilyAccruedRevenue:
		return true
	default:
		return false
	}
}

// BalanceSheetIsLiability reports whether the family's balance-sheet side is
// a liability. Drives the debit/credit direction of maturity reclass entries.
func (f RecognitionFamily) BalanceSheetIsLiability() bool {
	return f == RecognitionFamilyDeferredRevenue || f == RecognitionFamilyAccruedExpense
}

// --- Maturity buckets ---

type MaturityBucket string

const (
	MaturityBucketShortTerm MaturityBucket = "SHORT_TERM"
	MaturityBucketLongTerm  MaturityBucket = "LONG_TERM"
)

// --- Recognition methods (contract lines) ---

type RecognitionMethod string

const (
	RecognitionMethodStraightLine RecognitionMethod = "STRAIGHT_LINE"
	RecognitionMethodMilestone    RecognitionMethod = "MILESTONE"
	RecognitionMethodManual       RecognitionMethod = "MANUAL"
)

// --- Status machines ---

type ScheduleStatus string

const (
	ScheduleStatusDraft    ScheduleStatus = "DRAFT"
	ScheduleStatusReady    ScheduleStatus = "READY"
	ScheduleStatusPosted   ScheduleStatus = "POSTED"
	ScheduleStatusReversed ScheduleStatus = "REVERSED"
)

type ScheduleLineStatus string

const (
	ScheduleLineStatusOpen     ScheduleLineStatus = "OPEN"
	ScheduleLineStatusSettled  ScheduleLineStatus = "SETTLED"
	ScheduleLineStatusReversed ScheduleLineStatus = "REVERSED"
)

type RunStatus string

const (
	RunStatusDraft    RunStatus = "DRAFT"
	RunStatusReady    RunStatus = "READY"
	RunStatusPosted   RunStatus = "POSTED"
	RunStatusReversed RunStatus = "REVERSED"
)

type RunLineStatus string

const (
	RunLineStatusOpen     RunLineStatus = "OPEN"
	RunLineStatusPosted   RunLineStatus = "POSTED"
	RunLineStatusSettled  RunLineStatus = "SETTLED"
	RunLineStatusReversed RunLineStatus = "REVERSED"
)

type JournalStatus string

const (
	JournalStatusPosted   JournalStatus = "POSTED"
	JournalStatusReversed JournalStatus = "REVERSED"
)

type FiscalPeriodStatus string

const (
	FiscalPeriodStatusOpen   FiscalPeriodStatus = "OPEN"
	FiscalPeriodStatusClosed FiscalPeriodStatus = "CLOSED"
)

// --- Subledger entries ---

type SubledgerEntryKind string

const (
	SubledgerEntryKindRecognition SubledgerEntryKind = "RECOGNITION"
	SubledgerEntryKindReclass     SubledgerEntryKind = "RECLASS"
	SubledgerEntryKindReversal    SubledgerEntryKind = "REVERSAL"
)

type SubledgerEntryStatus string

const (
	SubledgerEntryStatusPosted   SubledgerEntryStatus = "POSTED"
	SubledgerEntryStatusReversed SubledgerEntryStatus = "REVERSED"
)

// --- Posting actions ---

// PostingAction selects which ledger treatment a run is posted with. Plain
// recognition supports all four families; accrual settlement only the two
// ACCRUED_* families.
type PostingAction string

const (
	PostingActionRecognition PostingAction = "RECOGNITION"
	PostingActionSettlement  PostingAction = "SETTLEMENT"
)

func (a PostingAction) SupportsFamily(f RecognitionFamily) bool {
	switch a {
	case PostingActionRecognition:
		return f.Valid()
	case PostingActionSettlement:
		return f.IsAccrual()
	}
	return false
}

// --- Accounts ---

type AccountMainType string

const (
	AccountMainTypeAsset     AccountMainType = "Asset"
	AccountMainTypeLiability AccountMainType = "Liability"
	AccountMainTypeEquity    AccountMainType = "Equity"
	AccountMainTypeIncome    AccountMainType = "Income"
	AccountMainTypeExpense   AccountMainType = "Expense"
)

type AccountDetailType string

const (
	AccountDetailTypeOtherCurrentAsset     AccountDetailType = "OtherCurrentAsset"
	AccountDetailTypeOtherAsset            AccountDetailType = "OtherAsset"
	AccountDetailTypeOtherCurrentLiability AccountDetailType = "OtherCurrentLiability"
	AccountDetailTypeLongTermLiability     AccountDetailType = "LongTermLiability"
	AccountDetailTypeOtherLiability        AccountDetailType = "OtherLiability"
	AccountDetailTypeIncome                AccountDetailType = "Income"
	AccountDetailTypeExpense               AccountDetailType = "Expense"
	AccountDetailTypePaymentClearing       AccountDetailType = "PaymentClearing"
)
