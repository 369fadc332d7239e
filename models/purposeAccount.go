package models

import (
	"context"
	"time"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/utils"
)

// PurposeCode identifies which account plays a structural role for a family
// (e.g. the short-term deferred revenue liability). Codes are configuration
// keys; the mapping table below resolves them to accounts per legal entity.
type PurposeCode string

const (
	PurposeCodeDefrevShortLiability PurposeCode = "DEFREV_SHORT_LIABILITY"
	PurposeCodeDefrevLongLiability  PurposeCode = "DEFREV_LONG_LIABILITY"
	PurposeCodeDefrevRevenue        PurposeCode = "DEFREV_REVENUE"

	PurposeCodePrepaidShortAsset PurposeCode = "PREPAID_SHORT_ASSET"
	PurposeCodePrepaidLongAsset  PurposeCode = "PREPAID_LONG_ASSET"
	PurposeCodePrepaidExpense    PurposeCode = "PREPAID_EXPENSE_PNL"

	PurposeCodeAccruedRevShortAsset  PurposeCode = "ACCRUED_REV_SHORT_ASSET"
	PurposeCodeAccruedRevLongAsset   PurposeCode = "ACCRUED_REV_LONG_ASSET"
	PurposeCodeAccruedRevRevenue     PurposeCode = "ACCRUED_REV_REVENUE"
	PurposeCodeAccruedRevSettlement  PurposeCode = "ACCRUED_REV_SETTLEMENT"

	PurposeCodeAccruedExpShortLiability PurposeCode = "ACCRUED_EXP_SHORT_LIABILITY"
	PurposeCodeAccruedExpLongLiability  PurposeCode = "ACCRUED_EXP_LONG_LIABILITY"
	PurposeCodeAccruedExpExpense        PurposeCode = "ACCRUED_EXP_PNL"
	PurposeCodeAccruedExpSettlement     PurposeCode = "ACCRUED_EXP_SETTLEMENT"
)

// PurposeRole is the structural slot a purpose code fills inside a posting.
type PurposeRole string

const (
	PurposeRoleBalanceSheetShort PurposeRole = "BALANCE_SHEET_SHORT"
	PurposeRoleBalanceSheetLong  PurposeRole = "BALANCE_SHEET_LONG"
	PurposeRoleProfitAndLoss     PurposeRole = "PROFIT_AND_LOSS"
	PurposeRoleSettlement        PurposeRole = "SETTLEMENT"
)

type familyRole struct {
	Family RecognitionFamily
	Role   PurposeRole
}

// purposeCodeTable is the closed (family, role) -> purpose code mapping.
// Settlement slots exist only for the accrual families.
var purposeCodeTable = map[familyRole]PurposeCode{
	{RecognitionFamilyDeferredRevenue, PurposeRoleBalanceSheetShort}: PurposeCodeDefrevShortLiability,
	{RecognitionFamilyDeferredRevenue, PurposeRoleBalanceSheetLong}:  PurposeCodeDefrevLongLiability,
	{RecognitionFamilyDeferredRevenue, PurposeRoleProfitAndLoss}:     PurposeCodeDefrevRevenue,

	{RecognitionFamilyPrepaidExpense, PurposeRoleBalanceSheetShort}: PurposeCodePrepaidShortAsset,
	{RecognitionFamilyPrepaidExpense, PurposeRoleBalanceSheetLong}:  PurposeCodePrepaidLongAsset,
	{RecognitionFamilyPrepaidExpense, PurposeRoleProfitAndLoss}:     PurposeCodePrepaidExpense,

	{RecognitionFamilyAccruedRevenue, PurposeRoleBalanceSheetShort}: PurposeCodeAccruedRevShortAsset,
	{RecognitionFamilyAccruedRevenue, PurposeRoleBalanceSheetLong}:  PurposeCodeAccruedRevLongAsset,
	{RecognitionFamilyAccruedRevenue, PurposeRoleProfitAndLoss}:     PurposeCodeAccruedRevRevenue,
	{RecognitionFamilyAccruedRevenue, PurposeRoleSettlement}:        PurposeCodeAccruedRevSettlement,

	{RecognitionFamilyAccruedExpense, PurposeRoleBalanceSheetShort}: PurposeCodeAccruedExpShortLiability,
	{RecognitionFamilyAccruedExpense, PurposeRoleBalanceSheetLong}:  PurposeCodeAccruedExpLongLiability,
	{RecognitionFamilyAccruedExpense, PurposeRoleProfitAndLoss}:     PurposeCodeAccruedExpExpense,
	{RecognitionFamilyAccruedExpense, PurposeRoleSettlement}:        PurposeCodeAccruedExpSettlement,
}

// PurposeCodeFor resolves the purpose code for (family, role). Missing slots
// are a programming error at call sites, surfaced as a setup error.
func PurposeCodeFor(family RecognitionFamily, role PurposeRole) (PurposeCode, error) {
	code, ok := purposeCodeTable[familyRole{family, role}]
	if !ok {
		return "", utils.SetupError("no purpose code for family %s role %s", family, role)
	}
	return code, nil
}

// BalanceSheetRoleFor picks the short or long balance-sheet slot by bucket.
func BalanceSheetRoleFor(bucket MaturityBucket) PurposeRole {
	if bucket == MaturityBucketLongTerm {
		return PurposeRoleBalanceSheetLong
	}
	return PurposeRoleBalanceSheetShort
}

// PurposeAccountMapping resolves a purpose code to a GL account for one legal
// entity. Read-only to this engine; operators maintain it as master data.
type PurposeAccountMapping struct {
	ID            int         `gorm:"primary_key" json:"id"`
	BusinessId    string      `gorm:"size:64;not null;index:uniq_purpose,unique" json:"business_id" binding:"required"`
	LegalEntityId int         `gorm:"not null;index:uniq_purpose,unique" json:"legal_entity_id" binding:"required"`
	PurposeCode   PurposeCode `gorm:"size:50;not null;index:uniq_purpose,unique" json:"purpose_code" binding:"required"`
	AccountId     int         `gorm:"not null" json:"account_id" binding:"required"`
	IsActive      *bool       `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// ResolvePurposeAccounts maps purpose codes to active, posting-enabled account
// ids. A missing or inactive mapping is a setup error, never a default.
func ResolvePurposeAccounts(ctx context.Context, businessId string, legalEntityId int, codes []PurposeCode) (map[PurposeCode]int, error) {
	unqCodes := utils.UniqueSlice(codes)
	db := config.GetDB()
	var mappings []*PurposeAccountMapping
	if err := db.WithContext(ctx).
		Where("business_id = ? AND legal_entity_id = ? AND purpose_code IN ?", businessId, legalEntityId, unqCodes).
		Find(&mappings).Error; err != nil {
		return nil, err
	}

	byCode := make(map[PurposeCode]int, len(mappings))
	accountIds := make([]int, 0, len(mappings))
	for _, m := range mappings {
		if m.IsActive == nil || !*m.IsActive {
			continue
		}
		byCode[m.PurposeCode] = m.AccountId
		accountIds = append(accountIds, m.AccountId)
	}
	for _, code := range unqCodes {
		if _, ok := byCode[code]; !ok {
			return nil, utils.SetupError("no active purpose-account mapping for %s in legal entity %d", code, legalEntityId)
		}
	}
	// mapped accounts must themselves be able to take postings
	if _, err := GetPostingAccounts(ctx, businessId, legalEntityId, accountIds); err != nil {
		return nil, err
	}
	return byCode, nil
}
