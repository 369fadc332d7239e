// seed-demo provisions one demo tenant: a legal entity, an open fiscal year of
// monthly periods, a minimal posting chart and the full purpose-account table
// for all four recognition families.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/models"
	"github.com/finacore/recognition_backend/utils"
)

const demoBusinessId = "demo-business"

type seedAccount struct {
	Code        string
	Name        string
	MainType    models.AccountMainType
	DetailType  models.AccountDetailType
	PurposeCode models.PurposeCode
}

var seedAccounts = []seedAccount{
	{"2400", "Deferred Revenue - Current", models.AccountMainTypeLiability, models.AccountDetailTypeOtherCurrentLiability, models.PurposeCodeDefrevShortLiability},
	{"2450", "Deferred Revenue - Non-current", models.AccountMainTypeLiability, models.AccountDetailTypeLongTermLiability, models.PurposeCodeDefrevLongLiability},
	{"4000", "Recognized Revenue", models.AccountMainTypeIncome, models.AccountDetailTypeIncome, models.PurposeCodeDefrevRevenue},
	{"1400", "Prepaid Expenses - Current", models.AccountMainTypeAsset, models.AccountDetailTypeOtherCurrentAsset, models.PurposeCodePrepaidShortAsset},
	{"1450", "Prepaid Expenses - Non-current", models.AccountMainTypeAsset, models.AccountDetailTypeOtherAsset, models.PurposeCodePrepaidLongAsset},
	{"6000", "Prepaid Expense Release", models.AccountMainTypeExpense, models.AccountDetailTypeExpense, models.PurposeCodePrepaidExpense},
	{"1300", "Accrued Revenue - Current", models.AccountMainTypeAsset, models.AccountDetailTypeOtherCurrentAsset, models.PurposeCodeAccruedRevShortAsset},
	{"1350", "Accrued Revenue - Non-current", models.AccountMainTypeAsset, models.AccountDetailTypeOtherAsset, models.PurposeCodeAccruedRevLongAsset},
	{"4100", "Accrued Revenue Income", models.AccountMainTypeIncome, models.AccountDetailTypeIncome, models.PurposeCodeAccruedRevRevenue},
	{"1390", "Accrued Revenue Clearing", models.AccountMainTypeAsset, models.AccountDetailTypePaymentClearing, models.PurposeCodeAccruedRevSettlement},
	{"2300", "Accrued Expenses - Current", models.AccountMainTypeLiability, models.AccountDetailTypeOtherCurrentLiability, models.PurposeCodeAccruedExpShortLiability},
	{"2350", "Accrued Expenses - Non-current", models.AccountMainTypeLiability, models.AccountDetailTypeLongTermLiability, models.PurposeCodeAccruedExpLongLiability},
	{"6100", "Accrued Expense Charge", models.AccountMainTypeExpense, models.AccountDetailTypeExpense, models.PurposeCodeAccruedExpExpense},
	{"2390", "Accrued Expense Clearing", models.AccountMainTypeLiability, models.AccountDetailTypePaymentClearing, models.PurposeCodeAccruedExpSettlement},
}

func main() {
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx := utils.SetBusinessIdInContext(context.Background(), demoBusinessId)
	ctx = utils.SetUserNameInContext(ctx, "Seed")

	entity := models.LegalEntity{
		BusinessId:       demoBusinessId,
		Name:             "Demo Entity",
		BaseCurrencyCode: "USD",
		Timezone:         "UTC",
		IsActive:         utils.NewTrue(),
	}
	if err := db.WithContext(ctx).
		Where("business_id = ? AND name = ?", demoBusinessId, entity.Name).
		FirstOrCreate(&entity).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed legal entity: %v\n", err)
		os.Exit(1)
	}

	year := time.Now().UTC().Year()
	for m := time.January; m <= time.December; m++ {
		start := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
		period := models.FiscalPeriod{
			BusinessId:    demoBusinessId,
			LegalEntityId: entity.ID,
			BookId:        1,
			Name:          start.Format("2006-01"),
			StartDate:     start,
			EndDate:       start.AddDate(0, 1, -1),
			Status:        models.FiscalPeriodStatusOpen,
		}
		if err := db.WithContext(ctx).
			Where("business_id = ? AND legal_entity_id = ? AND name = ?", demoBusinessId, entity.ID, period.Name).
			FirstOrCreate(&period).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed fiscal period %s: %v\n", period.Name, err)
			os.Exit(1)
		}
	}

	for _, s := range seedAccounts {
		account := models.Account{
			BusinessId:       demoBusinessId,
			LegalEntityId:    entity.ID,
			Code:             s.Code,
			Name:             s.Name,
			MainType:         s.MainType,
			DetailType:       s.DetailType,
			CurrencyCode:     "USD",
			IsActive:         utils.NewTrue(),
			IsPostingAllowed: utils.NewTrue(),
		}
		if err := db.WithContext(ctx).
			Where("business_id = ? AND legal_entity_id = ? AND code = ?", demoBusinessId, entity.ID, s.Code).
			FirstOrCreate(&account).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed account %s: %v\n", s.Code, err)
			os.Exit(1)
		}

		mapping := models.PurposeAccountMapping{
			BusinessId:    demoBusinessId,
			LegalEntityId: entity.ID,
			PurposeCode:   s.PurposeCode,
			AccountId:     account.ID,
			IsActive:      utils.NewTrue(),
		}
		if err := db.WithContext(ctx).
			Where("business_id = ? AND legal_entity_id = ? AND purpose_code = ?", demoBusinessId, entity.ID, s.PurposeCode).
			FirstOrCreate(&mapping).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed purpose mapping %s: %v\n", s.PurposeCode, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded business %s, legal entity %d, %d accounts and purpose mappings\n",
		demoBusinessId, entity.ID, len(seedAccounts))
}
