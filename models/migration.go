package models

import (
	"log"

	"github.com/finacore/recognition_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&LegalEntity{}, &FiscalPeriod{},
		&Account{}, &PurposeAccountMapping{},
		&ContractLine{},
		&RecognitionSchedule{}, &RecognitionScheduleLine{},
		&RecognitionRun{}, &RecognitionRunLine{},
		&Journal{}, &JournalLine{},
		&SubledgerEntry{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
