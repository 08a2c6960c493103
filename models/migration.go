package models

import (
	"log"

	"github.com/iamramakanthreddyk/fuelsync-new-sub006/config"
	"gorm.io/gorm"
)

func MigrateTable() {
	if err := AutoMigrateAll(config.GetDB()); err != nil {
		log.Fatal(err)
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&Plan{},
		&Station{},
		&User{},
		&CashHandover{},
		&CashHandoverLink{},
	)
}
