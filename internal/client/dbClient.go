package client

import (
	"log"
	"strings"
	"time"

	"fleamarket-backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitDBClient opens the shared relational store. MySQL DSNs (anything with
// an @tcp host part) go through the mysql driver, everything else is treated
// as a sqlite path.
func InitDBClient(databaseURL string) *gorm.DB {
	var dialector gorm.Dialector
	if strings.Contains(databaseURL, "@tcp(") {
		dialector = mysql.Open(databaseURL)
	} else {
		dialector = sqlite.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal(err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&model.Item{},
		&model.Conversation{},
		&model.ConversationParticipant{},
		&model.Message{},
		&model.ConfirmRequest{},
		&model.PurchaseHistory{},
		&model.PurchaseHistoryEntry{},
	); err != nil {
		log.Fatal(err)
	}

	return db
}
