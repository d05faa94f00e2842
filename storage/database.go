package storage

import (
	"log"
	"os"

	"github.com/ErenEClk/SmartCom/models"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func connectToDB() *gorm.DB {
	// Only load .env in development (when RENDER env var is not set)
	if os.Getenv("RENDER") == "" {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Could not load .env file (this is normal in production)")
		}
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Panic("DB_CONNECTION_STRING environment variable is required")
	}

	db, dbError := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if dbError != nil {
		log.Panic("error connection to db: " + dbError.Error())
	}

	DB = db
	return db
}

func PerformMigrations(db *gorm.DB) {
	db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.Notification{},
		&models.Announcement{},
		&models.AnnouncementView{},
		&models.Issue{},
		&models.IssueComment{},
		&models.Payment{},
		&models.Survey{},
		&models.SurveyOption{},
		&models.SurveyResponse{},
		&models.AuditLog{},
	)
}

func InitializeDB() *gorm.DB {
	db := connectToDB()
	PerformMigrations(db)

	if os.Getenv("SEED_FIXTURES") == "1" {
		if err := SeedFixtures(db); err != nil {
			log.Println("fixture seeding failed:", err)
		}
	}

	return db
}
