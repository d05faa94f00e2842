package storage

import (
	"log"
	"time"

	"github.com/ErenEClk/SmartCom/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedFixtures loads the demo data set used for manual exploration. It runs
// against the real store and is idempotent: if the demo resident already
// exists nothing is written. Enabled with SEED_FIXTURES=1.
func SeedFixtures(db *gorm.DB) error {
	var existing models.User
	found := db.Where("email = ?", "resident@demo.community").Limit(1).Find(&existing)
	if found.Error != nil {
		return found.Error
	}
	if found.RowsAffected > 0 {
		log.Println("fixtures already present, skipping seed")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []models.User{
		{Name: "Demo Resident", Email: "resident@demo.community", Role: models.RoleResident, Site: "Palm Court", Block: "A", Apartment: "101"},
		{Name: "Demo Admin", Email: "admin@demo.community", Role: models.RoleAdmin, Site: "Palm Court", Block: "A", Apartment: "1"},
		{Name: "Site Management", Email: "management@demo.community", Role: models.RoleSiteManager, Site: "Palm Court", Block: "A", Apartment: "1"},
		{Name: "Technical Support", Email: "support@demo.community", Role: models.RoleTechnicalSupport, Site: "Palm Court", Block: "A", Apartment: "1"},
		{Name: "Security Desk", Email: "security@demo.community", Role: models.RoleSecurity, Site: "Palm Court", Block: "A", Apartment: "1"},
	}
	for i := range users {
		users[i].Password = string(hash)
		users[i].Status = models.UserStatusActive
		if err := db.Create(&users[i]).Error; err != nil {
			return err
		}
	}

	resident := users[0]
	manager := users[2]

	conv := models.Conversation{
		Type:        models.ConversationDirect,
		IsActive:    true,
		CreatedByID: manager.ID,
	}
	if err := db.Create(&conv).Error; err != nil {
		return err
	}
	for _, uid := range []uint{resident.ID, manager.ID} {
		if err := db.Create(&models.ConversationParticipant{ConversationID: conv.ID, UserID: uid}).Error; err != nil {
			return err
		}
	}

	now := time.Now()
	texts := []struct {
		from, to uint
		body     string
		read     bool
		age      time.Duration
	}{
		{manager.ID, resident.ID, "Hello, how can we help you?", true, 2 * time.Hour},
		{resident.ID, manager.ID, "I'd like some information about the monthly dues.", true, 90 * time.Minute},
		{manager.ID, resident.ID, "Of course, the statement is attached to your payments page.", false, time.Hour},
	}
	var last models.Message
	for _, tm := range texts {
		msg := models.Message{
			ConversationID: conv.ID,
			SenderID:       tm.from,
			ReceiverID:     tm.to,
			Content:        tm.body,
			IsDelivered:    true,
			IsRead:         tm.read,
			CreatedAt:      now.Add(-tm.age),
		}
		created := now.Add(-tm.age)
		msg.DeliveredAt = &created
		if tm.read {
			readAt := created.Add(5 * time.Minute)
			msg.ReadAt = &readAt
		}
		if err := db.Create(&msg).Error; err != nil {
			return err
		}
		last = msg
	}
	conv.LastMessageID = &last.ID
	conv.IncrementUnread(resident.ID)
	if err := db.Save(&conv).Error; err != nil {
		return err
	}

	notifications := []models.Notification{
		{UserID: resident.ID, Title: "Welcome", Message: "Welcome to the community app!", Type: models.NotificationSystem, Priority: models.PriorityMedium},
		{UserID: resident.ID, Title: "New Announcement", Message: "A new community announcement was published.", Type: models.NotificationAnnouncement, Priority: models.PriorityMedium},
	}
	for i := range notifications {
		if err := db.Create(&notifications[i]).Error; err != nil {
			return err
		}
	}

	payment := models.Payment{
		UserID:      resident.ID,
		Title:       "Monthly dues",
		Description: "Dues for the current month",
		Amount:      750,
		Category:    "dues",
		DueDate:     now.Add(30 * 24 * time.Hour),
		Status:      models.PaymentStatusPending,
		CreatedByID: users[1].ID,
	}
	if err := db.Create(&payment).Error; err != nil {
		return err
	}

	log.Println("seeded demo fixtures")
	return nil
}
