package services

import (
	"fmt"
	"time"

	"github.com/ErenEClk/SmartCom/models"
	"gorm.io/gorm"
)

// NotificationService owns per-user notification records. Other services
// create notifications through it as a derived side effect of their own
// operations.
type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// CreateNotificationInput carries everything Create needs. RelatedID and
// RelatedType form the tagged reference to the originating entity.
type CreateNotificationInput struct {
	UserID      uint
	Title       string
	Message     string
	Type        string
	RelatedID   *uint
	RelatedType string
	Priority    string
	ExpiresAt   *time.Time
}

// Create validates the target user and stores a new unread notification.
func (s *NotificationService) Create(input CreateNotificationInput) (*models.Notification, error) {
	if input.UserID == 0 {
		return nil, fmt.Errorf("user id: %w", ErrInvalidIdentifier)
	}

	var user models.User
	found := s.DB.Where("id = ? AND is_deleted = ?", input.UserID, false).Limit(1).Find(&user)
	if found.Error != nil {
		return nil, found.Error
	}
	if found.RowsAffected == 0 {
		return nil, fmt.Errorf("user %d: %w", input.UserID, ErrNotFound)
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	notification := models.Notification{
		UserID:      input.UserID,
		Title:       input.Title,
		Message:     input.Message,
		Type:        input.Type,
		RelatedID:   input.RelatedID,
		RelatedType: input.RelatedType,
		Priority:    priority,
		ExpiresAt:   input.ExpiresAt,
	}
	if err := s.DB.Create(&notification).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// CreatePaymentNotification builds the fixed payment template and delegates
// to Create.
func (s *NotificationService) CreatePaymentNotification(userID, paymentID uint, paymentTitle string, amount float64) (*models.Notification, error) {
	return s.Create(CreateNotificationInput{
		UserID:      userID,
		Title:       "Payment Notice",
		Message:     fmt.Sprintf("A payment of %.2f was created for %s.", amount, paymentTitle),
		Type:        models.NotificationPayment,
		RelatedID:   &paymentID,
		RelatedType: "payment",
	})
}

// CreateAnnouncementNotification builds the fixed announcement template and
// delegates to Create.
func (s *NotificationService) CreateAnnouncementNotification(userID, announcementID uint, announcementTitle string) (*models.Notification, error) {
	return s.Create(CreateNotificationInput{
		UserID:      userID,
		Title:       "New Announcement",
		Message:     fmt.Sprintf("A new announcement was published: %s", announcementTitle),
		Type:        models.NotificationAnnouncement,
		RelatedID:   &announcementID,
		RelatedType: "announcement",
	})
}

// CreateMessageNotification records the derived notification for a received
// message.
func (s *NotificationService) CreateMessageNotification(userID, messageID uint, senderName string) (*models.Notification, error) {
	return s.Create(CreateNotificationInput{
		UserID:      userID,
		Title:       "New Message",
		Message:     fmt.Sprintf("%s sent you a message.", senderName),
		Type:        models.NotificationMessage,
		RelatedID:   &messageID,
		RelatedType: "message",
	})
}

// GetAll returns every notification, newest first. Admin only; the role check
// happens at the boundary.
func (s *NotificationService) GetAll() ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.DB.Preload("User").Order("created_at DESC").Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// GetForUser returns the user's notifications, newest first, hiding archived
// and expired entries.
func (s *NotificationService) GetForUser(userID uint) ([]models.Notification, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user id: %w", ErrInvalidIdentifier)
	}

	now := time.Now()
	var notifications []models.Notification
	err := s.DB.
		Where("user_id = ? AND is_archived = ?", userID, false).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// GetByID returns one notification. Callers other than the owner must be
// admins, and expired notifications stay hidden from non-admins just as they
// are in GetForUser.
func (s *NotificationService) GetByID(notificationID, callerID uint, callerIsAdmin bool) (*models.Notification, error) {
	notification, err := s.load(notificationID)
	if err != nil {
		return nil, err
	}
	if notification.UserID != callerID && !callerIsAdmin {
		return nil, fmt.Errorf("notification %d: %w", notificationID, ErrForbidden)
	}
	if !callerIsAdmin && notification.Expired(time.Now()) {
		return nil, fmt.Errorf("notification %d: %w", notificationID, ErrNotFound)
	}
	return notification, nil
}

// MarkAsRead marks one notification read. Owner only; already-read is a
// no-op.
func (s *NotificationService) MarkAsRead(notificationID, callerID uint) (*models.Notification, error) {
	notification, err := s.load(notificationID)
	if err != nil {
		return nil, err
	}
	if notification.UserID != callerID {
		return nil, fmt.Errorf("notification %d: %w", notificationID, ErrForbidden)
	}
	if notification.IsRead {
		return notification, nil
	}

	now := time.Now()
	notification.IsRead = true
	notification.ReadAt = &now
	if err := s.DB.Save(notification).Error; err != nil {
		return nil, err
	}
	return notification, nil
}

// MarkAllAsRead marks all of the user's unread notifications read and returns
// the count transitioned.
func (s *NotificationService) MarkAllAsRead(userID uint) (int64, error) {
	if userID == 0 {
		return 0, fmt.Errorf("user id: %w", ErrInvalidIdentifier)
	}

	now := time.Now()
	result := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Delete removes a notification. Owner only.
func (s *NotificationService) Delete(notificationID, callerID uint) error {
	notification, err := s.load(notificationID)
	if err != nil {
		return err
	}
	if notification.UserID != callerID {
		return fmt.Errorf("notification %d: %w", notificationID, ErrForbidden)
	}
	return s.DB.Delete(notification).Error
}

func (s *NotificationService) load(notificationID uint) (*models.Notification, error) {
	if notificationID == 0 {
		return nil, fmt.Errorf("notification id: %w", ErrInvalidIdentifier)
	}

	var notification models.Notification
	found := s.DB.Where("id = ?", notificationID).Limit(1).Find(&notification)
	if found.Error != nil {
		return nil, found.Error
	}
	if found.RowsAffected == 0 {
		return nil, fmt.Errorf("notification %d: %w", notificationID, ErrNotFound)
	}
	return &notification, nil
}
