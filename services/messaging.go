package services

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/ErenEClk/SmartCom/models"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// MessagingService orchestrates conversations and messages. All failures are
// reported through the sentinel errors in errors.go; callers map them to
// HTTP statuses at the boundary.
type MessagingService struct {
	DB            *gorm.DB
	Notifications *NotificationService
}

func NewMessagingService(db *gorm.DB) *MessagingService {
	return &MessagingService{DB: db, Notifications: NewNotificationService(db)}
}

// MessagePage is one page of conversation messages, oldest-first within the
// page. Page boundaries are computed against newest-first order.
type MessagePage struct {
	Messages      []models.Message `json:"messages"`
	TotalPages    int              `json:"totalPages"`
	CurrentPage   int              `json:"currentPage"`
	TotalMessages int64            `json:"totalMessages"`
}

// GetUserConversations returns the active conversations the user belongs to,
// most recently updated first.
func (s *MessagingService) GetUserConversations(userID uint) ([]models.Conversation, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user id: %w", ErrInvalidIdentifier)
	}

	var conversations []models.Conversation
	err := s.DB.
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ? AND conversations.is_active = ?", userID, true).
		Preload("Participants.User").
		Preload("LastMessage").
		Preload("LastMessage.Sender").
		Order("conversations.updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

// GetConversationByID returns a single conversation with participants and the
// last message populated. The caller must be a participant.
func (s *MessagingService) GetConversationByID(conversationID, callerID uint) (*models.Conversation, error) {
	conv, err := s.loadConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(callerID) {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, ErrForbidden)
	}
	return conv, nil
}

// GetConversationMessages returns one page of non-deleted messages. Messages
// are fetched newest-first, sliced, then reversed so each page reads
// oldest-first; the page windows therefore follow descending order. As a side
// effect every unread message addressed to the caller is marked read and the
// caller's unread counter is reset.
func (s *MessagingService) GetConversationMessages(conversationID, callerID uint, page, limit int) (*MessagePage, error) {
	conv, err := s.loadConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(callerID) {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, ErrForbidden)
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := s.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var messages []models.Message
	err = s.DB.
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false).
		Preload("Sender").
		Preload("Receiver").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conversationID, callerID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error
	if err != nil {
		return nil, err
	}

	conv.ResetUnread(callerID)
	if err := s.DB.Save(conv).Error; err != nil {
		return nil, err
	}

	// oldest message first within the page
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return &MessagePage{
		Messages:      messages,
		TotalPages:    int(math.Ceil(float64(total) / float64(limit))),
		CurrentPage:   page,
		TotalMessages: total,
	}, nil
}

// SendMessage appends a message to the unique direct conversation between
// sender and receiver, creating the conversation when it does not exist yet.
// The receiver's unread counter and the conversation's last-message pointer
// are updated in the same pass.
func (s *MessagingService) SendMessage(senderID, receiverID uint, content string, attachments []models.Attachment) (*models.Message, error) {
	if senderID == 0 || receiverID == 0 {
		return nil, fmt.Errorf("message participants: %w", ErrInvalidIdentifier)
	}
	// A self-pair binds both participant joins to the same row, which would
	// match any direct conversation the caller belongs to.
	if senderID == receiverID {
		return nil, fmt.Errorf("receiver %d: %w", receiverID, ErrInvalidParticipant)
	}

	var sender, receiver models.User
	if err := s.findActiveUser(&sender, senderID); err != nil {
		return nil, fmt.Errorf("sender %d: %w", senderID, ErrInvalidParticipant)
	}
	if err := s.findActiveUser(&receiver, receiverID); err != nil {
		return nil, fmt.Errorf("receiver %d: %w", receiverID, ErrInvalidParticipant)
	}

	conv, err := s.findDirectConversation(senderID, receiverID)
	if err != nil {
		return nil, err
	}

	if conv == nil {
		conv = &models.Conversation{
			Type:        models.ConversationDirect,
			IsActive:    true,
			CreatedByID: senderID,
		}
		if err := s.DB.Create(conv).Error; err != nil {
			return nil, err
		}
		for _, uid := range []uint{senderID, receiverID} {
			p := models.ConversationParticipant{ConversationID: conv.ID, UserID: uid}
			if err := s.DB.Create(&p).Error; err != nil {
				return nil, err
			}
			conv.Participants = append(conv.Participants, p)
		}
	}
	conv.IncrementUnread(receiverID)

	now := time.Now()
	message := models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		IsDelivered:    true,
		DeliveredAt:    &now,
	}
	if err := message.EncodeAttachments(attachments); err != nil {
		return nil, err
	}
	if err := s.DB.Create(&message).Error; err != nil {
		return nil, err
	}

	conv.LastMessageID = &message.ID
	if err := s.DB.Save(conv).Error; err != nil {
		return nil, err
	}

	var populated models.Message
	if err := s.DB.Preload("Sender").Preload("Receiver").First(&populated, message.ID).Error; err != nil {
		return nil, err
	}

	// Best-effort fan-out; a failed notification never fails the send.
	if s.Notifications != nil {
		if _, err := s.Notifications.CreateMessageNotification(receiverID, message.ID, sender.Name); err != nil {
			log.Println("message notification failed:", err)
		}
	}

	return &populated, nil
}

// CreateGroupConversation creates a titled conversation with more than two
// participants. The creator is always included.
func (s *MessagingService) CreateGroupConversation(creatorID uint, title string, participantIDs []uint) (*models.Conversation, error) {
	if creatorID == 0 {
		return nil, fmt.Errorf("creator id: %w", ErrInvalidIdentifier)
	}
	if title == "" {
		return nil, fmt.Errorf("group conversations require a title: %w", ErrValidation)
	}

	if !slices.Contains(participantIDs, creatorID) {
		participantIDs = append(participantIDs, creatorID)
	}
	if len(participantIDs) <= 2 {
		return nil, fmt.Errorf("group conversations need more than two participants: %w", ErrValidation)
	}

	for _, uid := range participantIDs {
		var u models.User
		if err := s.findActiveUser(&u, uid); err != nil {
			return nil, fmt.Errorf("participant %d: %w", uid, ErrInvalidParticipant)
		}
	}

	conv := models.Conversation{
		Type:        models.ConversationGroup,
		Title:       title,
		IsActive:    true,
		CreatedByID: creatorID,
	}
	if err := s.DB.Create(&conv).Error; err != nil {
		return nil, err
	}
	for _, uid := range participantIDs {
		p := models.ConversationParticipant{ConversationID: conv.ID, UserID: uid}
		if err := s.DB.Create(&p).Error; err != nil {
			return nil, err
		}
		conv.Participants = append(conv.Participants, p)
	}
	return &conv, nil
}

// MarkMessageAsRead marks one message read. Only the receiver may do so, and
// marking an already-read message is a no-op.
func (s *MessagingService) MarkMessageAsRead(messageID, callerID uint) (*models.Message, error) {
	if messageID == 0 {
		return nil, fmt.Errorf("message id: %w", ErrInvalidIdentifier)
	}

	var message models.Message
	found := s.DB.Where("id = ?", messageID).Limit(1).Find(&message)
	if found.Error != nil {
		return nil, found.Error
	}
	if found.RowsAffected == 0 {
		return nil, fmt.Errorf("message %d: %w", messageID, ErrNotFound)
	}
	if message.ReceiverID != callerID {
		return nil, fmt.Errorf("message %d: %w", messageID, ErrForbidden)
	}
	if message.IsRead {
		return &message, nil
	}

	now := time.Now()
	message.IsRead = true
	message.ReadAt = &now
	if err := s.DB.Save(&message).Error; err != nil {
		return nil, err
	}

	conv, err := s.loadConversation(message.ConversationID)
	if err == nil {
		conv.DecrementUnread(callerID)
		if saveErr := s.DB.Save(conv).Error; saveErr != nil {
			return nil, saveErr
		}
	}

	return &message, nil
}

// MarkAllMessagesAsRead marks every unread message addressed to the caller in
// the conversation with a single timestamp and returns the count transitioned.
func (s *MessagingService) MarkAllMessagesAsRead(conversationID, callerID uint) (int64, error) {
	conv, err := s.loadConversation(conversationID)
	if err != nil {
		return 0, err
	}
	if !conv.HasParticipant(callerID) {
		return 0, fmt.Errorf("conversation %d: %w", conversationID, ErrForbidden)
	}

	now := time.Now()
	result := s.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conversationID, callerID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if result.Error != nil {
		return 0, result.Error
	}

	conv.ResetUnread(callerID)
	if err := s.DB.Save(conv).Error; err != nil {
		return 0, err
	}

	return result.RowsAffected, nil
}

// DeleteMessage soft-deletes a message. Only the sender may delete, and unread
// counters are not adjusted retroactively.
func (s *MessagingService) DeleteMessage(messageID, callerID uint) error {
	if messageID == 0 {
		return fmt.Errorf("message id: %w", ErrInvalidIdentifier)
	}

	var message models.Message
	found := s.DB.Where("id = ?", messageID).Limit(1).Find(&message)
	if found.Error != nil {
		return found.Error
	}
	if found.RowsAffected == 0 {
		return fmt.Errorf("message %d: %w", messageID, ErrNotFound)
	}
	if message.SenderID != callerID {
		return fmt.Errorf("message %d: %w", messageID, ErrForbidden)
	}

	now := time.Now()
	message.IsDeleted = true
	message.DeletedByID = &callerID
	message.DeletedAt = &now
	return s.DB.Save(&message).Error
}

// RecountUnread recomputes a participant's counter from the message read
// flags, the authoritative source, and writes it back. Counter keys that no
// longer map to a participant are dropped in the same pass. Used for repair.
func (s *MessagingService) RecountUnread(conversationID, userID uint) (int64, error) {
	conv, err := s.loadConversation(conversationID)
	if err != nil {
		return 0, err
	}
	if !conv.HasParticipant(userID) {
		return 0, fmt.Errorf("conversation %d: %w", conversationID, ErrForbidden)
	}

	var count int64
	err = s.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ? AND is_deleted = ?", conversationID, userID, false, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	conv.SetUnread(userID, int(count))
	conv.PruneUnread()
	if err := s.DB.Save(conv).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *MessagingService) loadConversation(conversationID uint) (*models.Conversation, error) {
	if conversationID == 0 {
		return nil, fmt.Errorf("conversation id: %w", ErrInvalidIdentifier)
	}

	var conv models.Conversation
	found := s.DB.
		Preload("Participants.User").
		Preload("LastMessage").
		Preload("LastMessage.Sender").
		Where("conversations.id = ?", conversationID).
		Limit(1).Find(&conv)
	if found.Error != nil {
		return nil, found.Error
	}
	if found.RowsAffected == 0 {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, ErrNotFound)
	}
	return &conv, nil
}

// findDirectConversation resolves the unique direct conversation for the
// unordered {a, b} pair, or nil when none exists.
func (s *MessagingService) findDirectConversation(a, b uint) (*models.Conversation, error) {
	var conv models.Conversation
	found := s.DB.
		Joins("JOIN conversation_participants p1 ON p1.conversation_id = conversations.id").
		Joins("JOIN conversation_participants p2 ON p2.conversation_id = conversations.id").
		Where("p1.user_id = ? AND p2.user_id = ? AND conversations.type = ?", a, b, models.ConversationDirect).
		Limit(1).Find(&conv)
	if found.Error != nil {
		return nil, found.Error
	}
	if found.RowsAffected == 0 {
		return nil, nil
	}

	if err := s.DB.Preload("User").Where("conversation_id = ?", conv.ID).Find(&conv.Participants).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *MessagingService) findActiveUser(user *models.User, id uint) error {
	found := s.DB.Where("id = ? AND is_deleted = ?", id, false).Limit(1).Find(user)
	if found.Error != nil {
		return found.Error
	}
	if found.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
