package routes

import (
	"fmt"
	"time"

	"github.com/ErenEClk/SmartCom/models"
	"github.com/ErenEClk/SmartCom/services"
	"github.com/ErenEClk/SmartCom/storage"
	"github.com/ErenEClk/SmartCom/utils"
	"github.com/kataras/iris/v12"
)

func messagingService() *services.MessagingService {
	return services.NewMessagingService(storage.DB)
}

// GetConversations lists the caller's conversations, most recently updated
// first.
func GetConversations(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	conversations, err := messagingService().GetUserConversations(claims.ID)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}

	views := make([]iris.Map, 0, len(conversations))
	for i := range conversations {
		views = append(views, conversationView(&conversations[i], claims.ID))
	}
	utils.SendData(ctx, views)
}

// GetConversationByID returns one conversation with participant summaries and
// the last message.
func GetConversationByID(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid conversation id")
		return
	}
	claims := utils.GetClaims(ctx)

	conversation, svcErr := messagingService().GetConversationByID(id, claims.ID)
	if svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}
	utils.SendData(ctx, conversationView(conversation, claims.ID))
}

// GetConversationMessages returns a page of messages and, as a side effect,
// marks everything addressed to the caller as read.
func GetConversationMessages(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid conversation id")
		return
	}
	claims := utils.GetClaims(ctx)

	page := ctx.URLParamIntDefault("page", 1)
	limit := ctx.URLParamIntDefault("limit", 20)

	result, svcErr := messagingService().GetConversationMessages(id, claims.ID, page, limit)
	if svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}
	utils.SendData(ctx, result)
}

// CreateGroupConversation creates a titled conversation for more than two
// participants.
func CreateGroupConversation(ctx iris.Context) {
	var input CreateGroupConversationInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	claims := utils.GetClaims(ctx)

	conversation, err := messagingService().CreateGroupConversation(claims.ID, input.Title, input.ParticipantIDs)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.SendData(ctx, conversationView(conversation, claims.ID))
}

// SendMessage appends a message to the direct conversation with the receiver,
// creating the conversation on first contact.
func SendMessage(ctx iris.Context) {
	var input SendMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	claims := utils.GetClaims(ctx)

	message, err := messagingService().SendMessage(claims.ID, input.ReceiverID, input.Content, input.Attachments)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.SendData(ctx, messageView(message))
}

// MarkMessageAsRead marks one message read for its receiver.
func MarkMessageAsRead(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid message id")
		return
	}
	claims := utils.GetClaims(ctx)

	message, svcErr := messagingService().MarkMessageAsRead(id, claims.ID)
	if svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}
	utils.SendData(ctx, message)
}

// MarkAllMessagesAsRead marks every unread message addressed to the caller in
// the conversation.
func MarkAllMessagesAsRead(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid conversation id")
		return
	}
	claims := utils.GetClaims(ctx)

	count, svcErr := messagingService().MarkAllMessagesAsRead(id, claims.ID)
	if svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}
	utils.SendData(ctx, iris.Map{"modifiedCount": count, "updatedAt": time.Now()})
}

// DeleteMessage soft-deletes a message for its sender.
func DeleteMessage(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid message id")
		return
	}
	claims := utils.GetClaims(ctx)

	if svcErr := messagingService().DeleteMessage(id, claims.ID); svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}
	utils.SendMessage(ctx, "Message deleted", nil)
}

// Typing sets a short-lived typing marker for the caller in the conversation.
func Typing(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid conversation id")
		return
	}
	claims := utils.GetClaims(ctx)

	if _, svcErr := messagingService().GetConversationByID(id, claims.ID); svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}

	storage.Redis.Set(ctx, typingKey(id, claims.ID), "1", 5*time.Second)
	utils.SendMessage(ctx, "ok", nil)
}

// ListTyping reports which other participants currently hold a typing marker.
func ListTyping(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid conversation id")
		return
	}
	claims := utils.GetClaims(ctx)

	conversation, svcErr := messagingService().GetConversationByID(id, claims.ID)
	if svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}

	typing := []models.UserSummary{}
	for _, p := range conversation.Participants {
		if p.UserID == claims.ID {
			continue
		}
		if val, redisErr := storage.Redis.Get(ctx, typingKey(id, p.UserID)).Result(); redisErr == nil && val == "1" {
			typing = append(typing, p.User.Summary())
		}
	}
	utils.SendData(ctx, iris.Map{"typing": typing})
}

func typingKey(conversationID, userID uint) string {
	return fmt.Sprintf("typing:%d:%d", conversationID, userID)
}

// conversationView projects a conversation for the wire: participant
// summaries instead of full accounts, plus the caller's unread count.
func conversationView(c *models.Conversation, callerID uint) iris.Map {
	participants := make([]models.UserSummary, 0, len(c.Participants))
	for _, p := range c.Participants {
		participants = append(participants, p.User.Summary())
	}

	view := iris.Map{
		"id":             c.ID,
		"type":           c.Type,
		"title":          c.Title,
		"participants":   participants,
		"participantIDs": c.ParticipantIDs(),
		"unreadCounts":   c.UnreadMap(),
		"unreadCount":    c.UnreadFor(callerID),
		"isActive":       c.IsActive,
		"createdByID":    c.CreatedByID,
		"createdAt":      c.CreatedAt,
		"updatedAt":      c.UpdatedAt,
	}
	if c.LastMessage != nil {
		view["lastMessage"] = messageView(c.LastMessage)
	}
	return view
}

func messageView(m *models.Message) iris.Map {
	return iris.Map{
		"id":             m.ID,
		"conversationID": m.ConversationID,
		"sender":         m.Sender.Summary(),
		"receiver":       m.Receiver.Summary(),
		"content":        m.Content,
		"attachments":    m.AttachmentList(),
		"isRead":         m.IsRead,
		"readAt":         m.ReadAt,
		"isDelivered":    m.IsDelivered,
		"deliveredAt":    m.DeliveredAt,
		"createdAt":      m.CreatedAt,
	}
}

type SendMessageInput struct {
	ReceiverID  uint                `json:"receiverId" validate:"required"`
	Content     string              `json:"content" validate:"required,lt=5000"`
	Attachments []models.Attachment `json:"attachments"`
}

type CreateGroupConversationInput struct {
	Title          string `json:"title" validate:"required,max=256"`
	ParticipantIDs []uint `json:"participantIds" validate:"required,min=2"`
}
