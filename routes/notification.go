package routes

import (
	"time"

	"github.com/ErenEClk/SmartCom/services"
	"github.com/ErenEClk/SmartCom/storage"
	"github.com/ErenEClk/SmartCom/utils"
	"github.com/kataras/iris/v12"
)

func notificationService() *services.NotificationService {
	return services.NewNotificationService(storage.DB)
}

// GetAllNotifications lists every notification. Admin only.
func GetAllNotifications(ctx iris.Context) {
	notifications, err := notificationService().GetAll()
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.SendData(ctx, notifications)
}

// GetUserNotifications lists the caller's notifications, newest first.
func GetUserNotifications(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	notifications, err := notificationService().GetForUser(claims.ID)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.SendData(ctx, notifications)
}

// GetNotificationByID returns one notification for its owner or an admin.
func GetNotificationByID(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid notification id")
		return
	}
	claims := utils.GetClaims(ctx)

	notification, svcErr := notificationService().GetByID(id, claims.ID, claims.IsAdmin())
	if svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}
	utils.SendData(ctx, notification)
}

// CreateNotification stores a new notification for a target user. Admin only.
func CreateNotification(ctx iris.Context) {
	var input CreateNotificationInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	notification, err := notificationService().Create(services.CreateNotificationInput{
		UserID:      input.UserID,
		Title:       input.Title,
		Message:     input.Message,
		Type:        input.Type,
		RelatedID:   input.RelatedID,
		RelatedType: input.RelatedType,
		Priority:    input.Priority,
		ExpiresAt:   input.ExpiresAt,
	})
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.SendData(ctx, notification)
}

// MarkNotificationAsRead marks one notification read for its owner.
func MarkNotificationAsRead(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid notification id")
		return
	}
	claims := utils.GetClaims(ctx)

	notification, svcErr := notificationService().MarkAsRead(id, claims.ID)
	if svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}
	utils.SendData(ctx, notification)
}

// MarkAllNotificationsAsRead marks every unread notification of the caller.
func MarkAllNotificationsAsRead(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	count, err := notificationService().MarkAllAsRead(claims.ID)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.SendData(ctx, iris.Map{"modifiedCount": count, "updatedAt": time.Now()})
}

// DeleteNotification removes a notification for its owner.
func DeleteNotification(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid notification id")
		return
	}
	claims := utils.GetClaims(ctx)

	if svcErr := notificationService().Delete(id, claims.ID); svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}
	utils.SendMessage(ctx, "Notification deleted", nil)
}

type CreateNotificationInput struct {
	UserID      uint       `json:"userId" validate:"required"`
	Title       string     `json:"title" validate:"required,max=256"`
	Message     string     `json:"message" validate:"required"`
	Type        string     `json:"type" validate:"required,oneof=payment announcement message system maintenance security other"`
	RelatedID   *uint      `json:"relatedId"`
	RelatedType string     `json:"relatedType" validate:"omitempty,oneof=payment announcement message maintenance security"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}
