package routes

import (
	"encoding/json"
	"time"

	"github.com/ErenEClk/SmartCom/models"
	"github.com/ErenEClk/SmartCom/services"
	"github.com/ErenEClk/SmartCom/storage"
	"github.com/ErenEClk/SmartCom/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/datatypes"
)

// GetAnnouncements lists announcements visible to the caller: public or
// targeted ones inside their active window for residents, everything for
// staff.
func GetAnnouncements(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	var announcements []models.Announcement
	query := storage.DB.Where("is_deleted = ?", false).Order("created_at DESC")
	if err := query.Find(&announcements).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if claims.IsStaff() {
		utils.SendData(ctx, announcements)
		return
	}

	now := time.Now()
	visible := make([]models.Announcement, 0, len(announcements))
	for _, a := range announcements {
		if a.VisibleTo(claims.ID) && a.CurrentlyActive(now) {
			visible = append(visible, a)
		}
	}
	utils.SendData(ctx, visible)
}

// GetImportantAnnouncements lists announcements flagged important.
func GetImportantAnnouncements(ctx iris.Context) {
	var announcements []models.Announcement
	err := storage.DB.
		Where("is_important = ? AND is_deleted = ?", true, false).
		Order("created_at DESC").
		Find(&announcements).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.SendData(ctx, announcements)
}

// GetAnnouncementByID returns one announcement and records the view.
func GetAnnouncementByID(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid announcement id")
		return
	}
	claims := utils.GetClaims(ctx)

	announcement := getAnnouncementByID(id, ctx)
	if announcement == nil {
		return
	}
	if !claims.IsStaff() && !announcement.VisibleTo(claims.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	// First view per user bumps the counter.
	var view models.AnnouncementView
	found := storage.DB.Where("announcement_id = ? AND user_id = ?", id, claims.ID).Limit(1).Find(&view)
	if found.Error == nil && found.RowsAffected == 0 {
		storage.DB.Create(&models.AnnouncementView{AnnouncementID: id, UserID: claims.ID})
		announcement.ViewCount++
		storage.DB.Model(announcement).Update("view_count", announcement.ViewCount)
	}

	utils.SendData(ctx, announcement)
}

// CreateAnnouncement stores an announcement and fans out notifications to its
// audience. Admin or site manager only.
func CreateAnnouncement(ctx iris.Context) {
	var input CreateAnnouncementInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	claims := utils.GetClaims(ctx)

	now := time.Now()
	startDate := now
	if input.StartDate != nil {
		startDate = *input.StartDate
	}
	endDate := now.Add(30 * 24 * time.Hour)
	if input.EndDate != nil {
		endDate = *input.EndDate
	}

	announcement := models.Announcement{
		Title:       input.Title,
		Content:     input.Content,
		Category:    input.Category,
		IsImportant: input.IsImportant,
		IsPublic:    len(input.TargetUserIDs) == 0,
		StartDate:   startDate,
		EndDate:     endDate,
		IsActive:    true,
		CreatedByID: claims.ID,
	}
	if len(input.TargetUserIDs) > 0 {
		raw, _ := json.Marshal(input.TargetUserIDs)
		announcement.TargetUserIDs = datatypes.JSON(raw)
	}
	if len(input.ImageURLs) > 0 {
		raw, _ := json.Marshal(input.ImageURLs)
		announcement.ImageURLs = datatypes.JSON(raw)
	}
	if len(input.FileURLs) > 0 {
		raw, _ := json.Marshal(input.FileURLs)
		announcement.FileURLs = datatypes.JSON(raw)
	}

	if err := storage.DB.Create(&announcement).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	notifyAnnouncementAudience(&announcement, input.TargetUserIDs)

	utils.Audit(ctx, "announcement.create", "announcement", announcement.ID, nil, announcement.Title)
	utils.SendData(ctx, announcement)
}

// UpdateAnnouncement applies edits to an announcement. Admin or site manager
// only.
func UpdateAnnouncement(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid announcement id")
		return
	}

	announcement := getAnnouncementByID(id, ctx)
	if announcement == nil {
		return
	}

	var input UpdateAnnouncementInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	before := announcement.Title
	if input.Title != "" {
		announcement.Title = input.Title
	}
	if input.Content != "" {
		announcement.Content = input.Content
	}
	if input.Category != "" {
		announcement.Category = input.Category
	}
	if input.IsImportant != nil {
		announcement.IsImportant = *input.IsImportant
	}
	if input.IsActive != nil {
		announcement.IsActive = *input.IsActive
	}
	if input.StartDate != nil {
		announcement.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		announcement.EndDate = *input.EndDate
	}
	if input.TargetUserIDs != nil {
		raw, _ := json.Marshal(input.TargetUserIDs)
		announcement.TargetUserIDs = datatypes.JSON(raw)
		announcement.IsPublic = len(input.TargetUserIDs) == 0
	}
	if input.ImageURLs != nil {
		raw, _ := json.Marshal(input.ImageURLs)
		announcement.ImageURLs = datatypes.JSON(raw)
	}
	if input.FileURLs != nil {
		raw, _ := json.Marshal(input.FileURLs)
		announcement.FileURLs = datatypes.JSON(raw)
	}

	if err := storage.DB.Save(announcement).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "announcement.update", "announcement", announcement.ID, before, announcement.Title)
	utils.SendData(ctx, announcement)
}

// DeleteAnnouncement soft-deletes an announcement. Admin or site manager only.
func DeleteAnnouncement(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid announcement id")
		return
	}

	announcement := getAnnouncementByID(id, ctx)
	if announcement == nil {
		return
	}

	announcement.IsDeleted = true
	announcement.IsActive = false
	if err := storage.DB.Save(announcement).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "announcement.delete", "announcement", announcement.ID, nil, nil)
	utils.SendMessage(ctx, "Announcement deleted", nil)
}

func getAnnouncementByID(id uint, ctx iris.Context) *models.Announcement {
	var announcement models.Announcement
	found := storage.DB.Where("id = ? AND is_deleted = ?", id, false).Limit(1).Find(&announcement)
	if found.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}
	if found.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}
	return &announcement
}

// notifyAnnouncementAudience records a derived announcement notification for
// each target, or for every active user on a public announcement. Failures
// never fail the create.
func notifyAnnouncementAudience(a *models.Announcement, targets []uint) {
	svc := services.NewNotificationService(storage.DB)
	if len(targets) == 0 {
		var users []models.User
		if err := storage.DB.Where("status = ? AND is_deleted = ?", models.UserStatusActive, false).Find(&users).Error; err != nil {
			return
		}
		for _, u := range users {
			svc.CreateAnnouncementNotification(u.ID, a.ID, a.Title)
		}
		return
	}
	for _, uid := range targets {
		svc.CreateAnnouncementNotification(uid, a.ID, a.Title)
	}
}

type CreateAnnouncementInput struct {
	Title         string     `json:"title" validate:"required,max=256"`
	Content       string     `json:"content" validate:"required"`
	Category      string     `json:"category" validate:"omitempty,oneof=general maintenance event security other"`
	IsImportant   bool       `json:"isImportant"`
	StartDate     *time.Time `json:"startDate"`
	EndDate       *time.Time `json:"endDate"`
	TargetUserIDs []uint     `json:"targetUserIds"`
	ImageURLs     []string   `json:"imageUrls"`
	FileURLs      []string   `json:"fileUrls"`
}

type UpdateAnnouncementInput struct {
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Category      string     `json:"category" validate:"omitempty,oneof=general maintenance event security other"`
	IsImportant   *bool      `json:"isImportant"`
	IsActive      *bool      `json:"isActive"`
	StartDate     *time.Time `json:"startDate"`
	EndDate       *time.Time `json:"endDate"`
	TargetUserIDs []uint     `json:"targetUserIds"`
	ImageURLs     []string   `json:"imageUrls"`
	FileURLs      []string   `json:"fileUrls"`
}
