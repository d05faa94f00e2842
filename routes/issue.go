package routes

import (
	"encoding/json"

	"github.com/ErenEClk/SmartCom/models"
	"github.com/ErenEClk/SmartCom/services"
	"github.com/ErenEClk/SmartCom/storage"
	"github.com/ErenEClk/SmartCom/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/datatypes"
)

// CreateIssue files a maintenance ticket for the caller and notifies
// technical support.
func CreateIssue(ctx iris.Context) {
	var input CreateIssueInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	claims := utils.GetClaims(ctx)

	issue := models.Issue{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Status:      models.IssueStatusPending,
		IsUrgent:    input.IsUrgent,
		ReporterID:  claims.ID,
	}
	if len(input.Images) > 0 {
		raw, _ := json.Marshal(input.Images)
		issue.Images = datatypes.JSON(raw)
	}

	if err := storage.DB.Create(&issue).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	notifyTechnicalSupport(&issue)

	utils.SendData(ctx, issue)
}

// GetIssues lists the caller's own tickets, or every ticket for staff.
func GetIssues(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	query := storage.DB.Preload("Reporter").Preload("Assignee").Order("created_at DESC")
	if !claims.IsStaff() {
		query = query.Where("reporter_id = ?", claims.ID)
	}

	var issues []models.Issue
	if err := query.Find(&issues).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.SendData(ctx, issues)
}

// GetIssueByID returns one ticket for its reporter, assignee, or staff.
func GetIssueByID(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid issue id")
		return
	}
	claims := utils.GetClaims(ctx)

	issue := getIssueWithComments(id, ctx)
	if issue == nil {
		return
	}
	if !canAccessIssue(issue, claims) {
		utils.CreateForbidden(ctx)
		return
	}
	utils.SendData(ctx, issue)
}

// UpdateIssue changes status and/or assignee. Staff only.
func UpdateIssue(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid issue id")
		return
	}

	issue := getIssueWithComments(id, ctx)
	if issue == nil {
		return
	}

	var input UpdateIssueInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if input.Status != "" {
		issue.Status = input.Status
	}
	if input.AssigneeID != nil {
		var assignee models.User
		found := storage.DB.Where("id = ? AND is_deleted = ?", *input.AssigneeID, false).Limit(1).Find(&assignee)
		if found.Error != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		if found.RowsAffected == 0 {
			utils.SendError(ctx, iris.StatusBadRequest, "Assignee does not exist")
			return
		}
		issue.AssigneeID = input.AssigneeID
	}
	if input.IsUrgent != nil {
		issue.IsUrgent = *input.IsUrgent
	}

	if err := storage.DB.Save(issue).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.SendData(ctx, issue)
}

// AddIssueComment appends a comment. Reporter, assignee, and staff only.
func AddIssueComment(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid issue id")
		return
	}
	claims := utils.GetClaims(ctx)

	issue := getIssueWithComments(id, ctx)
	if issue == nil {
		return
	}
	if !canAccessIssue(issue, claims) {
		utils.CreateForbidden(ctx)
		return
	}

	var input AddIssueCommentInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	comment := models.IssueComment{IssueID: issue.ID, UserID: claims.ID, Text: input.Text}
	if err := storage.DB.Create(&comment).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.SendData(ctx, comment)
}

// DeleteIssue removes a ticket. Admin only.
func DeleteIssue(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid issue id")
		return
	}

	issue := getIssueWithComments(id, ctx)
	if issue == nil {
		return
	}

	if err := storage.DB.Delete(issue).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.SendMessage(ctx, "Issue deleted", nil)
}

func getIssueWithComments(id uint, ctx iris.Context) *models.Issue {
	var issue models.Issue
	found := storage.DB.
		Preload("Reporter").
		Preload("Assignee").
		Preload("Comments.User").
		Where("issues.id = ?", id).
		Limit(1).Find(&issue)
	if found.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}
	if found.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}
	return &issue
}

func canAccessIssue(issue *models.Issue, claims *utils.AccessToken) bool {
	if claims.IsStaff() {
		return true
	}
	if issue.ReporterID == claims.ID {
		return true
	}
	return issue.AssigneeID != nil && *issue.AssigneeID == claims.ID
}

// notifyTechnicalSupport records a maintenance notification for every
// technical support account. Best effort.
func notifyTechnicalSupport(issue *models.Issue) {
	var staff []models.User
	err := storage.DB.
		Where("role = ? AND status = ? AND is_deleted = ?", models.RoleTechnicalSupport, models.UserStatusActive, false).
		Find(&staff).Error
	if err != nil {
		return
	}

	svc := services.NewNotificationService(storage.DB)
	priority := models.PriorityMedium
	if issue.IsUrgent {
		priority = models.PriorityHigh
	}
	for _, u := range staff {
		relatedID := issue.ID
		svc.Create(services.CreateNotificationInput{
			UserID:      u.ID,
			Title:       "New Maintenance Issue",
			Message:     issue.Title,
			Type:        models.NotificationMaintenance,
			RelatedID:   &relatedID,
			RelatedType: "maintenance",
			Priority:    priority,
		})
	}
}

type CreateIssueInput struct {
	Title       string   `json:"title" validate:"required,max=100"`
	Description string   `json:"description" validate:"required,max=1000"`
	Category    string   `json:"category" validate:"required,oneof=electrical plumbing heating elevator security cleaning other"`
	IsUrgent    bool     `json:"isUrgent"`
	Images      []string `json:"images"`
}

type UpdateIssueInput struct {
	Status     string `json:"status" validate:"omitempty,oneof=pending inProgress resolved cancelled"`
	AssigneeID *uint  `json:"assigneeId"`
	IsUrgent   *bool  `json:"isUrgent"`
}

type AddIssueCommentInput struct {
	Text string `json:"text" validate:"required"`
}
