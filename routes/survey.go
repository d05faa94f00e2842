package routes

import (
	"time"

	"github.com/ErenEClk/SmartCom/models"
	"github.com/ErenEClk/SmartCom/storage"
	"github.com/ErenEClk/SmartCom/utils"
	"github.com/kataras/iris/v12"
)

// CreateSurvey stores a survey with its options. Admin or site manager only.
func CreateSurvey(ctx iris.Context) {
	var input CreateSurveyInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	claims := utils.GetClaims(ctx)

	startDate := time.Now()
	if input.StartDate != nil {
		startDate = *input.StartDate
	}

	survey := models.Survey{
		Title:       input.Title,
		Description: input.Description,
		CreatedByID: claims.ID,
		StartDate:   startDate,
		EndDate:     input.EndDate,
		IsActive:    true,
	}
	for _, text := range input.Options {
		survey.Options = append(survey.Options, models.SurveyOption{Text: text})
	}

	if err := storage.DB.Create(&survey).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.SendData(ctx, survey)
}

// GetSurveys lists currently open surveys; staff sees all surveys.
func GetSurveys(ctx iris.Context) {
	claims := utils.GetClaims(ctx)

	query := storage.DB.Preload("Options").Order("created_at DESC")
	if !claims.IsStaff() {
		now := time.Now()
		query = query.Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, now, now)
	}

	var surveys []models.Survey
	if err := query.Find(&surveys).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.SendData(ctx, surveys)
}

// GetSurveyByID returns one survey with its options and vote totals.
func GetSurveyByID(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid survey id")
		return
	}

	survey := getSurveyByID(id, ctx)
	if survey == nil {
		return
	}

	utils.SendData(ctx, iris.Map{
		"survey":     survey,
		"totalVotes": survey.TotalVotes(),
		"isOpen":     survey.Open(time.Now()),
	})
}

// VoteSurvey records the caller's single response and bumps the option
// counter.
func VoteSurvey(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid survey id")
		return
	}
	claims := utils.GetClaims(ctx)

	survey := getSurveyByID(id, ctx)
	if survey == nil {
		return
	}
	if !survey.Open(time.Now()) {
		utils.SendError(ctx, iris.StatusBadRequest, "Survey is closed")
		return
	}

	var input VoteSurveyInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var option *models.SurveyOption
	for i := range survey.Options {
		if survey.Options[i].ID == input.OptionID {
			option = &survey.Options[i]
			break
		}
	}
	if option == nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Option does not belong to this survey")
		return
	}

	var existing models.SurveyResponse
	found := storage.DB.Where("survey_id = ? AND user_id = ?", survey.ID, claims.ID).Limit(1).Find(&existing)
	if found.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if found.RowsAffected > 0 {
		utils.SendError(ctx, iris.StatusBadRequest, "You have already voted in this survey")
		return
	}

	response := models.SurveyResponse{SurveyID: survey.ID, UserID: claims.ID, OptionID: option.ID}
	if err := storage.DB.Create(&response).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	option.Votes++
	if err := storage.DB.Save(option).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.SendData(ctx, response)
}

// GetSurveyResults returns per-option counts for a survey.
func GetSurveyResults(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid survey id")
		return
	}

	survey := getSurveyByID(id, ctx)
	if survey == nil {
		return
	}

	utils.SendData(ctx, iris.Map{
		"options":    survey.Options,
		"totalVotes": survey.TotalVotes(),
	})
}

// CloseSurvey deactivates a survey. Admin or site manager only.
func CloseSurvey(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid survey id")
		return
	}

	survey := getSurveyByID(id, ctx)
	if survey == nil {
		return
	}

	survey.IsActive = false
	if err := storage.DB.Save(survey).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.SendMessage(ctx, "Survey closed", nil)
}

// DeleteSurvey removes a survey and its children. Admin only.
func DeleteSurvey(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.SendError(ctx, iris.StatusBadRequest, "Invalid survey id")
		return
	}

	survey := getSurveyByID(id, ctx)
	if survey == nil {
		return
	}

	storage.DB.Where("survey_id = ?", survey.ID).Delete(&models.SurveyResponse{})
	storage.DB.Where("survey_id = ?", survey.ID).Delete(&models.SurveyOption{})
	if err := storage.DB.Delete(survey).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.SendMessage(ctx, "Survey deleted", nil)
}

func getSurveyByID(id uint, ctx iris.Context) *models.Survey {
	var survey models.Survey
	found := storage.DB.Preload("Options").Where("surveys.id = ?", id).Limit(1).Find(&survey)
	if found.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}
	if found.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}
	return &survey
}

type CreateSurveyInput struct {
	Title       string     `json:"title" validate:"required,max=100"`
	Description string     `json:"description" validate:"required,max=500"`
	Options     []string   `json:"options" validate:"required,min=2,dive,required"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     time.Time  `json:"endDate" validate:"required"`
}

type VoteSurveyInput struct {
	OptionID uint `json:"optionId" validate:"required"`
}
