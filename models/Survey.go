package models

import (
	"time"

	"gorm.io/gorm"
)

type Survey struct {
	gorm.Model
	Title       string `json:"title" gorm:"size:100"`
	Description string `json:"description" gorm:"size:500"`

	Options   []SurveyOption   `json:"options" gorm:"foreignKey:SurveyID"`
	Responses []SurveyResponse `json:"responses,omitempty" gorm:"foreignKey:SurveyID"`

	CreatedByID uint      `json:"createdByID"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	IsActive    bool      `json:"isActive" gorm:"default:true;index"`
}

type SurveyOption struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	SurveyID uint   `json:"surveyID" gorm:"not null;index"`
	Text     string `json:"text"`
	Votes    int    `json:"votes" gorm:"default:0"`
}

type SurveyResponse struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	SurveyID uint `json:"surveyID" gorm:"not null;index"`
	UserID   uint `json:"userID" gorm:"not null;index"`
	OptionID uint `json:"optionID" gorm:"not null"`

	CreatedAt time.Time `json:"createdAt"`
}

// Open reports whether the survey currently accepts votes.
func (s *Survey) Open(now time.Time) bool {
	return s.IsActive && !now.Before(s.StartDate) && !now.After(s.EndDate)
}

// TotalVotes sums the per-option counters.
func (s *Survey) TotalVotes() int {
	total := 0
	for _, o := range s.Options {
		total += o.Votes
	}
	return total
}
