package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	IssueStatusPending    = "pending"
	IssueStatusInProgress = "inProgress"
	IssueStatusResolved   = "resolved"
	IssueStatusCancelled  = "cancelled"
)

// Issue is a maintenance ticket reported by a resident.
type Issue struct {
	gorm.Model
	Title       string `json:"title" gorm:"size:100"`
	Description string `json:"description" gorm:"type:text"`
	Category    string `json:"category" gorm:"type:varchar(16)"` // electrical|plumbing|heating|elevator|security|cleaning|other
	Status      string `json:"status" gorm:"type:varchar(16);default:pending;index"`
	IsUrgent    bool   `json:"isUrgent" gorm:"default:false"`

	Images datatypes.JSON `json:"images"`

	ReporterID uint  `json:"reporterID" gorm:"not null;index"`
	Reporter   User  `json:"reporter,omitempty" gorm:"foreignKey:ReporterID"`
	AssigneeID *uint `json:"assigneeID" gorm:"index"`
	Assignee   *User `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`

	Comments []IssueComment `json:"comments,omitempty" gorm:"foreignKey:IssueID"`
}

type IssueComment struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	IssueID uint   `json:"issueID" gorm:"not null;index"`
	UserID  uint   `json:"userID" gorm:"not null"`
	User    User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Text    string `json:"text" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
}
