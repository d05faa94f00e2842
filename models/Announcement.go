package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Announcement struct {
	gorm.Model
	Title       string `json:"title"`
	Content     string `json:"content" gorm:"type:text"`
	Category    string `json:"category" gorm:"type:varchar(16);default:general"` // general|maintenance|event|security|other
	IsImportant bool   `json:"isImportant" gorm:"default:false;index"`
	IsPublic    bool   `json:"isPublic" gorm:"default:true"`

	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`

	// Empty target list means the announcement is visible to everyone.
	TargetUserIDs datatypes.JSON `json:"targetUserIDs"`

	ImageURLs datatypes.JSON `json:"imageURLs"`
	FileURLs  datatypes.JSON `json:"fileURLs"`

	ViewCount int                `json:"viewCount" gorm:"default:0"`
	ViewedBy  []AnnouncementView `json:"viewedBy,omitempty" gorm:"foreignKey:AnnouncementID"`

	IsActive    bool `json:"isActive" gorm:"default:true;index"`
	IsDeleted   bool `json:"isDeleted" gorm:"default:false;index"`
	CreatedByID uint `json:"createdByID"`
}

type AnnouncementView struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	AnnouncementID uint      `json:"announcementID" gorm:"not null;index"`
	UserID         uint      `json:"userID" gorm:"not null;index"`
	ViewedAt       time.Time `json:"viewedAt" gorm:"autoCreateTime"`
}

// Targets decodes the target user id list; nil means public.
func (a *Announcement) Targets() []uint {
	if a.TargetUserIDs == nil {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(a.TargetUserIDs, &ids); err != nil {
		return nil
	}
	return ids
}

// VisibleTo reports whether the announcement targets the given user.
func (a *Announcement) VisibleTo(userID uint) bool {
	targets := a.Targets()
	if len(targets) == 0 {
		return true
	}
	for _, id := range targets {
		if id == userID {
			return true
		}
	}
	return false
}

// CurrentlyActive mirrors the start/end window check on the active flag.
func (a *Announcement) CurrentlyActive(now time.Time) bool {
	return a.IsActive && !now.Before(a.StartDate) && !now.After(a.EndDate)
}
