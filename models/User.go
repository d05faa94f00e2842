package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Roles recognized across the API. Staff roles (siteManager, technicalSupport,
// security) can be messaged by residents and receive issue assignments.
const (
	RoleResident         = "resident"
	RoleAdmin            = "admin"
	RoleSiteManager      = "siteManager"
	RoleTechnicalSupport = "technicalSupport"
	RoleSecurity         = "security"
)

const (
	UserStatusActive    = "active"
	UserStatusInactive  = "inactive"
	UserStatusSuspended = "suspended"
)

type User struct {
	gorm.Model
	Name         string `json:"name"`
	Email        string `json:"email" gorm:"uniqueIndex"`
	Password     string `json:"password"`
	Phone        string `json:"phone"`
	ProfileImage string `json:"profileImage"`
	Role         string `json:"role" gorm:"type:varchar(24);default:resident;index"`

	// Residence descriptor
	Site            string `json:"site"`
	Block           string `json:"block"`
	Apartment       string `json:"apartment"`
	OccupancyStatus string `json:"occupancyStatus" gorm:"type:varchar(16);default:owner"` // owner, tenant, manager, other

	Status      string         `json:"status" gorm:"type:varchar(16);default:active;index"`
	Preferences datatypes.JSON `json:"preferences"` // NotificationPreferences
	LastLoginAt *time.Time     `json:"lastLoginAt"`
	IsDeleted   bool           `json:"isDeleted" gorm:"default:false;index"`
}

type NotificationPreferences struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{Email: true, Push: true, SMS: false}
}

// NotificationPreferences decodes the JSON column, falling back to defaults
// when the column is empty or unreadable.
func (u *User) NotificationPreferences() NotificationPreferences {
	prefs := DefaultNotificationPreferences()
	if u.Preferences != nil {
		json.Unmarshal(u.Preferences, &prefs)
	}
	return prefs
}

// IsStaff reports whether the user holds one of the staff roles.
func (u *User) IsStaff() bool {
	switch u.Role {
	case RoleAdmin, RoleSiteManager, RoleTechnicalSupport, RoleSecurity:
		return true
	}
	return false
}

// UserSummary is the participant projection embedded in conversations,
// messages and notifications.
type UserSummary struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
	Role         string `json:"role,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
		Role:         u.Role,
	}
}

// Custom JSON marshaling: hide the credential hash and decode the
// preferences JSON column.
func (u *User) MarshalJSON() ([]byte, error) {
	type Alias User
	aux := &struct {
		Password    string                  `json:"password,omitempty"`
		Preferences NotificationPreferences `json:"preferences"`
		*Alias
	}{
		Preferences: u.NotificationPreferences(),
		Alias:       (*Alias)(u),
	}
	return json.Marshal(aux)
}
