package models

import "gorm.io/gorm"

// AuditLog records an admin mutation with before/after snapshots.
type AuditLog struct {
	gorm.Model
	AdminUserID  uint   `json:"adminUserID" gorm:"index"`
	Action       string `json:"action" gorm:"size:64;index"`
	ResourceType string `json:"resourceType" gorm:"size:32;index"`
	ResourceID   uint   `json:"resourceID" gorm:"index"`
	BeforeJSON   string `json:"beforeJSON" gorm:"type:text"`
	AfterJSON    string `json:"afterJSON" gorm:"type:text"`
	IPAddress    string `json:"ipAddress" gorm:"size:64"`
}
