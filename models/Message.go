package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Message is a single record inside a conversation. It does not use
// gorm.Model: deletion here is an application-level flag (deleter + timestamp)
// visible on the wire, not GORM's query-hiding DeletedAt.
type Message struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	ConversationID uint `json:"conversationID" gorm:"not null;index"`

	SenderID uint `json:"senderID" gorm:"not null;index"`
	Sender   User `json:"sender" gorm:"foreignKey:SenderID"`

	ReceiverID uint `json:"receiverID" gorm:"not null;index"`
	Receiver   User `json:"receiver" gorm:"foreignKey:ReceiverID"`

	Content     string         `json:"content" gorm:"type:text"`
	Attachments datatypes.JSON `json:"attachments"` // []Attachment

	IsRead bool       `json:"isRead" gorm:"default:false;index"`
	ReadAt *time.Time `json:"readAt"`

	IsDelivered bool       `json:"isDelivered" gorm:"default:false"`
	DeliveredAt *time.Time `json:"deliveredAt"`

	IsDeleted   bool       `json:"isDeleted" gorm:"default:false;index"`
	DeletedByID *uint      `json:"deletedByID"`
	DeletedAt   *time.Time `json:"deletedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// AttachmentList decodes the attachments column.
func (m *Message) AttachmentList() []Attachment {
	if m.Attachments == nil {
		return nil
	}
	var list []Attachment
	if err := json.Unmarshal(m.Attachments, &list); err != nil {
		return nil
	}
	return list
}

// EncodeAttachments stores the given attachments on the message.
func (m *Message) EncodeAttachments(list []Attachment) error {
	if len(list) == 0 {
		m.Attachments = nil
		return nil
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	m.Attachments = datatypes.JSON(raw)
	return nil
}
