package models

import (
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

type Conversation struct {
	gorm.Model
	Type  string `json:"type" gorm:"type:varchar(12);default:direct;index"`
	Title string `json:"title"` // required for group conversations

	Participants []ConversationParticipant `json:"participants" gorm:"foreignKey:ConversationID"`

	LastMessageID *uint    `json:"lastMessageID" gorm:"index"`
	LastMessage   *Message `json:"lastMessage,omitempty" gorm:"foreignKey:LastMessageID"`

	// Denormalized unread counters keyed by participant id. Best-effort
	// signal; the read flag on each message is the source of truth.
	UnreadCounts datatypes.JSON `json:"unreadCounts"`

	IsActive    bool `json:"isActive" gorm:"default:true;index"`
	CreatedByID uint `json:"createdByID"`
}

type ConversationParticipant struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	ConversationID uint `json:"conversationID" gorm:"not null;index"`
	UserID         uint `json:"userID" gorm:"not null;index"`
	User           User `json:"user" gorm:"foreignKey:UserID"`

	JoinedAt time.Time `json:"joinedAt" gorm:"autoCreateTime"`
}

// ParticipantIDs returns the current participant user ids.
func (c *Conversation) ParticipantIDs() []uint {
	ids := make([]uint, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID uint) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (c *Conversation) unreadMap() map[string]int {
	counts := map[string]int{}
	if c.UnreadCounts != nil {
		json.Unmarshal(c.UnreadCounts, &counts)
	}
	return counts
}

func (c *Conversation) setUnreadMap(counts map[string]int) {
	raw, err := json.Marshal(counts)
	if err != nil {
		return
	}
	c.UnreadCounts = datatypes.JSON(raw)
}

// UnreadMap returns a copy of the denormalized counter map keyed by
// participant id.
func (c *Conversation) UnreadMap() map[string]int {
	return c.unreadMap()
}

// UnreadFor returns the denormalized unread count for a participant.
func (c *Conversation) UnreadFor(userID uint) int {
	return c.unreadMap()[unreadKey(userID)]
}

// IncrementUnread bumps a participant's unread counter by one.
func (c *Conversation) IncrementUnread(userID uint) {
	counts := c.unreadMap()
	counts[unreadKey(userID)]++
	c.setUnreadMap(counts)
}

// DecrementUnread lowers a participant's unread counter, floored at zero.
func (c *Conversation) DecrementUnread(userID uint) {
	counts := c.unreadMap()
	key := unreadKey(userID)
	if counts[key] > 0 {
		counts[key]--
	}
	c.setUnreadMap(counts)
}

// SetUnread overwrites a participant's unread counter.
func (c *Conversation) SetUnread(userID uint, n int) {
	counts := c.unreadMap()
	counts[unreadKey(userID)] = n
	c.setUnreadMap(counts)
}

// ResetUnread zeroes a participant's unread counter.
func (c *Conversation) ResetUnread(userID uint) {
	counts := c.unreadMap()
	counts[unreadKey(userID)] = 0
	c.setUnreadMap(counts)
}

// PruneUnread drops counter keys that no longer map to a participant.
// Unread-count keys exist only for current participants.
func (c *Conversation) PruneUnread() {
	counts := c.unreadMap()
	for key := range counts {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil || !c.HasParticipant(uint(id)) {
			delete(counts, key)
		}
	}
	c.setUnreadMap(counts)
}

func unreadKey(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
