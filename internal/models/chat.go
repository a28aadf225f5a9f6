package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageKind is the payload kind of a ChatMessage.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindLocation MessageKind = "location"
	KindSystem   MessageKind = "system"
)

// ChatMessage is a message posted to a session or a room.
// Deleted messages keep their row; readers only see the tombstone.
type ChatMessage struct {
	ID string `gorm:"primaryKey" json:"id"`
	// ChannelID is the session id or room id the message belongs to.
	ChannelID string `gorm:"not null;index:idx_chat_channel_created,priority:1" json:"sessionOrRoomId"`
	SenderID  string `gorm:"not null" json:"senderId"`
	// SenderName is denormalized at send time.
	SenderName string      `json:"senderDisplayName"`
	Body       string      `gorm:"type:text" json:"body"`
	Kind       MessageKind `gorm:"type:text;not null" json:"kind"`
	Latitude   *float64    `json:"lat,omitempty"`
	Longitude  *float64    `json:"lng,omitempty"`
	Deleted    bool        `gorm:"not null;default:false" json:"deleted"`
	CreatedAt  time.Time   `gorm:"index:idx_chat_channel_created,priority:2" json:"createdAt"`

	ReadBy []ReadReceipt `gorm:"foreignKey:MessageID" json:"readBy"`
}

// ReadReceipt records that ReaderID has seen MessageID.
type ReadReceipt struct {
	MessageID string    `gorm:"primaryKey" json:"-"`
	ReaderID  string    `gorm:"primaryKey" json:"readerId"`
	ReadAt    time.Time `gorm:"not null" json:"readAt"`
}

// BeforeCreate generates the message id.
func (m *ChatMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// Location returns the attached location payload, if any.
func (m ChatMessage) Location() *Location {
	if m.Latitude == nil || m.Longitude == nil {
		return nil
	}
	return &Location{Lat: *m.Latitude, Lng: *m.Longitude}
}

// Redacted returns the message as readers see it: content hidden once deleted.
func (m ChatMessage) Redacted() ChatMessage {
	if m.Deleted {
		m.Body = ""
		m.Latitude = nil
		m.Longitude = nil
	}
	return m
}
