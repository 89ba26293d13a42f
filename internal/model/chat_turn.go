package model

import "time"

// ChatTurn is one stored prompt/response exchange. Response is nil for plain chat turns.
type ChatTurn struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Prompt    string    `gorm:"type:text;not null" json:"prompt"`
	Response  *string   `gorm:"type:text" json:"response"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	SessionID string    `gorm:"size:128;index" json:"sessionId"`
	UserAgent string    `gorm:"size:512" json:"userAgent"`
	UserID    *string   `gorm:"size:64;index" json:"userId"`
	UserName  *string   `gorm:"size:128" json:"userName"`
	// Seq is the database arrival order, breaking ties between equal timestamps.
	Seq uint64 `gorm:"autoIncrement;uniqueIndex" json:"-"`
}

func (ChatTurn) TableName() string {
	return "chats"
}

// HasResponse reports whether the turn carries a non-empty generated reply.
func (t ChatTurn) HasResponse() bool {
	return t.Response != nil && *t.Response != ""
}
