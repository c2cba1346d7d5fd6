package models

import (
	"time"

	"gorm.io/datatypes"
)

// Session tracks one language-intelligence session
type Session struct {
	ID        string    `gorm:"primaryKey;type:varchar(40)"`
	StartedAt time.Time `gorm:"autoCreateTime"`
	EndedAt   *time.Time

	// Statistics
	DocumentsCount   int `gorm:"default:0"`
	CompletionsCount int `gorm:"default:0"`

	// Client info
	ClientInfo datatypes.JSON `gorm:"type:jsonb"`
}

// DocumentRecord is the persisted state of one parsed document
type DocumentRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(40)"`
	SessionID string `gorm:"type:varchar(40);index"`

	// Identity
	URI    string `gorm:"type:varchar(512);index"`
	Digest string `gorm:"type:varchar(64)"` // SHA256 of text
	Bytes  int    `gorm:"default:0"`

	// Content, kept so a re-parse can be diffed against the prior text
	Text string `gorm:"type:text"`

	// Parse results
	ErrorCount  int            `gorm:"default:0"`
	Diagnostics datatypes.JSON `gorm:"type:jsonb"`

	ParsedAt time.Time `gorm:"autoCreateTime"`

	// Relationships
	Session *Session `gorm:"foreignKey:SessionID"`
}

// CompletionRecord is a logged completion query and its results
type CompletionRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(40)"`
	SessionID string `gorm:"type:varchar(40);index"`

	URI  string `gorm:"type:varchar(512)"`
	Line int    `gorm:"default:0"`
	Col  int    `gorm:"default:0"`

	ItemCount int            `gorm:"default:0"`
	Items     datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"autoCreateTime"`

	// Relationship
	Session *Session `gorm:"foreignKey:SessionID"`
}

// TableName customizations for cleaner names
func (Session) TableName() string          { return "sessions" }
func (DocumentRecord) TableName() string   { return "documents" }
func (CompletionRecord) TableName() string { return "completions" }
