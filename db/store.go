package db

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/termfx/luma/models"
)

// Store records parse and completion activity for one session.
type Store struct {
	db      *gorm.DB
	session *models.Session
}

// NewStore opens a store and begins a new session row.
func NewStore(gormDB *gorm.DB, clientInfo any) (*Store, error) {
	session := &models.Session{ID: uuid.NewString()}

	if clientInfo != nil {
		payload, err := json.Marshal(clientInfo)
		if err != nil {
			return nil, fmt.Errorf("failed to encode client info: %w", err)
		}
		session.ClientInfo = payload
	}

	if err := gormDB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &Store{db: gormDB, session: session}, nil
}

// SessionID returns the persisted session identifier.
func (s *Store) SessionID() string {
	return s.session.ID
}

// RecordDocument upserts the persisted state of a parsed document.
func (s *Store) RecordDocument(uri, text string, diagnostics any) error {
	digest := sha256.Sum256([]byte(text))

	payload, err := json.Marshal(diagnostics)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}

	errorCount := 0
	var decoded []json.RawMessage
	if err := json.Unmarshal(payload, &decoded); err == nil {
		errorCount = len(decoded)
	}

	record := &models.DocumentRecord{
		ID:          uuid.NewString(),
		SessionID:   s.session.ID,
		URI:         uri,
		Digest:      hex.EncodeToString(digest[:]),
		Bytes:       len(text),
		Text:        text,
		ErrorCount:  errorCount,
		Diagnostics: payload,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ? AND uri = ?", s.session.ID, uri).
			Delete(&models.DocumentRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Model(s.session).
			UpdateColumn("documents_count", gorm.Expr("documents_count + 1")).Error
	})
	if err != nil {
		return fmt.Errorf("failed to record document: %w", err)
	}

	return nil
}

// RecordCompletion logs a completion query and its result set.
func (s *Store) RecordCompletion(uri string, line, col int, items any) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode completion items: %w", err)
	}

	itemCount := 0
	var decoded []json.RawMessage
	if err := json.Unmarshal(payload, &decoded); err == nil {
		itemCount = len(decoded)
	}

	record := &models.CompletionRecord{
		ID:        uuid.NewString(),
		SessionID: s.session.ID,
		URI:       uri,
		Line:      line,
		Col:       col,
		ItemCount: itemCount,
		Items:     payload,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Model(s.session).
			UpdateColumn("completions_count", gorm.Expr("completions_count + 1")).Error
	})
	if err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}

	return nil
}

// PreviousText returns the most recently recorded text for a URI across all
// sessions, if any.
func (s *Store) PreviousText(uri string) (string, bool) {
	var record models.DocumentRecord
	err := s.db.Where("uri = ?", uri).Order("parsed_at DESC").First(&record).Error
	if err != nil {
		return "", false
	}
	return record.Text, true
}

// Close stamps the session's end time.
func (s *Store) Close() error {
	now := time.Now()
	if err := s.db.Model(s.session).Update("ended_at", &now).Error; err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}
