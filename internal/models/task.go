// Package models defines the task entity, its input shapes and the error
// taxonomy shared by the store, cache and HTTP layers.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SiteType classifies the site a task crawls.
type SiteType string

const (
	SiteTypeMarketplace SiteType = "marketplace"
	SiteTypeNews        SiteType = "news"
	SiteTypeEcommerce   SiteType = "ecommerce"
	SiteTypeClassifieds SiteType = "classifieds"
	SiteTypeOther       SiteType = "other"
)

// SiteTypes lists every accepted site type.
var SiteTypes = []SiteType{
	SiteTypeMarketplace, SiteTypeNews, SiteTypeEcommerce, SiteTypeClassifieds, SiteTypeOther,
}

// Valid reports whether s is a known site type.
func (s SiteType) Valid() bool {
	for _, v := range SiteTypes {
		if s == v {
			return true
		}
	}
	return false
}

// Status is the task lifecycle state. Any status may follow any other;
// workers own the state machine.
type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Statuses lists every accepted status.
var Statuses = []Status{
	StatusCreated, StatusRunning, StatusPaused, StatusCompleted, StatusFailed,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Task is a parsing-job descriptor.
type Task struct {
	ID        uuid.UUID `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	URL       string    `json:"url"        db:"url"`
	SiteType  SiteType  `json:"site_type"  db:"site_type"`
	Status    Status    `json:"status"     db:"status"`
	Criteria  Criteria  `json:"criteria"   db:"criteria"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Criteria is free-form collection configuration interpreted by workers.
// It is stored as JSONB and is never null: a nil Criteria encodes as {}.
type Criteria map[string]any

// MarshalJSON encodes nil as an empty object.
func (c Criteria) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(c))
}

// Value implements driver.Valuer. The JSON is passed as a string so
// PostgreSQL parses it as jsonb rather than bytea.
func (c Criteria) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(c))
	if err != nil {
		return nil, fmt.Errorf("marshal criteria: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL and JSON null scan to an empty map.
func (c *Criteria) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = Criteria{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("criteria: unsupported scan type")
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("unmarshal criteria: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	*c = m
	return nil
}
