package models

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// Field limits.
const (
	MaxNameLength = 200
	MaxURLLength  = 2048

	DefaultListLimit = 20
	MaxListLimit     = 200
)

// CreateTaskRequest is the input of a create. Zero SiteType and Criteria
// take their defaults; every task starts as StatusCreated.
type CreateTaskRequest struct {
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	SiteType SiteType `json:"site_type,omitempty"`
	Criteria Criteria `json:"criteria,omitempty"`
}

// ToTask validates r and returns the task to insert.
func (r CreateTaskRequest) ToTask() (*Task, error) {
	t := &Task{
		Name:     r.Name,
		URL:      r.URL,
		SiteType: r.SiteType,
		Status:   StatusCreated,
		Criteria: r.Criteria,
	}
	if t.SiteType == "" {
		t.SiteType = SiteTypeOther
	}
	if t.Criteria == nil {
		t.Criteria = Criteria{}
	}

	if err := validateName(t.Name); err != nil {
		return nil, err
	}
	if err := validateURL(t.URL); err != nil {
		return nil, err
	}
	if !t.SiteType.Valid() {
		return nil, invalid("site_type", "unknown site type "+quote(string(t.SiteType)))
	}
	return t, nil
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Name     *string   `json:"name,omitempty"`
	URL      *string   `json:"url,omitempty"`
	SiteType *SiteType `json:"site_type,omitempty"`
	Status   *Status   `json:"status,omitempty"`
	Criteria *Criteria `json:"criteria,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields lists the supplied field names in column order.
func (p TaskPatch) Fields() []string {
	fields := make([]string, 0, 5)
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.URL != nil {
		fields = append(fields, "url")
	}
	if p.SiteType != nil {
		fields = append(fields, "site_type")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.Criteria != nil {
		fields = append(fields, "criteria")
	}
	return fields
}

// Validate checks every supplied field.
func (p TaskPatch) Validate() error {
	if p.Name != nil {
		if err := validateName(*p.Name); err != nil {
			return err
		}
	}
	if p.URL != nil {
		if err := validateURL(*p.URL); err != nil {
			return err
		}
	}
	if p.SiteType != nil && !p.SiteType.Valid() {
		return invalid("site_type", "unknown site type "+quote(string(*p.SiteType)))
	}
	if p.Status != nil && !p.Status.Valid() {
		return invalid("status", "unknown status "+quote(string(*p.Status)))
	}
	return nil
}

// ListFilter selects and windows a task listing. Empty Status, SiteType and
// Query match everything.
type ListFilter struct {
	Status   Status
	SiteType SiteType
	// Query is a case-insensitive substring of the task name.
	Query  string
	Limit  int
	Offset int
}

// Validate checks the window and the enum filters.
func (f ListFilter) Validate() error {
	if f.Limit < 1 || f.Limit > MaxListLimit {
		return invalid("limit", "must be between 1 and 200")
	}
	if f.Offset < 0 {
		return invalid("offset", "must not be negative")
	}
	if f.Status != "" && !f.Status.Valid() {
		return invalid("status", "unknown status "+quote(string(f.Status)))
	}
	if f.SiteType != "" && !f.SiteType.Valid() {
		return invalid("site_type", "unknown site type "+quote(string(f.SiteType)))
	}
	return nil
}

// TaskList is one page of a listing. Total ignores the window.
type TaskList struct {
	Items  []Task `json:"items"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", "is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return invalid("name", "must be at most 200 characters")
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return invalid("url", "is required")
	}
	if len(raw) > MaxURLLength {
		return invalid("url", "must be at most 2048 characters")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("url", "must be an absolute URL")
	}
	return nil
}

func quote(s string) string {
	return `"` + s + `"`
}
