package longtermmemory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDPrefix starts every fact ID.
const IDPrefix = "mem_"

// Scope determines where a fact is stored and how long it is relevant.
type Scope string

const (
	ScopeUser    Scope = "user"
	ScopeSession Scope = "session"
)

// Category classifies the kind of information a fact encodes.
type Category string

const (
	CategoryPreference   Category = "preference"
	CategoryPersonal     Category = "personal"
	CategoryPlan         Category = "plan"
	CategoryActivity     Category = "activity"
	CategoryHealth       Category = "health"
	CategoryProfessional Category = "professional"
	CategoryMisc         Category = "misc"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryPreference, CategoryPersonal, CategoryPlan, CategoryActivity,
	CategoryHealth, CategoryProfessional, CategoryMisc,
}

// ParseCategory maps s onto a known category. Unknown values become misc.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryMisc
}

// Trigger records what created a fact version.
type Trigger string

const (
	TriggerExtract Trigger = "extract"
	TriggerUpdate  Trigger = "update"
	TriggerDelete  Trigger = "delete"
	TriggerManual  Trigger = "manual"
)

// Fact is one stored version of a remembered fact. Content is the markdown
// body; every other field lives in the YAML front matter.
type Fact struct {
	CreatedAt  time.Time `yaml:"created_at"`
	UpdatedAt  time.Time `yaml:"updated_at"`
	Supersedes *string   `yaml:"supersedes,omitempty"`
	ID         string    `yaml:"id"`
	Scope      Scope     `yaml:"scope"`
	Category   Category  `yaml:"category"`
	SessionID  string    `yaml:"session_id"`
	Trigger    Trigger   `yaml:"trigger"`
	Content    string    `yaml:"-"`
	Version    int       `yaml:"version"`
	Deleted    bool      `yaml:"deleted,omitempty"`
}

// NewID generates a new fact identifier.
func NewID() string {
	return IDPrefix + uuid.NewString()
}

// NewFact creates the first version of a fact.
func NewFact(content string, scope Scope, category Category, sessionID string, trigger Trigger) *Fact {
	now := timeNow()
	return &Fact{
		ID:        NewID(),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
		Scope:     scope,
		Category:  category,
		SessionID: sessionID,
		Trigger:   trigger,
		Content:   strings.TrimSpace(content),
	}
}

// Validate checks that the fact is well formed.
func (f *Fact) Validate() error {
	if !strings.HasPrefix(f.ID, IDPrefix) || len(f.ID) == len(IDPrefix) {
		return fmt.Errorf("longtermmemory: invalid ID %q", f.ID)
	}
	if strings.TrimSpace(f.Content) == "" {
		return fmt.Errorf("longtermmemory: empty content for %s", f.ID)
	}
	switch f.Scope {
	case ScopeUser, ScopeSession:
	default:
		return fmt.Errorf("longtermmemory: unknown scope %q", f.Scope)
	}
	if ParseCategory(string(f.Category)) != f.Category {
		return fmt.Errorf("longtermmemory: unknown category %q", f.Category)
	}
	switch f.Trigger {
	case TriggerExtract, TriggerUpdate, TriggerDelete, TriggerManual:
	default:
		return fmt.Errorf("longtermmemory: unknown trigger %q", f.Trigger)
	}
	if f.Version <= 0 {
		return fmt.Errorf("longtermmemory: invalid version %d", f.Version)
	}
	return nil
}

// Normalize folds case and whitespace so near-identical facts compare equal.
func Normalize(content string) string {
	return strings.ToLower(strings.Join(strings.Fields(content), " "))
}
