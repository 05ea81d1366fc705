// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// SessionID represents a server-issued hub session identifier (UUID format).
type SessionID string

// UUID validation regex (simple version).
var sessionIDRegex = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)

// IsValid checks if the session ID is a well-formed UUID.
func (s SessionID) IsValid() bool {
	return sessionIDRegex.MatchString(strings.ToLower(string(s)))
}

// String returns the string representation.
func (s SessionID) String() string {
	return string(s)
}

// NewSessionID creates a new SessionID with validation.
func NewSessionID(id string) (SessionID, error) {
	sid := SessionID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", ErrInvalidID
	}
	return sid, nil
}

// AccessCode represents the opaque, learner-facing code that maps 1:1 to a
// session. The hub never interprets its contents beyond non-emptiness and a
// length ceiling; issuing and formatting are owned by an external system.
type AccessCode string

// IsValid checks if the access code is usable as a lookup key.
func (a AccessCode) IsValid() bool {
	s := string(a)
	return len(s) >= 4 && len(s) <= 128 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns a masked representation safe for logs. Raw codes must never
// appear in log output.
func (a AccessCode) String() string {
	if len(a) <= 4 {
		return "****"
	}
	return string(a[:2]) + strings.Repeat("*", len(a)-4) + string(a[len(a)-2:])
}

// Raw returns the unmasked code for hashing and storage lookups.
func (a AccessCode) Raw() string {
	return string(a)
}

// NewAccessCode creates a new AccessCode with validation.
func NewAccessCode(code string) (AccessCode, error) {
	c := AccessCode(strings.TrimSpace(code))
	if !c.IsValid() {
		return "", ErrInvalidInput
	}
	return c, nil
}

// TenantID identifies the organization (school, district) a session belongs to.
type TenantID string

// IsValid checks if the tenant ID is valid.
func (t TenantID) IsValid() bool {
	s := string(t)
	return len(s) >= 2 && len(s) <= 64
}

// String returns the string representation.
func (t TenantID) String() string {
	return string(t)
}

// ═══════════════════════════════════════════════════════════════════════════
// Cultural Context & Locale
// ═══════════════════════════════════════════════════════════════════════════

// CulturalContext selects which cultural theming variant a session renders
// with. It is a fixed enumeration; the hub stores it and passes it through to
// the rendering collaborator untouched.
type CulturalContext string

const (
	// ContextKazakh - Kazakh cultural theming (default for pilot schools).
	ContextKazakh CulturalContext = "kazakh"
	// ContextRussian - Russian-language cultural theming.
	ContextRussian CulturalContext = "russian"
	// ContextNeutral - culture-neutral presentation.
	ContextNeutral CulturalContext = "neutral"
)

// IsValid checks that the context is one of the fixed enumeration values.
func (c CulturalContext) IsValid() bool {
	switch c {
	case ContextKazakh, ContextRussian, ContextNeutral:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c CulturalContext) String() string {
	return string(c)
}

// Locale is a BCP 47-ish language tag used to key world and achievement text.
type Locale string

const (
	LocaleKazakh  Locale = "kk"
	LocaleRussian Locale = "ru"
	LocaleEnglish Locale = "en"
)

// DefaultLocale is used when a requested locale has no translation.
const DefaultLocale = LocaleKazakh

// IsValid checks that the locale is supported.
func (l Locale) IsValid() bool {
	switch l {
	case LocaleKazakh, LocaleRussian, LocaleEnglish:
		return true
	default:
		return false
	}
}

// LocalizedText maps locale tags to translated strings. Resolution is the
// rendering collaborator's job; the hub only carries the mapping.
type LocalizedText map[Locale]string

// Resolve returns the text for the requested locale, falling back to the
// default locale and then to any available translation.
func (t LocalizedText) Resolve(locale Locale) string {
	if s, ok := t[locale]; ok {
		return s
	}
	if s, ok := t[DefaultLocale]; ok {
		return s
	}
	for _, s := range t {
		return s
	}
	return ""
}

// Clone returns a deep copy of the mapping.
func (t LocalizedText) Clone() LocalizedText {
	if t == nil {
		return nil
	}
	clone := make(LocalizedText, len(t))
	for k, v := range t {
		clone[k] = v
	}
	return clone
}
