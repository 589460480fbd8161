package models

import (
	"fmt"
	"strings"
	"time"
)

// MilkType enumerates the pricing schemes applied to a farmer's milk.
type MilkType string

const (
	MilkTypeVLC       MilkType = "vlc"
	MilkTypeThekadari MilkType = "thekadari"
)

// Valid reports whether the milk type is one of the supported schemes.
func (m MilkType) Valid() bool {
	return m == MilkTypeVLC || m == MilkTypeThekadari
}

// ParseMilkType derives a MilkType from free-form input such as "VLC" or " thekadari ".
func ParseMilkType(value string) (MilkType, error) {
	m := MilkType(strings.TrimSpace(strings.ToLower(value)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown milk type %q", value)
	}
	return m, nil
}

// Session is the collection shift.
type Session string

const (
	SessionMorning Session = "morning"
	SessionEvening Session = "evening"
)

// Valid reports whether the session is morning or evening.
func (s Session) Valid() bool {
	return s == SessionMorning || s == SessionEvening
}

// Label returns the display name used on reports.
func (s Session) Label() string {
	switch s {
	case SessionMorning:
		return "Morning"
	case SessionEvening:
		return "Evening"
	default:
		return string(s)
	}
}

// ParseSession derives a Session from free-form input.
func ParseSession(value string) (Session, error) {
	s := Session(strings.TrimSpace(strings.ToLower(value)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown session %q", value)
	}
	return s, nil
}

// SessionAt returns the session a collection made at t belongs to.
// Collections from 03:00 up to 15:00 are morning, everything else is evening.
func SessionAt(t time.Time) Session {
	hour := t.Hour()
	if hour >= 3 && hour < 15 {
		return SessionMorning
	}
	return SessionEvening
}

// SessionFilter selects one session or both for reports.
type SessionFilter string

const (
	FilterMorning SessionFilter = "morning"
	FilterEvening SessionFilter = "evening"
	FilterBoth    SessionFilter = "both"
)

// ParseSessionFilter accepts morning, evening or both; empty input means both.
func ParseSessionFilter(value string) (SessionFilter, error) {
	normalized := strings.TrimSpace(strings.ToLower(value))
	switch SessionFilter(normalized) {
	case "", FilterBoth:
		return FilterBoth, nil
	case FilterMorning, FilterEvening:
		return SessionFilter(normalized), nil
	default:
		return "", fmt.Errorf("unknown session filter %q", value)
	}
}

// Includes reports whether entries of the given session pass the filter.
func (f SessionFilter) Includes(s Session) bool {
	return f == FilterBoth || string(f) == string(s)
}

// Rates holds the current global per-kg rates for each milk type.
type Rates struct {
	VLC       float64 `json:"vlc" bson:"vlc"`
	Thekadari float64 `json:"thekadari" bson:"thekadari"`
}

// For returns the rate applying to the given milk type.
func (r Rates) For(m MilkType) float64 {
	if m == MilkTypeVLC {
		return r.VLC
	}
	return r.Thekadari
}
