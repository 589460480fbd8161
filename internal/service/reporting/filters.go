package reporting

import (
	"errors"
	"time"

	"github.com/anmoldairy/dairy/internal/domain/models"
)

// ErrInvalidDateRange indicates the lower bound is after the upper bound.
var ErrInvalidDateRange = errors.New("from date is after to date")

// endOfDayOffset is added to the start of the upper-bound day so the whole day is included.
const endOfDayOffset = 23*time.Hour + 59*time.Minute + 59*time.Second + 999*time.Millisecond

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange spans from the start of from's day to 23:59:59.999 of to's day in loc.
func NewDateRange(from, to time.Time, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.Local
	}
	start := startOfDay(from, loc)
	end := startOfDay(to, loc).Add(endOfDayOffset)
	if end.Before(start) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{Start: start, End: end}, nil
}

// Day is the range covering a single calendar day.
func Day(day time.Time, loc *time.Location) DateRange {
	rng, _ := NewDateRange(day, day, loc)
	return rng
}

// Contains reports whether t falls within the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// FilterByDateRange keeps the entries collected within the range, preserving order.
func FilterByDateRange(entries []models.CollectionEntry, rng DateRange) []models.CollectionEntry {
	out := make([]models.CollectionEntry, 0, len(entries))
	for _, e := range entries {
		if rng.Contains(e.Time()) {
			out = append(out, e)
		}
	}
	return out
}

// FilterBySession selects the morning or evening entries, or concatenates both
// with morning first. Entries are not re-sorted by time.
func FilterBySession(morning, evening []models.CollectionEntry, filter models.SessionFilter) []models.CollectionEntry {
	out := make([]models.CollectionEntry, 0, len(morning)+len(evening))
	if filter.Includes(models.SessionMorning) {
		out = append(out, morning...)
	}
	if filter.Includes(models.SessionEvening) {
		out = append(out, evening...)
	}
	return out
}
