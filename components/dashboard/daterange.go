package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const dateLayout = "2006-01-02"

var errInvertedDateRange = errors.New("dashboard: date range start is after end")

// DateRange is an inclusive calendar-day range. A nil *DateRange means no
// range is selected.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange normalizes both bounds to midnight and rejects inverted ranges.
func NewDateRange(start, end time.Time) (*DateRange, error) {
	r := &DateRange{Start: startOfDay(start), End: startOfDay(end)}
	if r.End.Before(r.Start) {
		return nil, errInvertedDateRange
	}
	return r, nil
}

// Contains reports whether t falls on a calendar day within the range. Days
// are compared as civil dates, ignoring time zones.
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	day := civilDay(t)
	return day >= civilDay(r.Start) && day <= civilDay(r.End)
}

// Days returns the number of calendar days covered.
func (r *DateRange) Days() int {
	if r == nil {
		return 0
	}
	n := 0
	for d := startOfDay(r.Start); !d.After(startOfDay(r.End)); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// DailyLabels returns one DD.MM label per day, or today's label when no range is set.
func (r *DateRange) DailyLabels(now time.Time) []string {
	if r == nil {
		return []string{now.Format("02.01")}
	}
	labels := make([]string, 0, r.Days())
	for d := startOfDay(r.Start); !d.After(startOfDay(r.End)); d = d.AddDate(0, 0, 1) {
		labels = append(labels, d.Format("02.01"))
	}
	return labels
}

// Equal compares two optional ranges by calendar day.
func (r *DateRange) Equal(other *DateRange) bool {
	if r == nil || other == nil {
		return r == nil && other == nil
	}
	return civilDay(r.Start) == civilDay(other.Start) && civilDay(r.End) == civilDay(other.End)
}

type dateRangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MarshalJSON encodes the bounds as YYYY-MM-DD.
func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRangeJSON{
		Start: r.Start.Format(dateLayout),
		End:   r.End.Format(dateLayout),
	})
}

// UnmarshalJSON accepts YYYY-MM-DD or RFC3339 bounds.
func (r *DateRange) UnmarshalJSON(data []byte) error {
	var raw dateRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("dashboard: decode date range: %w", err)
	}
	start, err := ParseDate(raw.Start)
	if err != nil {
		return err
	}
	end, err := ParseDate(raw.End)
	if err != nil {
		return err
	}
	parsed, err := NewDateRange(start, end)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

// ParseDate parses YYYY-MM-DD or RFC3339 values in UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrInvalidInput, value)
	}
	return t, nil
}

// FormatPeriod renders the range as two DD.MM.YYYY dates, or fallback when r is nil.
func FormatPeriod(r *DateRange, fallback string) string {
	if r == nil {
		return fallback
	}
	return r.Start.Format("02.01.2006") + " — " + r.End.Format("02.01.2006")
}

// DatePreset identifies a named quick-pick range.
type DatePreset string

const (
	PresetToday       DatePreset = "today"
	PresetYesterday   DatePreset = "yesterday"
	PresetThisWeek    DatePreset = "this_week"
	PresetLastWeek    DatePreset = "last_week"
	PresetThisMonth   DatePreset = "this_month"
	PresetLastMonth   DatePreset = "last_month"
	PresetSeptember   DatePreset = "september_2025"
	PresetLastQuarter DatePreset = "last_3_months"
)

const datePresetLabelKey = "dashboard.filters.preset."

// DatePresetOption is a preset as listed in the filter bar.
type DatePresetOption struct {
	Key   DatePreset `json:"key"`
	Label string     `json:"label"`
	Range DateRange  `json:"range"`
}

var datePresetLabels = []struct {
	key   DatePreset
	label string
}{
	{PresetToday, "Today"},
	{PresetYesterday, "Yesterday"},
	{PresetThisWeek, "This week"},
	{PresetLastWeek, "Last week"},
	{PresetThisMonth, "This month"},
	{PresetLastMonth, "Last month"},
	{PresetSeptember, "September 2025"},
	{PresetLastQuarter, "Last 3 months"},
}

// DatePresets resolves every preset against now.
func DatePresets(now time.Time, weekStart time.Weekday) []DatePresetOption {
	out := make([]DatePresetOption, 0, len(datePresetLabels))
	for _, item := range datePresetLabels {
		r, err := ResolveDatePreset(item.key, now, weekStart)
		if err != nil {
			continue
		}
		out = append(out, DatePresetOption{Key: item.key, Label: item.label, Range: *r})
	}
	return out
}

// ResolveDatePreset returns the inclusive day range for a preset key.
func ResolveDatePreset(key DatePreset, now time.Time, weekStart time.Weekday) (*DateRange, error) {
	today := startOfDay(now)
	switch key {
	case PresetToday:
		return &DateRange{Start: today, End: today}, nil
	case PresetYesterday:
		y := today.AddDate(0, 0, -1)
		return &DateRange{Start: y, End: y}, nil
	case PresetThisWeek:
		start := startOfWeek(today, weekStart)
		return &DateRange{Start: start, End: start.AddDate(0, 0, 6)}, nil
	case PresetLastWeek:
		start := startOfWeek(today, weekStart).AddDate(0, 0, -7)
		return &DateRange{Start: start, End: start.AddDate(0, 0, 6)}, nil
	case PresetThisMonth:
		start := startOfMonth(today)
		return &DateRange{Start: start, End: endOfMonth(start)}, nil
	case PresetLastMonth:
		start := startOfMonth(today).AddDate(0, -1, 0)
		return &DateRange{Start: start, End: endOfMonth(start)}, nil
	case PresetSeptember:
		loc := now.Location()
		return &DateRange{
			Start: time.Date(2025, time.September, 1, 0, 0, 0, 0, loc),
			End:   time.Date(2025, time.September, 30, 0, 0, 0, 0, loc),
		}, nil
	case PresetLastQuarter:
		start := startOfMonth(today).AddDate(0, -3, 0)
		return &DateRange{Start: start, End: endOfMonth(today)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown date preset %q", ErrInvalidInput, key)
	}
}

// ParseWeekday maps "sunday"/"monday" style names to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return time.Sunday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("dashboard: unknown weekday %q", name)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func civilDay(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func startOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, 1, -1)
}
