package travel

import (
	"crypto/sha256"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the expected format of StartDate and EndDate.
const DateLayout = "2006-01-02"

// MaxFieldLength caps every free-text field, in characters.
const MaxFieldLength = 500

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`forget\s+(everything|all)|new\s+instructions)`,
)

// Request is the trip a plan is generated for.
type Request struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
	StartDate   string `json:"start_date" yaml:"start_date"`
	EndDate     string `json:"end_date" yaml:"end_date"`
	Budget      string `json:"budget" yaml:"budget"`
	Travelers   string `json:"travelers" yaml:"travelers"`
	Interests   string `json:"interests" yaml:"interests"`
}

// ValidationError reports the first problem found in a Request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Normalize trims every field and defaults Travelers to "1".
func (r Request) Normalize() Request {
	r.Source = strings.TrimSpace(r.Source)
	r.Destination = strings.TrimSpace(r.Destination)
	r.StartDate = strings.TrimSpace(r.StartDate)
	r.EndDate = strings.TrimSpace(r.EndDate)
	r.Budget = strings.TrimSpace(r.Budget)
	r.Travelers = strings.TrimSpace(r.Travelers)
	r.Interests = strings.TrimSpace(r.Interests)
	if r.Travelers == "" {
		r.Travelers = "1"
	}
	return r
}

// Validate checks required fields in form order.
func (r Request) Validate() error {
	r = r.Normalize()
	required := []struct {
		field, value, message string
	}{
		{"source", r.Source, "Please enter your departure location"},
		{"destination", r.Destination, "Please enter your destination"},
		{"start_date", r.StartDate, "Please enter your start date"},
		{"end_date", r.EndDate, "Please enter your end date"},
		{"budget", r.Budget, "Please enter your budget"},
	}
	for _, f := range required {
		if f.value == "" {
			return &ValidationError{Field: f.field, Message: f.message}
		}
	}

	for _, f := range r.fields() {
		if len([]rune(f.value)) > MaxFieldLength {
			return &ValidationError{Field: f.name, Message: fmt.Sprintf("Must be at most %d characters", MaxFieldLength)}
		}
		if injectionPattern.MatchString(f.value) {
			return &ValidationError{Field: f.name, Message: "Please describe your trip without instructions to the assistant"}
		}
	}

	start, errStart := time.Parse(DateLayout, r.StartDate)
	end, errEnd := time.Parse(DateLayout, r.EndDate)
	if errStart == nil && errEnd == nil && end.Before(start) {
		return &ValidationError{Field: "end_date", Message: "End date must be on or after start date"}
	}
	return nil
}

type namedField struct {
	name, value string
}

func (r Request) fields() []namedField {
	return []namedField{
		{"source", r.Source},
		{"destination", r.Destination},
		{"start_date", r.StartDate},
		{"end_date", r.EndDate},
		{"budget", r.Budget},
		{"travelers", r.Travelers},
		{"interests", r.Interests},
	}
}

// Hash identifies a request by its normalized fields.
func (r Request) Hash() string {
	r = r.Normalize()
	parts := []string{
		strings.ToLower(r.Source),
		strings.ToLower(r.Destination),
		r.StartDate,
		r.EndDate,
		strings.ToLower(r.Budget),
		r.Travelers,
		strings.ToLower(r.Interests),
	}
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return fmt.Sprintf("%x", h[:])
}

// Duration returns the whole number of days between the dates, or 0 when
// either date does not parse.
func (r Request) Duration() int {
	start, end, ok := r.dates()
	if !ok {
		return 0
	}
	days := math.Abs(end.Sub(start).Hours()) / 24
	return int(math.Ceil(days))
}

// DurationLabel renders Duration as "5 days". Empty when dates are unusable.
func (r Request) DurationLabel() string {
	if _, _, ok := r.dates(); !ok {
		return ""
	}
	return plural(r.Duration(), "day")
}

func (r Request) dates() (start, end time.Time, ok bool) {
	start, err := time.Parse(DateLayout, strings.TrimSpace(r.StartDate))
	if err != nil {
		return start, end, false
	}
	end, err = time.Parse(DateLayout, strings.TrimSpace(r.EndDate))
	if err != nil {
		return start, end, false
	}
	return start, end, true
}

// TravelersLabel renders the party size as "2 travelers".
func (r Request) TravelersLabel() string {
	t := r.Normalize().Travelers
	n, err := strconv.Atoi(t)
	if err != nil {
		return t + " travelers"
	}
	return plural(n, "traveler")
}

// Title is the plan heading, e.g. "Boston to Lisbon".
func (r Request) Title() string {
	r = r.Normalize()
	return r.Source + " to " + r.Destination
}

// Summary is the one-line trip description shown under the title.
func (r Request) Summary() string {
	r = r.Normalize()
	var parts []string
	if d := r.DurationLabel(); d != "" {
		parts = append(parts, d)
	}
	if r.StartDate != "" && r.EndDate != "" {
		parts = append(parts, r.StartDate+" to "+r.EndDate)
	}
	parts = append(parts, r.TravelersLabel())
	if r.Budget != "" {
		parts = append(parts, "Budget: "+r.Budget)
	}
	return strings.Join(parts, " · ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
