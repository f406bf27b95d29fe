package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date layout used on the wire.
const DateLayout = "2006-01-02"

const localTimestampLayout = "2006-01-02T15:04:05.999999999"

type (
	// Date is a calendar date. The time component is always midnight in the
	// location the date was parsed in; only day granularity is meaningful.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          string `json:"id"`
		Amount      Money  `json:"amount"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Date        Date   `json:"date"`
	}

	// NewExpense is the creation input for an expense.
	NewExpense struct {
		Amount      Money
		Description string
		Category    string
		Date        Date
	}

	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Profile struct {
		Username   string `json:"username"`
		Email      string `json:"email"`
		DateJoined string `json:"date_joined,omitempty"`
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty name")
	ErrTooLong          = errors.New("value too long")

	// Store lookups and uniqueness checks.
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// NewDate creates a Date from year, month, day in the local time zone.
func NewDate(year, month, day int) Date {
	return NewDateIn(year, month, day, time.Local)
}

// NewDateIn creates a Date from year, month, day in loc.
func NewDateIn(year, month, day int, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)}
}

// ParseDate parses an ISO-8601 date in loc. A timestamp is first moved into
// loc and its calendar day taken there; one without an offset is read as
// local wall time in loc.
func ParseDate(s string, loc *time.Location) (Date, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			ts, err = time.ParseInLocation(localTimestampLayout, s, loc)
		}
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		y, m, d := ts.In(loc).Date()
		return NewDateIn(y, int(m), d, loc), nil
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidDate)
	}
	_, month, day := d.Time.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// DayKey orders dates by calendar day regardless of location.
func (d Date) DayKey() int {
	return d.Year()*10000 + d.Month()*100 + d.Day()
}

// MonthStart returns midnight of the first day of the date's month.
func (d Date) MonthStart() time.Time {
	return time.Date(d.Year(), d.Time.Month(), 1, 0, 0, 0, 0, d.Location())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (e NewExpense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return fmt.Errorf("%w: description (max 200 characters)", ErrTooLong)
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Expense returns the stored form of the input under id.
func (e NewExpense) Expense(id string) Expense {
	return Expense{
		ID:          id,
		Amount:      e.Amount,
		Description: e.Description,
		Category:    e.Category,
		Date:        e.Date,
	}
}

// ValidateCategoryName checks a category name for creation.
func ValidateCategoryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: category name (max 100 characters)", ErrTooLong)
	}
	return nil
}

// IsValidation reports whether err stems from rejected user input.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidDay, ErrInvalidMonth, ErrInvalidDate, ErrInvalidAmount,
		ErrEmptyDescription, ErrEmptyCategory, ErrEmptyName, ErrInvalidTarget,
		ErrEmptyUsername, ErrInvalidEmail, ErrShortPassword, ErrTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
