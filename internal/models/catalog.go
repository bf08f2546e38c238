package models

import (
	"time"

	"salonbook/internal/pricing"
	"salonbook/internal/schedule"
)

// Service is a catalogue entry. Services are loaded from the catalogue
// yaml on start and kept in the services table.
type Service struct {
	ID        int64         `yaml:"id" json:"id"`
	Name      string        `yaml:"name" json:"name"`
	Category  string        `yaml:"category" json:"category"`
	Duration  int           `yaml:"duration" json:"duration"` // minutes
	Price     pricing.Price `yaml:"price" json:"price"`
	SortOrder int64         `yaml:"sort_order" json:"sort_order"`
	IsActive  bool          `yaml:"is_active" json:"is_active"`
	CreatedAt time.Time     `yaml:"-" json:"created_at"`
	UpdatedAt time.Time     `yaml:"-" json:"updated_at"`
}

type Staff struct {
	ID        int64     `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Phone     string    `yaml:"phone" json:"phone"`
	SortOrder int64     `yaml:"sort_order" json:"sort_order"`
	IsActive  bool      `yaml:"is_active" json:"is_active"`
	CreatedAt time.Time `yaml:"-" json:"created_at"`
}

// Shift is either a weekly recurring working day or a single dated one.
type Shift struct {
	ID        int64        `json:"id"`
	StaffID   int64        `json:"staff_id"`
	Recurring bool         `json:"recurring"`
	Weekday   time.Weekday `json:"weekday"`
	Date      time.Time    `json:"date"`
}

// Absence blocks a staff member for a whole day.
type Absence struct {
	ID      int64     `json:"id"`
	StaffID int64     `json:"staff_id"`
	Date    time.Time `json:"date"`
	Type    string    `json:"type"` // holiday, sick, training...
	Note    string    `json:"note"`
}

type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Roster converts staff, shifts and absences into the types the working-day
// resolver understands.
func Roster(staff []*Staff, shifts []*Shift, absences []*Absence) ([]schedule.Staff, []schedule.Shift, []schedule.Absence) {
	ss := make([]schedule.Staff, 0, len(staff))
	for _, s := range staff {
		ss = append(ss, schedule.Staff{ID: s.ID, Name: s.Name})
	}
	sh := make([]schedule.Shift, 0, len(shifts))
	for _, s := range shifts {
		sh = append(sh, schedule.Shift{StaffID: s.StaffID, Recurring: s.Recurring, Weekday: s.Weekday, Date: s.Date})
	}
	ab := make([]schedule.Absence, 0, len(absences))
	for _, a := range absences {
		ab = append(ab, schedule.Absence{StaffID: a.StaffID, Date: a.Date, Type: a.Type})
	}
	return ss, sh, ab
}
