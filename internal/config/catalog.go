package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"salonbook/internal/models"

	"gopkg.in/yaml.v2"
)

// Catalog is the seed file with services and the staff roster.
type Catalog struct {
	Services []models.Service `yaml:"services"`
	Staff    []StaffEntry     `yaml:"staff"`
}

// StaffEntry is a staff member with the weekdays they work every week.
type StaffEntry struct {
	models.Staff `yaml:",inline"`
	Weekdays     []string `yaml:"weekdays"`
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday accepts full and three-letter english day names.
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return wd, nil
}

// WorkingDays resolves the weekday names of the entry.
func (e StaffEntry) WorkingDays() ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(e.Weekdays))
	for _, name := range e.Weekdays {
		wd, err := ParseWeekday(name)
		if err != nil {
			return nil, fmt.Errorf("staff %q: %w", e.Name, err)
		}
		days = append(days, wd)
	}
	return days, nil
}

// LoadCatalog reads and validates the catalogue seed file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	if err := ValidateServices(catalog.Services); err != nil {
		return nil, err
	}

	ids := make(map[int64]bool)
	for _, s := range catalog.Staff {
		if s.ID == 0 {
			return nil, fmt.Errorf("staff '%s' has invalid ID 0", s.Name)
		}
		if ids[s.ID] {
			return nil, fmt.Errorf("duplicate staff ID found: %d", s.ID)
		}
		ids[s.ID] = true
		if _, err := s.WorkingDays(); err != nil {
			return nil, err
		}
	}
	return &catalog, nil
}
