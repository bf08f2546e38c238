package models

import (
	"time"

	"salonbook/internal/schedule"
)

// BookingDraft is the in-progress multi-service selection of one checkout
// session. Instances run back-to-back in slice order.
type BookingDraft struct {
	SessionID string          `json:"session_id"`
	ClientID  int64           `json:"client_id"`
	Date      time.Time       `json:"date"`
	Instances []DraftInstance `json:"instances"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DraftInstance is one occurrence of a service in a draft. The same service
// may appear twice; InstanceID tells them apart.
type DraftInstance struct {
	InstanceID string `json:"instance_id"`
	ServiceID  int64  `json:"service_id"`
	StaffID    int64  `json:"staff_id"`
	Duration   int    `json:"duration"`
}

// Find returns the index of an instance or -1.
func (d *BookingDraft) Find(instanceID string) int {
	for i := range d.Instances {
		if d.Instances[i].InstanceID == instanceID {
			return i
		}
	}
	return -1
}

// Sequence splits the draft into the ordered instances and the staff
// assignment map used by the consecutive scheduler.
func (d *BookingDraft) Sequence() ([]schedule.ServiceInstance, map[string]int64) {
	instances := make([]schedule.ServiceInstance, 0, len(d.Instances))
	assignments := make(map[string]int64, len(d.Instances))
	for _, in := range d.Instances {
		instances = append(instances, schedule.ServiceInstance{
			InstanceID: in.InstanceID,
			ServiceID:  in.ServiceID,
			Duration:   in.Duration,
		})
		if in.StaffID != 0 {
			assignments[in.InstanceID] = in.StaffID
		}
	}
	return instances, assignments
}

// Availability is the result of an availability query for one day.
type Availability struct {
	Date   time.Time `json:"date"`
	Starts []string  `json:"starts"`
}
