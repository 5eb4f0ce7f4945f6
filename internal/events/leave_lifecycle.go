package events

import "time"

const LeaveLifecycleTopic = "fleet.leave.lifecycle.v1"

const (
	LeaveSubmitted = "leave.submitted"
	LeaveApproved  = "leave.approved"
	LeaveRejected  = "leave.rejected"
	LeaveDeleted   = "leave.deleted"
)

// LeaveLifecycleEvent is published for every committed leave transition.
// Messages are keyed by driver code so one driver's events stay ordered
// within a partition.
type LeaveLifecycleEvent struct {
	EventType     string    `json:"event_type"`
	RequestID     string    `json:"request_id,omitempty"`
	LeaveID       string    `json:"leave_id"`
	DriverCode    string    `json:"driver_code"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	RequestedDays int       `json:"requested_days"`
	Status        string    `json:"status"`
	Actor         string    `json:"actor,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
