package leave

type SubmitLeaveRequest struct {
	DriverCode string `json:"driver_code" binding:"required,max=64"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
	Reason     string `json:"reason" binding:"max=1000"`
}

// ListLeaveFilter selects requests for List. PageSize 0 returns every
// matching row.
type ListLeaveFilter struct {
	DriverCode string
	Status     string
	Page       int
	PageSize   int
}

type LeaveResponse struct {
	ID            string  `json:"id"`
	DriverCode    string  `json:"driver_code"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	RequestedDays int     `json:"requested_days"`
	Reason        string  `json:"reason"`
	Status        string  `json:"status"`
	SubmittedAt   string  `json:"submitted_at"`
	DecidedBy     *string `json:"decided_by,omitempty"`
	DecidedAt     *string `json:"decided_at,omitempty"`
}
