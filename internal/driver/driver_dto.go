package driver

type CreateDriverRequest struct {
	ExternalCode        string `json:"external_code" binding:"required,max=64"`
	FullName            string `json:"full_name" binding:"required"`
	EmploymentType      string `json:"employment_type" binding:"required,oneof=FULL_TIME PART_TIME CONTRACTOR"`
	AnnualAllowanceDays *int   `json:"annual_allowance_days" binding:"omitempty,min=0"`
}

type DriverResponse struct {
	ID                  string `json:"id"`
	ExternalCode        string `json:"external_code"`
	FullName            string `json:"full_name"`
	EmploymentType      string `json:"employment_type"`
	AnnualAllowanceDays int    `json:"annual_allowance_days"`
	UsedDays            int    `json:"used_days"`
	RemainingDays       int    `json:"remaining_days"`
}

type BalanceResponse struct {
	DriverCode string `json:"driver_code"`
	Allowance  int    `json:"allowance"`
	Used       int    `json:"used"`
	Remaining  int    `json:"remaining"`
}
