package dto

// HolidayRequest payload. Date is YYYY-MM-DD.
type HolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// HolidayResponse describes a holiday.
type HolidayResponse struct {
	Date string `json:"date"`
	Name string `json:"name"`
}
