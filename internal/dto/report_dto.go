package dto

// ShiftReportPayload is the job body of a shift_report job. It is a snapshot
// taken at close time so the worker never reads the database.
type ShiftReportPayload struct {
	ShiftID        string                 `json:"shift_id"`
	FuelPumpID     string                 `json:"fuel_pump_id"`
	StaffName      string                 `json:"staff_name"`
	PumpID         string                 `json:"pump_id"`
	ShiftType      string                 `json:"shift_type"`
	StartTime      string                 `json:"start_time"`
	EndTime        string                 `json:"end_time"`
	Readings       []ReadingResponse      `json:"readings"`
	Usage          UsageResponse          `json:"usage"`
	Sales          SalesResponse          `json:"sales"`
	Consumables    []ConsumableResponse   `json:"consumables"`
	Reconciliation ReconciliationResponse `json:"reconciliation"`
	Warnings       []string               `json:"warnings"`
}
