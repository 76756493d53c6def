package duplicates

import "time"

// Report — зафиксированная попытка завести анкету на занятую пару
// телефон+банк.
type Report struct {
	ID                 int64
	Phone              string
	BankID             int64
	BankName           string
	ExistingFormID     int64
	ExistingManagerID  int64
	AttemptedManagerID int64
	CreatedAt          time.Time
}
