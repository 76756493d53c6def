package groups

import "time"

// Group — зарегистрированная рабочая группа: туда уходят карточки
// подтверждённых анкет и отчёты смен.
type Group struct {
	ID      int64
	ChatID  int64
	Title   string
	Active  bool
	AddedAt time.Time
}
