package shifts

import (
	"fmt"
	"strings"
	"time"

	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

type Shift struct {
	ID           int64
	UserID       int64
	Source       users.Source
	StartedAt    time.Time
	EndedAt      *time.Time
	DialogsCount int
	Comment      string
}

// Report — итог смены для рабочей группы менеджера.
type Report struct {
	Tag      string
	Source   users.Source
	Started  time.Time
	Ended    time.Time
	Direct   int
	Referral int
	Total    int
	Dialogs  int
	Comment  string
}

func (r Report) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Отчёт по смене %s (%s)\n", r.Tag, r.Source.Title())
	fmt.Fprintf(&b, "⏰ %s — %s\n", r.Started.Format("02.01 15:04"), r.Ended.Format("02.01 15:04"))
	fmt.Fprintf(&b, "Анкет: %d (прямой — %d, реферал — %d)\n", r.Total, r.Direct, r.Referral)
	fmt.Fprintf(&b, "Диалогов: %d", r.Dialogs)
	if r.Comment != "" {
		fmt.Fprintf(&b, "\n💬 %s", r.Comment)
	}
	return b.String()
}

// TeamReport — сводка источника за день; шлётся, когда закрылась последняя
// смена источника.
type TeamReport struct {
	Source   users.Source
	Date     time.Time
	Direct   int
	Referral int
	Total    int
}

func (r TeamReport) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Итог дня %s (%s)\n", r.Source.Title(), r.Date.Format("02.01.2006"))
	fmt.Fprintf(&b, "Анкет: %d\n", r.Total)
	fmt.Fprintf(&b, "Прямой: %d\n", r.Direct)
	fmt.Fprintf(&b, "Реферал: %d", r.Referral)
	return b.String()
}
