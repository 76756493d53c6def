package bot

import (
	"fmt"
	"strings"
	"time"
)

type Period string

const (
	PeriodToday     Period = "today"
	PeriodYesterday Period = "yesterday"
	PeriodLast7     Period = "last7"
	PeriodLast30    Period = "last30"
	PeriodWeek      Period = "week"
	PeriodMonth     Period = "month"
	PeriodPrevMonth Period = "prev_month"
	PeriodYear      Period = "year"
	PeriodAll       Period = "all"
	PeriodCustom    Period = "custom"
)

func periodTitle(p Period) string {
	switch p {
	case PeriodToday:
		return "Сегодня"
	case PeriodYesterday:
		return "Вчера"
	case PeriodLast7:
		return "7 дней"
	case PeriodLast30:
		return "30 дней"
	case PeriodWeek:
		return "Неделя"
	case PeriodMonth:
		return "Месяц"
	case PeriodPrevMonth:
		return "Прошлый месяц"
	case PeriodYear:
		return "Год"
	case PeriodAll:
		return "Всё время"
	case PeriodCustom:
		return "Свой период"
	}
	return string(p)
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// periodRange считает полуинтервал [from, to) в зоне now.
func periodRange(p Period, now time.Time) (time.Time, time.Time) {
	today := dayStart(now)
	switch p {
	case PeriodToday:
		return today, today.AddDate(0, 0, 1)
	case PeriodYesterday:
		return today.AddDate(0, 0, -1), today
	case PeriodLast7:
		return today.AddDate(0, 0, -6), today.AddDate(0, 0, 1)
	case PeriodLast30:
		return today.AddDate(0, 0, -29), today.AddDate(0, 0, 1)
	case PeriodWeek:
		wd := int(now.Weekday())
		if wd == 0 {
			wd = 7
		}
		monday := today.AddDate(0, 0, -(wd - 1))
		return monday, today.AddDate(0, 0, 1)
	case PeriodMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first, today.AddDate(0, 0, 1)
	case PeriodPrevMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first.AddDate(0, -1, 0), first
	case PeriodYear:
		first := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return first, today.AddDate(0, 0, 1)
	}
	// всё время
	return time.Unix(0, 0).In(now.Location()), today.AddDate(0, 0, 1)
}

func (b *Bot) periodRange(p Period) (time.Time, time.Time) {
	return periodRange(p, time.Now().In(b.loc))
}

// parseCustomRange разбирает «ДД.ММ.ГГГГ-ДД.ММ.ГГГГ»; правая граница
// включительно, поэтому к ней прибавляются сутки.
func parseCustomRange(s string, loc *time.Location) (time.Time, time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("нужен формат ДД.ММ.ГГГГ-ДД.ММ.ГГГГ")
	}
	from, err := time.ParseInLocation("02.01.2006", strings.TrimSpace(parts[0]), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("не разобрал дату «%s»", strings.TrimSpace(parts[0]))
	}
	to, err := time.ParseInLocation("02.01.2006", strings.TrimSpace(parts[1]), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("не разобрал дату «%s»", strings.TrimSpace(parts[1]))
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("конец периода раньше начала")
	}
	return from, to.AddDate(0, 0, 1), nil
}
