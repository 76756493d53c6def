package bot

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodRange(t *testing.T) {
	// Вторник, середина дня.
	now := time.Date(2026, time.August, 25, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		p    Period
		from time.Time
		to   time.Time
	}{
		{p: PeriodToday, from: date(2026, time.August, 25), to: date(2026, time.August, 26)},
		{p: PeriodYesterday, from: date(2026, time.August, 24), to: date(2026, time.August, 25)},
		{p: PeriodLast7, from: date(2026, time.August, 19), to: date(2026, time.August, 26)},
		{p: PeriodLast30, from: date(2026, time.July, 27), to: date(2026, time.August, 26)},
		{p: PeriodWeek, from: date(2026, time.August, 24), to: date(2026, time.August, 26)},
		{p: PeriodMonth, from: date(2026, time.August, 1), to: date(2026, time.August, 26)},
		{p: PeriodPrevMonth, from: date(2026, time.July, 1), to: date(2026, time.August, 1)},
		{p: PeriodYear, from: date(2026, time.January, 1), to: date(2026, time.August, 26)},
	}

	for _, tt := range tests {
		t.Run(string(tt.p), func(t *testing.T) {
			from, to := periodRange(tt.p, now)
			if !from.Equal(tt.from) || !to.Equal(tt.to) {
				t.Errorf("periodRange(%s) = [%s, %s), want [%s, %s)",
					tt.p, from, to, tt.from, tt.to)
			}
		})
	}
}

func TestPeriodRangeWeekOnSunday(t *testing.T) {
	// Воскресенье относится к уходящей неделе, а не открывает новую.
	now := time.Date(2026, time.August, 23, 10, 0, 0, 0, time.UTC)

	from, to := periodRange(PeriodWeek, now)
	if !from.Equal(date(2026, time.August, 17)) || !to.Equal(date(2026, time.August, 24)) {
		t.Errorf("week on sunday = [%s, %s), want [17.08, 24.08)", from, to)
	}
}

func TestPeriodRangeAll(t *testing.T) {
	now := time.Date(2026, time.August, 25, 15, 30, 0, 0, time.UTC)

	from, to := periodRange(PeriodAll, now)
	if !from.Before(date(2000, time.January, 1)) {
		t.Errorf("all-time from = %s, want before 2000", from)
	}
	if !to.Equal(date(2026, time.August, 26)) {
		t.Errorf("all-time to = %s, want 26.08.2026", to)
	}
}

func TestParseCustomRange(t *testing.T) {
	loc := time.UTC

	tests := []struct {
		name    string
		in      string
		from    time.Time
		to      time.Time
		wantErr bool
	}{
		{
			name: "plain range",
			in:   "01.08.2026-15.08.2026",
			from: date(2026, time.August, 1),
			to:   date(2026, time.August, 16), // правая граница включительно
		},
		{
			name: "spaces around dash",
			in:   "01.08.2026 - 15.08.2026",
			from: date(2026, time.August, 1),
			to:   date(2026, time.August, 16),
		},
		{
			name: "single day",
			in:   "15.08.2026-15.08.2026",
			from: date(2026, time.August, 15),
			to:   date(2026, time.August, 16),
		},
		{name: "reversed", in: "15.08.2026-01.08.2026", wantErr: true},
		{name: "no dash", in: "15.08.2026", wantErr: true},
		{name: "wrong layout", in: "2026-08-01-2026-08-15", wantErr: true},
		{name: "garbage", in: "когда угодно", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := parseCustomRange(tt.in, loc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCustomRange(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !from.Equal(tt.from) || !to.Equal(tt.to) {
				t.Errorf("parseCustomRange(%q) = [%s, %s), want [%s, %s)",
					tt.in, from, to, tt.from, tt.to)
			}
		})
	}
}
