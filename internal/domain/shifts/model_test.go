package shifts

import (
	"strings"
	"testing"
	"time"

	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

func TestReportText(t *testing.T) {
	started := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	ended := time.Date(2026, 8, 25, 18, 30, 0, 0, time.UTC)

	r := Report{
		Tag:      "Дроп-7",
		Source:   users.SourceTG,
		Started:  started,
		Ended:    ended,
		Direct:   4,
		Referral: 1,
		Total:    5,
		Dialogs:  12,
		Comment:  "два клиента отвалились",
	}

	got := r.Text()
	for _, want := range []string{
		"Дроп-7",
		"(TG)",
		"25.08 09:00 — 25.08 18:30",
		"Анкет: 5 (прямой — 4, реферал — 1)",
		"Диалогов: 12",
		"💬 два клиента отвалились",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Report.Text() missing %q:\n%s", want, got)
		}
	}
}

func TestReportTextNoComment(t *testing.T) {
	r := Report{
		Tag:     "Дроп-1",
		Source:  users.SourceFB,
		Started: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC),
		Ended:   time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
	}

	got := r.Text()
	if strings.Contains(got, "💬") {
		t.Errorf("Report.Text() renders comment marker for empty comment:\n%s", got)
	}
	if !strings.HasSuffix(got, "Диалогов: 0") {
		t.Errorf("Report.Text() should end with dialogs line:\n%s", got)
	}
}

func TestTeamReportText(t *testing.T) {
	r := TeamReport{
		Source:   users.SourceFB,
		Date:     time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
		Direct:   7,
		Referral: 3,
		Total:    10,
	}

	got := r.Text()
	for _, want := range []string{
		"Итог дня FB",
		"25.08.2026",
		"Анкет: 10",
		"Прямой: 7",
		"Реферал: 3",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("TeamReport.Text() missing %q:\n%s", want, got)
		}
	}
}
