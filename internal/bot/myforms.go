package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/dialog"
	"github.com/vkamlov/dropdesk-bot/internal/domain/forms"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

const myFormsPageLimit = 30

// openMyForms — кнопка «📂 Мои анкеты»: сначала период, потом список.
func (b *Bot) openMyForms(ctx context.Context, u *users.User, chatID int64) {
	m := tgbotapi.NewMessage(chatID, "Мои анкеты — выберите период:")
	m.ReplyMarkup = periodsKeyboard("mf:per")
	b.send(m)
}

func (b *Bot) cbMyForms(ctx context.Context, u *users.User, cb *tgbotapi.CallbackQuery, parts []string) {
	if !hasRole(u, users.RoleDropManager) || len(parts) < 3 {
		_ = b.answerCallback(cb, "", false)
		return
	}
	chatID := cb.Message.Chat.ID

	switch parts[1] {
	case "per":
		p := Period(parts[2])
		if p == PeriodCustom {
			pl := dialog.Payload{"period_for": "myforms"}
			if err := b.states.Set(ctx, chatID, dialog.StatePeriodCustom, pl); err != nil {
				_ = b.answerCallback(cb, "", false)
				b.replyError(chatID, Internal("dialog", err))
				return
			}
			_ = b.answerCallback(cb, "", false)
			b.editTextAndClear(chatID, cb.Message.MessageID,
				"Введите период в формате ДД.ММ.ГГГГ-ДД.ММ.ГГГГ, например 01.08.2026-15.08.2026.")
			return
		}
		_ = b.answerCallback(cb, periodTitle(p), false)
		from, to := b.periodRange(p)
		b.showMyFormsList(ctx, u, chatID, cb.Message.MessageID, periodTitle(p), from, to)

	case "open":
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			_ = b.answerCallback(cb, "", false)
			return
		}
		f, err := b.forms.Get(ctx, id)
		if err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("form load", err))
			return
		}
		if f == nil || f.ManagerID != u.ID {
			_ = b.answerCallback(cb, "Анкета недоступна", true)
			return
		}
		_ = b.answerCallback(cb, "", false)
		kb := myFormActionsKeyboard(f)
		b.sendFormView(ctx, chatID, f, true, &kb)

	case "resume":
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			_ = b.answerCallback(cb, "", false)
			return
		}
		f, err := b.forms.Get(ctx, id)
		if err != nil || f == nil || f.ManagerID != u.ID {
			_ = b.answerCallback(cb, "Анкета недоступна", true)
			return
		}
		if f.Status != forms.StatusInProgress {
			_ = b.answerCallback(cb, "Анкета уже отправлена", true)
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.askStep(ctx, chatID, f, b.nextStepFor(ctx, f), dialog.Payload{"form_id": float64(f.ID)})

	case "fix":
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			_ = b.answerCallback(cb, "", false)
			return
		}
		f, err := b.forms.Get(ctx, id)
		if err != nil || f == nil || f.ManagerID != u.ID {
			_ = b.answerCallback(cb, "Анкета недоступна", true)
			return
		}
		if !forms.CanResubmit(f) {
			_ = b.answerCallback(cb, "Правка недоступна", true)
			return
		}
		_ = b.answerCallback(cb, "", false)
		if f.TeamLeadComment != "" {
			b.send(tgbotapi.NewMessage(chatID, "Замечание тимлида: "+f.TeamLeadComment))
		}
		b.askStep(ctx, chatID, f, forms.StepConfirm, dialog.Payload{"form_id": float64(f.ID)})

	default:
		_ = b.answerCallback(cb, "", false)
	}
}

func (b *Bot) showMyFormsList(ctx context.Context, u *users.User, chatID int64, messageID int, title string, from, to time.Time) {
	list, err := b.forms.ListByManager(ctx, u.ID, from, to)
	if err != nil {
		b.replyError(chatID, Internal("forms list", err))
		return
	}
	if len(list) == 0 {
		b.sendOrEdit(chatID, messageID, fmt.Sprintf("%s: анкет нет.", title), nil)
		return
	}

	total := len(list)
	if total > myFormsPageLimit {
		list = list[:myFormsPageLimit]
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list))
	for i := range list {
		f := &list[i]
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(formShort(f), fmt.Sprintf("mf:open:%d", f.ID)),
		))
	}
	text := fmt.Sprintf("%s: анкет %d.", title, total)
	if total > myFormsPageLimit {
		text += fmt.Sprintf(" Показаны последние %d.", myFormsPageLimit)
	}
	kb := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
	b.sendOrEdit(chatID, messageID, text, &kb)
}

// myFormActionsKeyboard — действия по анкете в зависимости от статуса.
func myFormActionsKeyboard(f *forms.Form) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	switch {
	case f.Status == forms.StatusInProgress:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Продолжить", fmt.Sprintf("mf:resume:%d", f.ID)),
		))
	case forms.CanResubmit(f):
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Исправить и отправить", fmt.Sprintf("mf:fix:%d", f.ID)),
		))
	}
	if forms.CanCapturePayment(f) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💸 Выплата", fmt.Sprintf("pay:start:%d", f.ID)),
		))
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}
