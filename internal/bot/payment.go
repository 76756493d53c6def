package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/dialog"
	"github.com/vkamlov/dropdesk-bot/internal/domain/forms"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
	"github.com/vkamlov/dropdesk-bot/internal/infra/metrics"
)

// Фиксация выплаты. Telegram-анкеты допускают несколько пар «карта —
// сумма», facebook-анкеты — одну пару плюс реферальный бонус, когда
// трафик реферальный. Суммы хранятся как введены: валюту и формат
// менеджеры пишут по-разному, нормализовать их смысла нет.

func (b *Bot) cbPayment(ctx context.Context, u *users.User, cb *tgbotapi.CallbackQuery, parts []string) {
	if !hasRole(u, users.RoleDropManager) || len(parts) < 2 {
		_ = b.answerCallback(cb, "", false)
		return
	}
	chatID := cb.Message.Chat.ID

	switch parts[1] {
	case "start":
		if len(parts) < 3 {
			_ = b.answerCallback(cb, "", false)
			return
		}
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
			_ = b.answerCallback(cb, "Анкета не найдена", true)
			return
		}
		if !forms.CanCapturePayment(f) {
			_ = b.answerCallback(cb, "Выплата уже зафиксирована либо анкета не подтверждена", true)
			return
		}
		p := dialog.Payload{"form_id": float64(f.ID)}
		if err := b.states.Set(ctx, chatID, dialog.StatePayCard, p); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"💸 Выплата по анкете #%d.\nВведите номер карты:", f.ID)))

	case "more":
		st, err := b.states.Get(ctx, chatID)
		if err != nil || st == nil || st.State != dialog.StatePayMore {
			_ = b.answerCallback(cb, "Диалог устарел", true)
			return
		}
		if err := b.states.Set(ctx, chatID, dialog.StatePayCard, st.Payload); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, "Введите номер следующей карты:")

	case "done":
		st, err := b.states.Get(ctx, chatID)
		if err != nil || st == nil || st.State != dialog.StatePayMore {
			_ = b.answerCallback(cb, "Диалог устарел", true)
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, "Сохраняю…")
		b.finalizePayment(ctx, u, chatID, st.Payload)

	default:
		_ = b.answerCallback(cb, "", false)
	}
}

func (b *Bot) payHandleMessage(ctx context.Context, u *users.User, msg *tgbotapi.Message, st *dialog.Item) {
	chatID := msg.Chat.ID
	if !hasRole(u, users.RoleDropManager) {
		_ = b.states.Reset(ctx, chatID)
		return
	}
	p := st.Payload
	formID, ok := dialog.GetInt64(p, "form_id")
	if !ok {
		b.resetToMenu(ctx, chatID, "Диалог устарел. Откройте анкету заново.")
		return
	}
	text := strings.TrimSpace(msg.Text)

	switch st.State {
	case dialog.StatePayCard:
		card, ok := forms.NormalizeCard(text)
		if !ok {
			b.replyError(chatID, Validation("Номер карты — 12–19 цифр, можно с пробелами. Попробуйте ещё раз:"))
			return
		}
		p["card"] = card
		if err := b.states.Set(ctx, chatID, dialog.StatePayAmount, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		b.send(tgbotapi.NewMessage(chatID, "Введите сумму выплаты:"))

	case dialog.StatePayAmount:
		if text == "" {
			b.send(tgbotapi.NewMessage(chatID, "Введите сумму, например 750 или 20 USDT."))
			return
		}
		card, _ := p["card"].(string)
		delete(p, "card")
		p["pairs"] = append(payloadPairs(p), map[string]any{"card": card, "amount": text})

		f, err := b.forms.Get(ctx, formID)
		if err != nil || f == nil {
			b.replyError(chatID, Internal("form load", err))
			return
		}
		switch {
		case f.Source == users.SourceTG:
			if err := b.states.Set(ctx, chatID, dialog.StatePayMore, p); err != nil {
				b.replyError(chatID, Internal("dialog", err))
				return
			}
			m := tgbotapi.NewMessage(chatID, "Записал. Ещё выплата по этой анкете?")
			m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("➕ Ещё карта", "pay:more"),
					tgbotapi.NewInlineKeyboardButtonData("✅ Готово", "pay:done"),
				),
			)
			b.send(m)
		case f.TrafficType == forms.TrafficReferral:
			if err := b.states.Set(ctx, chatID, dialog.StatePayRefPhone, p); err != nil {
				b.replyError(chatID, Internal("dialog", err))
				return
			}
			b.send(tgbotapi.NewMessage(chatID, "Теперь реферальный бонус.\nТелефон реферала:"))
		default:
			b.finalizePayment(ctx, u, chatID, p)
		}

	case dialog.StatePayMore:
		b.send(tgbotapi.NewMessage(chatID, "Используйте кнопки: «➕ Ещё карта» или «✅ Готово»."))

	case dialog.StatePayRefPhone:
		phone, ok := forms.NormalizePhone(text)
		if !ok {
			b.replyError(chatID, Validation("Не похоже на номер телефона. Попробуйте ещё раз:"))
			return
		}
		p["ref_phone"] = phone
		if err := b.states.Set(ctx, chatID, dialog.StatePayRefCard, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		b.send(tgbotapi.NewMessage(chatID, "Карта реферала:"))

	case dialog.StatePayRefCard:
		card, ok := forms.NormalizeCard(text)
		if !ok {
			b.replyError(chatID, Validation("Номер карты — 12–19 цифр. Попробуйте ещё раз:"))
			return
		}
		p["ref_card"] = card
		if err := b.states.Set(ctx, chatID, dialog.StatePayRefAmount, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		b.send(tgbotapi.NewMessage(chatID, "Сумма бонуса:"))

	case dialog.StatePayRefAmount:
		if text == "" {
			b.send(tgbotapi.NewMessage(chatID, "Введите сумму бонуса."))
			return
		}
		p["ref_amount"] = text
		b.finalizePayment(ctx, u, chatID, p)

	default:
		b.send(tgbotapi.NewMessage(chatID, "Используйте кнопки меню."))
	}
}

func payloadPairs(p dialog.Payload) []any {
	if raw, ok := p["pairs"].([]any); ok {
		return raw
	}
	return nil
}

func (b *Bot) finalizePayment(ctx context.Context, u *users.User, chatID int64, p dialog.Payload) {
	formID, ok := dialog.GetInt64(p, "form_id")
	if !ok {
		b.resetToMenu(ctx, chatID, "Диалог устарел. Откройте анкету заново.")
		return
	}

	info := &forms.PaymentInfo{}
	for _, raw := range payloadPairs(p) {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		card, _ := m["card"].(string)
		amount, _ := m["amount"].(string)
		if card == "" || amount == "" {
			continue
		}
		info.Pairs = append(info.Pairs, forms.PaymentPair{Card: card, Amount: amount})
	}
	if len(info.Pairs) == 0 {
		b.resetToMenu(ctx, chatID, "Ни одной выплаты не записано. Начните заново.")
		return
	}
	if phone, _ := p["ref_phone"].(string); phone != "" {
		card, _ := p["ref_card"].(string)
		amount, _ := p["ref_amount"].(string)
		info.Referral = &forms.ReferralBonus{Phone: phone, Card: card, Amount: amount}
	}

	f, err := b.forms.SavePayments(ctx, formID, info)
	if err != nil {
		if errors.Is(err, forms.ErrNotPayable) {
			b.resetToMenu(ctx, chatID, "Выплата по этой анкете уже зафиксирована.")
			return
		}
		b.replyError(chatID, Internal("save payments", err))
		return
	}
	metrics.PaymentsCaptured.Inc()
	_ = b.states.Reset(ctx, chatID)
	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("💸 Выплата по анкете #%d зафиксирована ✅", f.ID)))

	if f.Source != users.SourceFB {
		return
	}
	rest, err := b.forms.ListApprovedUnpaid(ctx, u.ID)
	if err != nil {
		b.log.Error("approved unpaid list", "err", err)
		return
	}
	if len(rest) == 0 {
		return
	}
	m := tgbotapi.NewMessage(chatID, "Остались подтверждённые анкеты без выплаты:")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rest))
	for i := range rest {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				formShort(&rest[i]), fmt.Sprintf("pay:start:%d", rest[i].ID)),
		))
	}
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(m)
}
