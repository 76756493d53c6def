package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/dialog"
	"github.com/vkamlov/dropdesk-bot/internal/domain/access"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.onStart(ctx, msg)
	case "help":
		b.send(tgbotapi.NewMessage(msg.Chat.ID,
			"Нажмите /start, чтобы открыть меню. Кнопка «Отмена» прерывает любой диалог."))
	default:
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "Неизвестная команда. Нажмите /start."))
	}
}

func (b *Bot) onStart(ctx context.Context, msg *tgbotapi.Message) {
	tg := users.Telegram{
		ID:       msg.From.ID,
		Username: msg.From.UserName,
		FullName: strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName),
	}
	u, err := b.users.UpsertFromTelegram(ctx, tg)
	if err != nil {
		b.replyError(msg.Chat.ID, Internal("start", err))
		return
	}
	if err := b.states.Reset(ctx, msg.Chat.ID); err != nil {
		b.log.Error("dialog reset", "err", err)
	}

	if b.isDeveloper(msg.From.ID) {
		m := tgbotapi.NewMessage(msg.Chat.ID, "Панель разработчика.")
		m.ReplyMarkup = devReplyKeyboard()
		b.send(m)
		return
	}
	if u.Role != "" {
		greet := fmt.Sprintf("Вы вошли как %s (%s).", users.RoleTitle(u.Role), u.Source.Title())
		m := tgbotapi.NewMessage(msg.Chat.ID, greet)
		if kb, ok := b.roleKeyboardFor(u); ok {
			m.ReplyMarkup = kb
		}
		b.send(m)
		return
	}

	// Доступа нет: показываем статус заявки либо предлагаем подать новую.
	req, err := b.access.GetByTelegramID(ctx, msg.From.ID)
	if err != nil {
		b.replyError(msg.Chat.ID, Internal("access lookup", err))
		return
	}
	if req != nil && req.Status == access.StatusPending {
		b.send(tgbotapi.NewMessage(msg.Chat.ID,
			"Ваша заявка на доступ уже на рассмотрении. Ожидайте решения."))
		return
	}
	if err := b.states.Set(ctx, msg.Chat.ID, dialog.StateAccPickRole, dialog.Payload{}); err != nil {
		b.replyError(msg.Chat.ID, Internal("dialog", err))
		return
	}
	m := tgbotapi.NewMessage(msg.Chat.ID, "Доступ не выдан. Выберите роль, на которую подаёте заявку:")
	m.ReplyMarkup = accessRoleKeyboard()
	b.send(m)
}

// cbAccess — выбор роли в заявке на доступ (acc:role:*).
func (b *Bot) cbAccess(ctx context.Context, cb *tgbotapi.CallbackQuery, parts []string) {
	if len(parts) < 3 || parts[1] != "role" {
		_ = b.answerCallback(cb, "", false)
		return
	}
	role := users.Role(parts[2])
	switch role {
	case users.RoleDropManager, users.RoleTeamLead, users.RoleWictory:
	default:
		_ = b.answerCallback(cb, "Неизвестная роль", false)
		return
	}
	chatID := cb.Message.Chat.ID
	tg := users.Telegram{
		ID:       cb.From.ID,
		Username: cb.From.UserName,
		FullName: strings.TrimSpace(cb.From.FirstName + " " + cb.From.LastName),
	}

	req, err := b.access.Upsert(ctx, tg, role)
	if err != nil {
		_ = b.answerCallback(cb, "", false)
		b.replyError(chatID, Internal("access request", err))
		return
	}
	if err := b.states.Reset(ctx, chatID); err != nil {
		b.log.Error("dialog reset", "err", err)
	}
	_ = b.answerCallback(cb, "Заявка отправлена", false)
	b.editTextAndClear(chatID, cb.Message.MessageID,
		fmt.Sprintf("Заявка на роль «%s» отправлена. Ожидайте решения.", users.RoleTitle(role)))

	if req.IsNew {
		b.notifyDevelopers(fmt.Sprintf("🆕 Заявка на доступ: %s — %s", req.Label(), users.RoleTitle(role)),
			tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("Открыть", fmt.Sprintf("dev:req:%d", req.ID)),
				),
			))
	}
}

func (b *Bot) notifyDevelopers(text string, kb interface{}) {
	for id := range b.devIDs {
		m := tgbotapi.NewMessage(id, text)
		if kb != nil {
			m.ReplyMarkup = kb
		}
		b.send(m)
	}
}
