package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/dialog"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

func (b *Bot) onMessage(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg.From == nil || msg.From.IsBot {
		return
	}
	// В группах бот только слушает my_chat_member и постит отчёты.
	if !msg.Chat.IsPrivate() {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	u, err := b.users.GetByTelegramID(ctx, msg.From.ID)
	if err != nil {
		b.replyError(msg.Chat.ID, Internal("user lookup", err))
		return
	}

	if msg.Text != "" && b.handleMenuButton(ctx, u, msg) {
		return
	}

	st, err := b.states.Get(ctx, msg.Chat.ID)
	if err != nil {
		b.replyError(msg.Chat.ID, Internal("dialog state", err))
		return
	}
	b.handleStateMessage(ctx, u, msg, st)
}

// handleMenuButton — кнопки нижней панели. Возвращает true, если текст
// распознан как пункт меню и обработан.
func (b *Bot) handleMenuButton(ctx context.Context, u *users.User, msg *tgbotapi.Message) bool {
	chatID := msg.Chat.ID
	dev := b.isDeveloper(msg.From.ID)

	switch msg.Text {
	// Дроп-менеджер
	case "📝 Анкета":
		if !hasRole(u, users.RoleDropManager) {
			return false
		}
		b.openFormEntry(ctx, u, chatID)
	case "📂 Мои анкеты":
		if !hasRole(u, users.RoleDropManager) {
			return false
		}
		b.openMyForms(ctx, u, chatID)
	case "🔄 Смена":
		if !hasRole(u, users.RoleDropManager) {
			return false
		}
		b.openShiftMenu(ctx, u, chatID)
	case "🔗 Ресурсы":
		if !hasRole(u, users.RoleDropManager) {
			return false
		}
		b.openPoolMenu(ctx, u, chatID)

	// Тимлид
	case "📥 Проверка":
		if !hasRole(u, users.RoleTeamLead) {
			return false
		}
		b.openReviewQueue(ctx, u, chatID)
	case "🏦 Банки":
		if !hasRole(u, users.RoleTeamLead) {
			return false
		}
		b.openBankAdmin(ctx, u, chatID)
	case "👥 Дубли":
		if !hasRole(u, users.RoleTeamLead) {
			return false
		}
		b.openDuplicates(ctx, u, chatID)

	// Кнопка статистики общая: у разработчика своя сводка
	case "📊 Статистика":
		switch {
		case dev:
			b.devOpenStats(ctx, chatID)
		case hasRole(u, users.RoleTeamLead):
			b.openTLStats(ctx, u, chatID)
		default:
			return false
		}

	// Wictory
	case "➕ Добавить ресурс":
		if !hasRole(u, users.RoleWictory) {
			return false
		}
		b.wikStartAdd(ctx, u, chatID)
	case "⛔ Невалиды":
		if !hasRole(u, users.RoleWictory) {
			return false
		}
		b.wikOpenInvalids(ctx, u, chatID)
	case "📊 Пул":
		if !hasRole(u, users.RoleWictory) {
			return false
		}
		b.wikOpenStats(ctx, chatID)

	// Разработчик
	case "📨 Заявки":
		if !dev {
			return false
		}
		b.devOpenRequests(ctx, chatID)
	case "👥 Группы":
		if !dev {
			return false
		}
		b.devOpenGroups(ctx, chatID)

	default:
		return false
	}
	return true
}

func (b *Bot) handleStateMessage(ctx context.Context, u *users.User, msg *tgbotapi.Message, st *dialog.Item) {
	chatID := msg.Chat.ID
	if st == nil || st.State == dialog.StateIdle {
		if _, ok := mediaFromMessage(msg); ok {
			return
		}
		b.send(tgbotapi.NewMessage(chatID, "Используйте кнопки меню или /start."))
		return
	}

	s := string(st.State)
	switch {
	case strings.HasPrefix(s, "form:"):
		b.formHandleMessage(ctx, u, msg, st)
	case strings.HasPrefix(s, "shift:"):
		b.shiftHandleMessage(ctx, u, msg, st)
	case strings.HasPrefix(s, "pay:"):
		b.payHandleMessage(ctx, u, msg, st)
	case strings.HasPrefix(s, "pool:"):
		b.poolHandleMessage(ctx, u, msg, st)
	case strings.HasPrefix(s, "wik:"):
		b.wikHandleMessage(ctx, u, msg, st)
	case strings.HasPrefix(s, "bank:"):
		b.bankHandleMessage(ctx, u, msg, st)
	case strings.HasPrefix(s, "tl:"):
		b.reviewHandleMessage(ctx, u, msg, st)
	case st.State == dialog.StatePeriodCustom:
		b.periodHandleMessage(ctx, u, msg, st)
	case st.State == dialog.StateAccPickRole:
		b.send(tgbotapi.NewMessage(chatID, "Выберите роль кнопкой выше или нажмите /start."))
	default:
		if err := b.states.Reset(ctx, chatID); err != nil {
			b.log.Error("dialog reset", "err", err)
		}
		b.send(tgbotapi.NewMessage(chatID, "Диалог сброшен. Используйте кнопки меню."))
	}
}

func (b *Bot) onCallback(ctx context.Context, upd tgbotapi.Update) {
	cb := upd.CallbackQuery
	if cb.Message == nil {
		_ = b.answerCallback(cb, "", false)
		return
	}
	chatID := cb.Message.Chat.ID

	if cb.Data == "nav:cancel" {
		if err := b.states.Reset(ctx, chatID); err != nil {
			b.log.Error("dialog reset", "err", err)
		}
		b.editTextAndClear(chatID, cb.Message.MessageID, "Действие отменено.")
		_ = b.answerCallback(cb, "Отменено", false)
		return
	}

	u, err := b.users.GetByTelegramID(ctx, cb.From.ID)
	if err != nil {
		_ = b.answerCallback(cb, "", false)
		b.replyError(chatID, Internal("user lookup", err))
		return
	}

	parts := strings.Split(cb.Data, ":")
	switch parts[0] {
	case "acc":
		b.cbAccess(ctx, cb, parts)
	case "form":
		b.cbForm(ctx, u, cb, parts)
	case "mf":
		b.cbMyForms(ctx, u, cb, parts)
	case "rev":
		b.cbReview(ctx, u, cb, parts)
	case "dup":
		b.cbDuplicates(ctx, u, cb, parts)
	case "bank":
		b.cbBankAdmin(ctx, u, cb, parts)
	case "shift":
		b.cbShift(ctx, u, cb, parts)
	case "pay":
		b.cbPayment(ctx, u, cb, parts)
	case "pool":
		b.cbPool(ctx, u, cb, parts)
	case "wik":
		b.cbWictory(ctx, u, cb, parts)
	case "dev":
		b.cbDeveloper(ctx, cb, parts)
	case "stat":
		b.cbStats(ctx, u, cb, parts)
	default:
		_ = b.answerCallback(cb, "", false)
	}
}

func hasRole(u *users.User, role users.Role) bool {
	return u != nil && u.Role == role
}
