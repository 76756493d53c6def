package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/domain/access"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

// Кабинет разработчика: заявки на доступ и реестр рабочих групп.
// Одобрение — цепочка выборов: роль → источник (кроме wictory) → рабочая
// группа (только для дроп-менеджеров).

// devOpenRequests — кнопка «📨 Заявки».
func (b *Bot) devOpenRequests(ctx context.Context, chatID int64) {
	list, err := b.access.ListPending(ctx)
	if err != nil {
		b.replyError(chatID, Internal("access list", err))
		return
	}
	if len(list) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Новых заявок нет."))
		return
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list))
	for i := range list {
		rq := &list[i]
		title := fmt.Sprintf("%s → %s", rq.Label(), users.RoleTitle(rq.DesiredRole))
		if rq.IsNew {
			title = "🆕 " + title
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(title, fmt.Sprintf("dev:req:%d", rq.ID)),
		))
	}
	m := tgbotapi.NewMessage(chatID, fmt.Sprintf("📨 Заявки на доступ: %d", len(list)))
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(m)
}

// devOpenGroups — кнопка «👥 Группы». Показывает и группы, откуда бота
// убрали: привязки менеджеров к ним ещё могут существовать.
func (b *Bot) devOpenGroups(ctx context.Context, chatID int64) {
	list, err := b.groups.List(ctx)
	if err != nil {
		b.replyError(chatID, Internal("groups list", err))
		return
	}
	if len(list) == 0 {
		b.send(tgbotapi.NewMessage(chatID,
			"Групп нет. Добавьте бота в рабочую группу — она появится здесь."))
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Рабочие группы: %d\n", len(list))
	for _, g := range list {
		fmt.Fprintf(&sb, "\n%s %s\n  chat_id: %d, с %s",
			badge(g.Active), g.Title, g.ChatID, g.AddedAt.In(b.loc).Format("02.01.2006"))
	}
	b.send(tgbotapi.NewMessage(chatID, sb.String()))
}

func requestCard(rq *access.Request, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📨 Заявка #%d\n", rq.ID)
	fmt.Fprintf(&sb, "Кто: %s", rq.Label())
	if rq.FullName != "" && rq.Username != "" {
		fmt.Fprintf(&sb, " (%s)", rq.FullName)
	}
	fmt.Fprintf(&sb, "\nРоль: %s\n", users.RoleTitle(rq.DesiredRole))
	fmt.Fprintf(&sb, "Подана: %s", rq.UpdatedAt.In(loc).Format("02.01.2006 15:04"))
	return sb.String()
}

func (b *Bot) cbDeveloper(ctx context.Context, cb *tgbotapi.CallbackQuery, parts []string) {
	if !b.isDeveloper(cb.From.ID) || len(parts) < 3 {
		_ = b.answerCallback(cb, "", false)
		return
	}
	chatID := cb.Message.Chat.ID
	reqID, ok := parseID(parts, 2)
	if !ok {
		_ = b.answerCallback(cb, "", false)
		return
	}
	rq, err := b.access.Get(ctx, reqID)
	if err != nil {
		_ = b.answerCallback(cb, "", false)
		b.replyError(chatID, Internal("access request", err))
		return
	}
	if rq == nil {
		_ = b.answerCallback(cb, "Заявка не найдена", true)
		return
	}

	switch parts[1] {
	case "req":
		if rq.IsNew {
			if err := b.access.MarkSeen(ctx, rq.ID); err != nil {
				b.log.Error("access mark seen", "err", err)
			}
		}
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Одобрить", fmt.Sprintf("dev:ok:%d", rq.ID)),
				tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", fmt.Sprintf("dev:no:%d", rq.ID)),
			),
		)
		_ = b.answerCallback(cb, "", false)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID,
			requestCard(rq, b.loc), kb)
		b.send(edit)

	case "ok":
		if rq.Status != access.StatusPending {
			_ = b.answerCallback(cb, "Заявка уже обработана", true)
			return
		}
		btn := func(role users.Role) tgbotapi.InlineKeyboardButton {
			title := users.RoleTitle(role)
			if role == rq.DesiredRole {
				title = "· " + title + " ·"
			}
			return tgbotapi.NewInlineKeyboardButtonData(title,
				fmt.Sprintf("dev:role:%d:%s", rq.ID, role))
		}
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(btn(users.RoleDropManager), btn(users.RoleTeamLead)),
			tgbotapi.NewInlineKeyboardRow(btn(users.RoleWictory)),
		)
		_ = b.answerCallback(cb, "", false)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID,
			"Какую роль выдать? Запрошенная отмечена точками.", kb)
		b.send(edit)

	case "no":
		if rq.Status != access.StatusPending {
			_ = b.answerCallback(cb, "Заявка уже обработана", true)
			return
		}
		if err := b.access.SetStatus(ctx, rq.ID, access.StatusRejected); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("access reject", err))
			return
		}
		_ = b.answerCallback(cb, "Отклонено", false)
		b.editTextAndClear(chatID, cb.Message.MessageID,
			fmt.Sprintf("❌ Заявка %s отклонена.", rq.Label()))
		b.send(tgbotapi.NewMessage(rq.TgID,
			"К сожалению, в доступе отказано. Если это ошибка — напишите разработчику."))

	case "role":
		if len(parts) < 4 {
			_ = b.answerCallback(cb, "", false)
			return
		}
		role := users.Role(parts[3])
		if role != users.RoleDropManager && role != users.RoleTeamLead && role != users.RoleWictory {
			_ = b.answerCallback(cb, "", false)
			return
		}
		if role == users.RoleWictory {
			b.grantAccess(ctx, cb, rq, role, "", 0)
			return
		}
		btn := func(src users.Source) tgbotapi.InlineKeyboardButton {
			return tgbotapi.NewInlineKeyboardButtonData(src.Title(),
				fmt.Sprintf("dev:src:%d:%s:%s", rq.ID, role, src))
		}
		_ = b.answerCallback(cb, "", false)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID,
			"Какой источник?", tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(btn(users.SourceTG), btn(users.SourceFB)),
			))
		b.send(edit)

	case "src":
		if len(parts) < 5 {
			_ = b.answerCallback(cb, "", false)
			return
		}
		role := users.Role(parts[3])
		src := users.Source(parts[4])
		if role != users.RoleDropManager && role != users.RoleTeamLead {
			_ = b.answerCallback(cb, "", false)
			return
		}
		if src != users.SourceTG && src != users.SourceFB {
			_ = b.answerCallback(cb, "", false)
			return
		}
		if role != users.RoleDropManager {
			b.grantAccess(ctx, cb, rq, role, src, 0)
			return
		}
		list, err := b.groups.ListActive(ctx)
		if err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("groups list", err))
			return
		}
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list)+1)
		for _, g := range list {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(g.Title,
					fmt.Sprintf("dev:grp:%d:%s:%d", rq.ID, src, g.ChatID)),
			))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Без группы",
				fmt.Sprintf("dev:grp:%d:%s:0", rq.ID, src)),
		))
		_ = b.answerCallback(cb, "", false)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID,
			"В какую рабочую группу пересылать карточки менеджера?",
			tgbotapi.NewInlineKeyboardMarkup(rows...))
		b.send(edit)

	case "grp":
		if len(parts) < 5 {
			_ = b.answerCallback(cb, "", false)
			return
		}
		src := users.Source(parts[3])
		groupID, err := strconv.ParseInt(parts[4], 10, 64)
		if err != nil || src == "" {
			_ = b.answerCallback(cb, "", false)
			return
		}
		b.grantAccess(ctx, cb, rq, users.RoleDropManager, src, groupID)

	default:
		_ = b.answerCallback(cb, "", false)
	}
}

func (b *Bot) grantAccess(ctx context.Context, cb *tgbotapi.CallbackQuery, rq *access.Request,
	role users.Role, src users.Source, groupChatID int64) {

	chatID := cb.Message.Chat.ID
	granted, err := b.users.Grant(ctx, rq.TgID, role, src, groupChatID)
	if err != nil {
		_ = b.answerCallback(cb, "", false)
		b.replyError(chatID, Internal("grant", err))
		return
	}
	if err := b.access.SetStatus(ctx, rq.ID, access.StatusApproved); err != nil {
		b.log.Error("access approve status", "err", err)
	}
	b.log.Info("access granted",
		"tg_id", rq.TgID, "role", role, "source", src, "group", groupChatID)

	_ = b.answerCallback(cb, "Одобрено", false)
	summary := fmt.Sprintf("✅ %s — %s", rq.Label(), users.RoleTitle(role))
	if src != "" {
		summary += fmt.Sprintf(" (%s)", src.Title())
	}
	b.editTextAndClear(chatID, cb.Message.MessageID, summary)

	hello := fmt.Sprintf("Доступ выдан: %s", users.RoleTitle(role))
	if src != "" {
		hello += fmt.Sprintf(", источник — %s", src.Title())
	}
	hello += ". Панель с кнопками уже внизу 👇"
	m := tgbotapi.NewMessage(rq.TgID, hello)
	if kb, ok := b.roleKeyboardFor(granted); ok {
		m.ReplyMarkup = kb
	}
	b.send(m)
}
