package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/dialog"
	"github.com/vkamlov/dropdesk-bot/internal/domain/banks"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

// Справочник банков ведут тимлиды. Инструкция и норма скринов задаются
// на источник тимлида; у другого источника — свои значения.

// openBankAdmin — кнопка «🏦 Банки».
func (b *Bot) openBankAdmin(ctx context.Context, u *users.User, chatID int64) {
	list, err := b.banks.List(ctx)
	if err != nil {
		b.replyError(chatID, Internal("banks list", err))
		return
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list)+1)
	for _, bk := range list {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(bk.Name, fmt.Sprintf("bank:open:%d", bk.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Добавить банк", "bank:add"),
	))
	m := tgbotapi.NewMessage(chatID, fmt.Sprintf("🏦 Банки: %d", len(list)))
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(m)
}

func bankCardText(bk *banks.Bank, src users.Source) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏦 %s\n", bk.Name)
	fmt.Fprintf(&sb, "Источник: %s\n", src.Title())
	n := bk.RequiredScreens(src)
	if n > 0 {
		fmt.Fprintf(&sb, "Скриншотов: %d\n", n)
	} else {
		sb.WriteString("Скриншотов: свободный режим\n")
	}
	if instr := bk.Instruction(src); instr != "" {
		fmt.Fprintf(&sb, "\n📋 %s", instr)
	} else {
		sb.WriteString("\n📋 Инструкции пока нет.")
	}
	return sb.String()
}

func bankCardKeyboard(id int64) tgbotapi.InlineKeyboardMarkup {
	btn := func(title, action string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(title, fmt.Sprintf("bank:%s:%d", action, id))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			btn("📋 Инструкция", "instr"),
			btn("🖼 Скрины", "screens"),
		),
		tgbotapi.NewInlineKeyboardRow(
			btn("✏️ Переименовать", "rename"),
			btn("🗑 Удалить", "del"),
		),
	)
}

func (b *Bot) showBankCard(ctx context.Context, u *users.User, chatID int64, messageID int, id int64) {
	bk, err := b.banks.Get(ctx, id)
	if err != nil {
		b.replyError(chatID, Internal("bank load", err))
		return
	}
	if bk == nil {
		b.send(tgbotapi.NewMessage(chatID, "Банк не найден."))
		return
	}
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID,
			bankCardText(bk, u.Source), bankCardKeyboard(id))
		b.send(edit)
		return
	}
	m := tgbotapi.NewMessage(chatID, bankCardText(bk, u.Source))
	m.ReplyMarkup = bankCardKeyboard(id)
	b.send(m)
}

func (b *Bot) cbBankAdmin(ctx context.Context, u *users.User, cb *tgbotapi.CallbackQuery, parts []string) {
	if !hasRole(u, users.RoleTeamLead) || len(parts) < 2 {
		_ = b.answerCallback(cb, "", false)
		return
	}
	chatID := cb.Message.Chat.ID

	askText := func(state dialog.State, id int64, prompt string) {
		p := dialog.Payload{"bank_id": float64(id)}
		if err := b.states.Set(ctx, chatID, state, p); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, prompt)
	}

	switch parts[1] {
	case "add":
		if err := b.states.Set(ctx, chatID, dialog.StateBankAddName, dialog.Payload{}); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, "Название нового банка:")

	case "open":
		id, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.showBankCard(ctx, u, chatID, cb.Message.MessageID, id)

	case "rename":
		id, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		askText(dialog.StateBankRename, id, "Новое название банка:")

	case "instr":
		id, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		askText(dialog.StateBankInstr, id, fmt.Sprintf(
			"Инструкция для менеджеров (%s). Пришлите текст, «-» — убрать:", u.Source.Title()))

	case "screens":
		id, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		askText(dialog.StateBankScreens, id, fmt.Sprintf(
			"Сколько скриншотов обязательны для %s? 0 — свободный режим:", u.Source.Title()))

	case "del":
		id, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		_ = b.answerCallback(cb, "", false)
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 Да, удалить", fmt.Sprintf("bank:delok:%d", id)),
			),
			cancelRow(),
		)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID,
			"Удалить банк? Анкеты сохранят его название, ресурсы пула этого банка будут удалены.", kb)
		b.send(edit)

	case "delok":
		id, ok := parseID(parts, 2)
		if !ok {
			_ = b.answerCallback(cb, "", false)
			return
		}
		if err := b.banks.Delete(ctx, id); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("bank delete", err))
			return
		}
		_ = b.answerCallback(cb, "Удалён", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, "🗑 Банк удалён.")

	default:
		_ = b.answerCallback(cb, "", false)
	}
}

func (b *Bot) bankHandleMessage(ctx context.Context, u *users.User, msg *tgbotapi.Message, st *dialog.Item) {
	chatID := msg.Chat.ID
	if !hasRole(u, users.RoleTeamLead) {
		_ = b.states.Reset(ctx, chatID)
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		b.send(tgbotapi.NewMessage(chatID, "Нужен текст."))
		return
	}

	bankID, hasBank := dialog.GetInt64(st.Payload, "bank_id")
	if st.State != dialog.StateBankAddName && !hasBank {
		b.resetToMenu(ctx, chatID, "Диалог устарел. Откройте «🏦 Банки» заново.")
		return
	}

	switch st.State {
	case dialog.StateBankAddName:
		bk, err := b.banks.Create(ctx, text)
		if err != nil {
			if errors.Is(err, banks.ErrExists) {
				b.send(tgbotapi.NewMessage(chatID, "Такой банк уже есть. Введите другое название:"))
				return
			}
			b.replyError(chatID, Internal("bank create", err))
			return
		}
		_ = b.states.Reset(ctx, chatID)
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("🏦 Банк «%s» добавлен.", bk.Name)))
		b.showBankCard(ctx, u, chatID, 0, bk.ID)

	case dialog.StateBankRename:
		if err := b.banks.Rename(ctx, bankID, text); err != nil {
			if errors.Is(err, banks.ErrExists) {
				b.send(tgbotapi.NewMessage(chatID, "Такое название уже занято. Введите другое:"))
				return
			}
			b.replyError(chatID, Internal("bank rename", err))
			return
		}
		_ = b.states.Reset(ctx, chatID)
		b.showBankCard(ctx, u, chatID, 0, bankID)

	case dialog.StateBankInstr:
		if text == "-" {
			text = ""
		}
		if err := b.banks.SetInstruction(ctx, bankID, u.Source, text); err != nil {
			b.replyError(chatID, Internal("bank instruction", err))
			return
		}
		_ = b.states.Reset(ctx, chatID)
		b.showBankCard(ctx, u, chatID, 0, bankID)

	case dialog.StateBankScreens:
		n, err := strconv.Atoi(text)
		if err != nil || n < 0 || n > maxFreeScreens {
			b.replyError(chatID, Validation(fmt.Sprintf("Введите число от 0 до %d.", maxFreeScreens)))
			return
		}
		if err := b.banks.SetRequiredScreens(ctx, bankID, u.Source, n); err != nil {
			b.replyError(chatID, Internal("bank screens", err))
			return
		}
		_ = b.states.Reset(ctx, chatID)
		b.showBankCard(ctx, u, chatID, 0, bankID)

	default:
		b.send(tgbotapi.NewMessage(chatID, "Используйте кнопки меню."))
	}
}
