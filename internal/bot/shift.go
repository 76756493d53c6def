package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/dialog"
	"github.com/vkamlov/dropdesk-bot/internal/domain/shifts"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

// openShiftMenu — кнопка «🔄 Смена».
func (b *Bot) openShiftMenu(ctx context.Context, u *users.User, chatID int64) {
	sh, err := b.shifts.GetOpen(ctx, u.ID)
	if err != nil {
		b.replyError(chatID, Internal("shift lookup", err))
		return
	}
	if sh == nil {
		m := tgbotapi.NewMessage(chatID, "Смена не начата.")
		m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("▶️ Начать смену", "shift:start"),
			),
		)
		b.send(m)
		return
	}
	m := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Смена открыта с %s.", sh.StartedAt.In(b.loc).Format("15:04 02.01")))
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏹ Завершить смену", "shift:end"),
		),
	)
	b.send(m)
}

func (b *Bot) cbShift(ctx context.Context, u *users.User, cb *tgbotapi.CallbackQuery, parts []string) {
	if !hasRole(u, users.RoleDropManager) || len(parts) < 2 {
		_ = b.answerCallback(cb, "", false)
		return
	}
	chatID := cb.Message.Chat.ID

	switch parts[1] {
	case "start":
		_ = b.answerCallback(cb, "", false)
		if u.ManagerTag == "" {
			// тег спрашивается один раз, при первом запуске смены
			if err := b.states.Set(ctx, chatID, dialog.StateShiftTag, dialog.Payload{}); err != nil {
				b.replyError(chatID, Internal("dialog", err))
				return
			}
			b.editTextAndClear(chatID, cb.Message.MessageID,
				"Введите ваш тег менеджера — подпись в отчётах, например «Dm Alex»:")
			return
		}
		b.editTextAndClear(chatID, cb.Message.MessageID, "Запускаю смену…")
		b.startShift(ctx, u, chatID)

	case "end":
		_ = b.answerCallback(cb, "", false)
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Завершить", "shift:endok"),
			),
			cancelRow(),
		)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID,
			"Завершить смену?", kb)
		b.send(edit)

	case "endok":
		sh, err := b.shifts.GetOpen(ctx, u.ID)
		if err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("shift lookup", err))
			return
		}
		if sh == nil {
			_ = b.answerCallback(cb, "Смена не открыта", true)
			return
		}
		p := dialog.Payload{"shift_id": float64(sh.ID)}
		if err := b.states.Set(ctx, chatID, dialog.StateShiftEndDialogs, p); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, "Сколько диалогов провели за смену? Введите число:")

	default:
		_ = b.answerCallback(cb, "", false)
	}
}

func (b *Bot) startShift(ctx context.Context, u *users.User, chatID int64) {
	sh, err := b.shifts.Start(ctx, u.ID, u.Source)
	if err != nil {
		if errors.Is(err, shifts.ErrAlreadyOpen) {
			b.replyError(chatID, Precondition("Смена уже открыта."))
			return
		}
		b.replyError(chatID, Internal("shift start", err))
		return
	}
	if u.ForwardGroupID == 0 {
		b.send(tgbotapi.NewMessage(chatID,
			"⚠️ Рабочая группа не привязана: отчёт по смене придёт только в личку. Обратитесь к разработчику."))
	} else if g, err := b.groups.GetByChatID(ctx, u.ForwardGroupID); err == nil && (g == nil || !g.Active) {
		b.send(tgbotapi.NewMessage(chatID,
			"⚠️ Привязанная рабочая группа недоступна: бота из неё убрали. Отчёт по смене придёт только в личку."))
	}
	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Смена начата в %s. Удачной смены!", sh.StartedAt.In(b.loc).Format("15:04"))))
}

func (b *Bot) shiftHandleMessage(ctx context.Context, u *users.User, msg *tgbotapi.Message, st *dialog.Item) {
	chatID := msg.Chat.ID
	if !hasRole(u, users.RoleDropManager) {
		_ = b.states.Reset(ctx, chatID)
		return
	}

	switch st.State {
	case dialog.StateShiftTag:
		tag := strings.TrimSpace(msg.Text)
		if tag == "" || len([]rune(tag)) > 64 {
			b.send(tgbotapi.NewMessage(chatID, "Введите короткий тег, например «Dm Alex»."))
			return
		}
		if err := b.users.SetManagerTag(ctx, u.ID, tag); err != nil {
			b.replyError(chatID, Internal("save tag", err))
			return
		}
		u.ManagerTag = tag
		_ = b.states.Reset(ctx, chatID)
		b.send(tgbotapi.NewMessage(chatID, "Тег сохранён: "+tag))
		b.startShift(ctx, u, chatID)

	case dialog.StateShiftEndDialogs:
		n, err := strconv.Atoi(strings.TrimSpace(msg.Text))
		if err != nil || n < 0 {
			b.send(tgbotapi.NewMessage(chatID, "Введите целое число диалогов, например 25."))
			return
		}
		p := st.Payload
		p["dialogs"] = float64(n)
		if err := b.states.Set(ctx, chatID, dialog.StateShiftEndComment, p); err != nil {
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		b.send(tgbotapi.NewMessage(chatID, "Комментарий к смене (или «-», чтобы пропустить):"))

	case dialog.StateShiftEndComment:
		comment := strings.TrimSpace(msg.Text)
		if comment == "" {
			b.send(tgbotapi.NewMessage(chatID, "Введите комментарий или «-»."))
			return
		}
		if comment == "-" {
			comment = ""
		}
		shiftID, ok := dialog.GetInt64(st.Payload, "shift_id")
		dialogs, _ := dialog.GetInt64(st.Payload, "dialogs")
		if !ok {
			b.resetToMenu(ctx, chatID, "Диалог устарел. Откройте «🔄 Смена» заново.")
			return
		}
		b.closeShift(ctx, u, chatID, shiftID, int(dialogs), comment)

	default:
		b.send(tgbotapi.NewMessage(chatID, "Используйте кнопки меню."))
	}
}

// closeShift закрывает смену и рассылает отчёты. Когда закрылась последняя
// открытая смена источника, дополнительно уходит сводка дня тимлидам.
func (b *Bot) closeShift(ctx context.Context, u *users.User, chatID int64, shiftID int64, dialogs int, comment string) {
	sh, err := b.shifts.Close(ctx, shiftID, dialogs, comment)
	if err != nil {
		if errors.Is(err, shifts.ErrNotOpen) {
			b.resetToMenu(ctx, chatID, "Смена уже закрыта.")
			return
		}
		b.replyError(chatID, Internal("shift close", err))
		return
	}
	_ = b.states.Reset(ctx, chatID)

	ended := time.Now().In(b.loc)
	if sh.EndedAt != nil {
		ended = sh.EndedAt.In(b.loc)
	}
	direct, referral, total, err := b.forms.TrafficCounts(ctx, u.ID, sh.StartedAt, ended)
	if err != nil {
		b.log.Error("shift traffic counts", "err", err)
	}

	rep := shifts.Report{
		Tag:      u.Tag(),
		Source:   u.Source,
		Started:  sh.StartedAt.In(b.loc),
		Ended:    ended,
		Direct:   direct,
		Referral: referral,
		Total:    total,
		Dialogs:  sh.DialogsCount,
		Comment:  sh.Comment,
	}
	b.send(tgbotapi.NewMessage(chatID, rep.Text()))
	if u.ForwardGroupID != 0 {
		b.send(tgbotapi.NewMessage(u.ForwardGroupID, rep.Text()))
	}

	open, err := b.shifts.CountOpenBySource(ctx, u.Source)
	if err != nil {
		b.log.Error("open shifts count", "err", err)
		return
	}
	if open > 0 {
		return
	}

	day := dayStart(ended)
	d, r, t, err := b.forms.SourceTrafficCounts(ctx, u.Source, day, day.AddDate(0, 0, 1))
	if err != nil {
		b.log.Error("source traffic counts", "err", err)
		return
	}
	team := shifts.TeamReport{Source: u.Source, Date: day, Direct: d, Referral: r, Total: t}
	leads, err := b.users.ListTeamLeads(ctx, u.Source)
	if err != nil {
		b.log.Error("team leads list", "err", err)
		return
	}
	for _, tl := range leads {
		b.send(tgbotapi.NewMessage(tl.TgID, team.Text()))
	}
}
