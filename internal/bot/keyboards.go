package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/domain/banks"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

func cancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(cancelRow())
}

func cancelRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✖️ Отменить", "nav:cancel"),
	)
}

// accessRoleKeyboard — выбор роли в заявке на доступ.
func accessRoleKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Дроп-менеджер", "acc:role:drop_manager"),
			tgbotapi.NewInlineKeyboardButtonData("Тимлид", "acc:role:team_lead"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Wictory", "acc:role:wictory"),
		),
		cancelRow(),
	)
}

/*** Нижние панели по ролям ***/

func dmReplyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard: [][]tgbotapi.KeyboardButton{
			{tgbotapi.NewKeyboardButton("📝 Анкета"), tgbotapi.NewKeyboardButton("📂 Мои анкеты")},
			{tgbotapi.NewKeyboardButton("🔄 Смена"), tgbotapi.NewKeyboardButton("🔗 Ресурсы")},
		},
	}
}

func tlReplyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard: [][]tgbotapi.KeyboardButton{
			{tgbotapi.NewKeyboardButton("📥 Проверка"), tgbotapi.NewKeyboardButton("🏦 Банки")},
			{tgbotapi.NewKeyboardButton("👥 Дубли"), tgbotapi.NewKeyboardButton("📊 Статистика")},
		},
	}
}

func wikReplyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard: [][]tgbotapi.KeyboardButton{
			{tgbotapi.NewKeyboardButton("➕ Добавить ресурс")},
			{tgbotapi.NewKeyboardButton("⛔ Невалиды"), tgbotapi.NewKeyboardButton("📊 Пул")},
		},
	}
}

func devReplyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard: [][]tgbotapi.KeyboardButton{
			{tgbotapi.NewKeyboardButton("📨 Заявки"), tgbotapi.NewKeyboardButton("📊 Статистика")},
			{tgbotapi.NewKeyboardButton("👥 Группы")},
		},
	}
}

// roleKeyboardFor — нижняя панель по роли пользователя.
func (b *Bot) roleKeyboardFor(u *users.User) (tgbotapi.ReplyKeyboardMarkup, bool) {
	if u != nil && b.isDeveloper(u.TgID) {
		return devReplyKeyboard(), true
	}
	if u == nil {
		return tgbotapi.ReplyKeyboardMarkup{}, false
	}
	switch u.Role {
	case users.RoleDropManager:
		return dmReplyKeyboard(), true
	case users.RoleTeamLead:
		return tlReplyKeyboard(), true
	case users.RoleWictory:
		return wikReplyKeyboard(), true
	}
	return tgbotapi.ReplyKeyboardMarkup{}, false
}

// banksKeyboard — по кнопке на банк, callback «<prefix>:<id>».
func banksKeyboard(list []banks.Bank, prefix string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list)+1)
	for _, bk := range list {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(bk.Name, fmt.Sprintf("%s:%d", prefix, bk.ID)),
		))
	}
	rows = append(rows, cancelRow())
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// periodsKeyboard — общий набор фильтров периода, callback «<prefix>:<period>».
func periodsKeyboard(prefix string) tgbotapi.InlineKeyboardMarkup {
	row := func(ps ...Period) []tgbotapi.InlineKeyboardButton {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(ps))
		for _, p := range ps {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(
				periodTitle(p), fmt.Sprintf("%s:%s", prefix, p)))
		}
		return btns
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		row(PeriodToday, PeriodYesterday),
		row(PeriodLast7, PeriodLast30),
		row(PeriodWeek, PeriodMonth),
		row(PeriodPrevMonth, PeriodYear),
		row(PeriodAll, PeriodCustom),
	)
}

func trafficKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Прямой", "form:traffic:direct"),
			tgbotapi.NewInlineKeyboardButtonData("Реферал", "form:traffic:referral"),
		),
		cancelRow(),
	)
}

func screensDoneKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Готово", "form:screens:done"),
		),
		cancelRow(),
	)
}

func formConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📨 Отправить", "form:confirm:submit"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Исправить", "form:confirm:edit"),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", "form:confirm:cancel"),
		),
	)
}
