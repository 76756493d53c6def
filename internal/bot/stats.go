package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"

	"github.com/vkamlov/dropdesk-bot/internal/dialog"
	"github.com/vkamlov/dropdesk-bot/internal/domain/forms"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

// Статистика по менеджерам. Тимлид видит свой источник, разработчик — оба.
// Любую сводку можно выгрузить в Excel; в callback выгрузки зашит уже
// посчитанный диапазон, чтобы не таскать произвольный период через стейт.

const statDateLayout = "2006-01-02"

// openTLStats — кнопка «📊 Статистика» тимлида.
func (b *Bot) openTLStats(ctx context.Context, u *users.User, chatID int64) {
	m := tgbotapi.NewMessage(chatID, "Статистика — выберите период:")
	m.ReplyMarkup = periodsKeyboard("stat:tl")
	b.send(m)
}

// devOpenStats — кнопка «📊 Статистика» разработчика.
func (b *Bot) devOpenStats(ctx context.Context, chatID int64) {
	m := tgbotapi.NewMessage(chatID, "Статистика по обоим источникам — выберите период:")
	m.ReplyMarkup = periodsKeyboard("stat:dev")
	b.send(m)
}

func (b *Bot) cbStats(ctx context.Context, u *users.User, cb *tgbotapi.CallbackQuery, parts []string) {
	if len(parts) < 3 {
		_ = b.answerCallback(cb, "", false)
		return
	}
	chatID := cb.Message.Chat.ID

	askCustom := func(target string) {
		pl := dialog.Payload{"period_for": target}
		if err := b.states.Set(ctx, chatID, dialog.StatePeriodCustom, pl); err != nil {
			_ = b.answerCallback(cb, "", false)
			b.replyError(chatID, Internal("dialog", err))
			return
		}
		_ = b.answerCallback(cb, "", false)
		b.editTextAndClear(chatID, cb.Message.MessageID,
			"Введите период в формате ДД.ММ.ГГГГ-ДД.ММ.ГГГГ.")
	}

	switch parts[1] {
	case "tl":
		if !hasRole(u, users.RoleTeamLead) {
			_ = b.answerCallback(cb, "", false)
			return
		}
		p := Period(parts[2])
		if p == PeriodCustom {
			askCustom("tlstats")
			return
		}
		_ = b.answerCallback(cb, periodTitle(p), false)
		from, to := b.periodRange(p)
		b.showTLStats(ctx, u, chatID, cb.Message.MessageID, periodTitle(p), from, to)

	case "dev":
		if !b.isDeveloper(u.TgID) {
			_ = b.answerCallback(cb, "", false)
			return
		}
		p := Period(parts[2])
		if p == PeriodCustom {
			askCustom("devstats")
			return
		}
		_ = b.answerCallback(cb, periodTitle(p), false)
		from, to := b.periodRange(p)
		b.showDevStats(ctx, chatID, cb.Message.MessageID, periodTitle(p), from, to)

	case "x":
		if len(parts) < 5 {
			_ = b.answerCallback(cb, "", false)
			return
		}
		from, err1 := time.ParseInLocation(statDateLayout, parts[3], b.loc)
		to, err2 := time.ParseInLocation(statDateLayout, parts[4], b.loc)
		if err1 != nil || err2 != nil {
			_ = b.answerCallback(cb, "", false)
			return
		}
		switch parts[2] {
		case "tl":
			if !hasRole(u, users.RoleTeamLead) {
				_ = b.answerCallback(cb, "", false)
				return
			}
			_ = b.answerCallback(cb, "Готовлю файл…", false)
			b.exportStatsExcel(ctx, chatID, []users.Source{u.Source}, from, to)
		case "dev":
			if !b.isDeveloper(u.TgID) {
				_ = b.answerCallback(cb, "", false)
				return
			}
			_ = b.answerCallback(cb, "Готовлю файл…", false)
			b.exportStatsExcel(ctx, chatID, []users.Source{users.SourceTG, users.SourceFB}, from, to)
		default:
			_ = b.answerCallback(cb, "", false)
		}

	default:
		_ = b.answerCallback(cb, "", false)
	}
}

func statsExportKeyboard(scope string, from, to time.Time) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Excel", fmt.Sprintf("stat:x:%s:%s:%s",
				scope, from.Format(statDateLayout), to.Format(statDateLayout))),
		),
	)
}

func renderManagerStats(stats []forms.ManagerStat) string {
	var sb strings.Builder
	for i, s := range stats {
		fmt.Fprintf(&sb, "%d. %s — %d анкет\n", i+1, s.Tag, s.Total)
		fmt.Fprintf(&sb, "    ✅ %d · ❌ %d · 🕓 %d · %d%%\n",
			s.Approved, s.Rejected, s.Pending, s.Efficiency())
	}
	return sb.String()
}

func (b *Bot) showTLStats(ctx context.Context, u *users.User, chatID int64, messageID int, title string, from, to time.Time) {
	stats, err := b.forms.ManagerStats(ctx, u.Source, from, to)
	if err != nil {
		b.replyError(chatID, Internal("manager stats", err))
		return
	}
	if len(stats) == 0 {
		b.sendOrEdit(chatID, messageID, fmt.Sprintf("%s: анкет нет.", title), nil)
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Статистика (%s)\nИсточник: %s\n\n", title, u.Source.Title())
	sb.WriteString(renderManagerStats(stats))
	kb := statsExportKeyboard("tl", from, to)
	b.sendOrEdit(chatID, messageID, strings.TrimRight(sb.String(), "\n"), &kb)
}

func (b *Bot) showDevStats(ctx context.Context, chatID int64, messageID int, title string, from, to time.Time) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Статистика (%s)\n", title)

	total := 0
	for _, src := range []users.Source{users.SourceTG, users.SourceFB} {
		stats, err := b.forms.ManagerStats(ctx, src, from, to)
		if err != nil {
			b.replyError(chatID, Internal("manager stats", err))
			return
		}
		if len(stats) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n— %s —\n", src.Title())
		sb.WriteString(renderManagerStats(stats))
		for _, s := range stats {
			total += s.Total
		}
	}
	if total == 0 {
		b.sendOrEdit(chatID, messageID, fmt.Sprintf("%s: анкет нет.", title), nil)
		return
	}
	fmt.Fprintf(&sb, "\nВсего анкет: %d", total)
	kb := statsExportKeyboard("dev", from, to)
	b.sendOrEdit(chatID, messageID, strings.TrimRight(sb.String(), "\n"), &kb)
}

func (b *Bot) exportStatsExcel(ctx context.Context, chatID int64, sources []users.Source, from, to time.Time) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"source",
		"manager",
		"total",
		"pending",
		"approved",
		"rejected",
		"efficiency_pct",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		b.replyError(chatID, Internal("xlsx header", err))
		return
	}

	row := 2
	for _, src := range sources {
		stats, err := b.forms.ManagerStats(ctx, src, from, to)
		if err != nil {
			b.replyError(chatID, Internal("manager stats", err))
			return
		}
		for _, s := range stats {
			excelRow := []interface{}{
				string(src),
				s.Tag,
				s.Total,
				s.Pending,
				s.Approved,
				s.Rejected,
				s.Efficiency(),
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				b.replyError(chatID, Internal("xlsx cell", err))
				return
			}
			if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
				b.replyError(chatID, Internal("xlsx row", err))
				return
			}
			row++
		}
	}
	if row == 2 {
		b.send(tgbotapi.NewMessage(chatID, "За этот период анкет нет, выгружать нечего."))
		return
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		b.replyError(chatID, Internal("xlsx write", err))
		return
	}

	fileName := fmt.Sprintf("stats_%s_%s.xlsx",
		from.Format("20060102"), to.AddDate(0, 0, -1).Format("20060102"))
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fileName,
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("Статистика %s — %s",
		from.Format("02.01.2006"), to.AddDate(0, 0, -1).Format("02.01.2006"))
	b.send(doc)
}

// periodHandleMessage принимает произвольный период, запрошенный кнопкой
// «Свой период», и возвращает управление исходному разделу.
func (b *Bot) periodHandleMessage(ctx context.Context, u *users.User, msg *tgbotapi.Message, st *dialog.Item) {
	chatID := msg.Chat.ID
	from, to, err := parseCustomRange(msg.Text, b.loc)
	if err != nil {
		b.replyError(chatID, Validation(err.Error()+". Пример: 01.08.2026-15.08.2026."))
		return
	}
	title := fmt.Sprintf("%s — %s",
		from.Format("02.01.2006"), to.AddDate(0, 0, -1).Format("02.01.2006"))
	target := payloadString(st.Payload, "period_for")
	_ = b.states.Reset(ctx, chatID)

	switch target {
	case "myforms":
		if hasRole(u, users.RoleDropManager) {
			b.showMyFormsList(ctx, u, chatID, 0, title, from, to)
			return
		}
	case "dups":
		if hasRole(u, users.RoleTeamLead) {
			b.showDuplicates(ctx, chatID, 0, title, from, to)
			return
		}
	case "tlstats":
		if hasRole(u, users.RoleTeamLead) {
			b.showTLStats(ctx, u, chatID, 0, title, from, to)
			return
		}
	case "devstats":
		if b.isDeveloper(u.TgID) {
			b.showDevStats(ctx, chatID, 0, title, from, to)
			return
		}
	}
	b.send(tgbotapi.NewMessage(chatID, "Раздел недоступен."))
}
