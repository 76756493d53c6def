package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
	"github.com/vkamlov/dropdesk-bot/internal/infra/metrics"
)

// Ночная чистка личек: в анкетах мелькают номера и пароли, поэтому история
// диалога с ботом не должна жить дольше суток. Идём от последнего известного
// сообщения вниз; Telegram не даёт удалять старше 48 часов, так что серия
// отказов подряд означает дно — дальше не пробуем.

const (
	cleanupMaxPerChat = 400
	cleanupMissLimit  = 30
	cleanupThrottle   = 50 * time.Millisecond
)

// CleanupChats — задача планировщика.
func (b *Bot) CleanupChats(ctx context.Context) {
	list, err := b.users.ListForCleanup(ctx)
	if err != nil {
		b.log.Error("cleanup: list users", "err", err)
		return
	}
	b.log.Info("cleanup started", "chats", len(list))

	total := 0
	for i := range list {
		u := &list[i]
		n := b.cleanupChat(ctx, u)
		total += n

		if err := b.users.ResetLastMessage(ctx, u.ID); err != nil {
			b.log.Error("cleanup: reset last message", "tg_id", u.TgID, "err", err)
			continue
		}
		if kb, ok := b.roleKeyboardFor(u); ok {
			m := tgbotapi.NewMessage(u.TgID, "🧹 История очищена. Меню внизу 👇")
			m.ReplyMarkup = kb
			b.send(m)
		}
	}
	b.log.Info("cleanup finished", "chats", len(list), "deleted", total)
}

func (b *Bot) cleanupChat(ctx context.Context, u *users.User) int {
	deleted, misses := 0, 0
	for msgID := int(u.LastMessageID); msgID > 0; msgID-- {
		if ctx.Err() != nil {
			return deleted
		}
		if deleted >= cleanupMaxPerChat || misses >= cleanupMissLimit {
			break
		}
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(u.TgID, msgID)); err != nil {
			misses++
			continue
		}
		deleted++
		misses = 0
		metrics.CleanupDeleted.Inc()
		time.Sleep(cleanupThrottle)
	}
	if deleted > 0 {
		b.log.Debug("cleanup: chat done", "tg_id", u.TgID, "deleted", deleted)
	}
	return deleted
}
