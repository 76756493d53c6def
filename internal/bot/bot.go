package bot

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkamlov/dropdesk-bot/internal/dialog"
	"github.com/vkamlov/dropdesk-bot/internal/domain/access"
	"github.com/vkamlov/dropdesk-bot/internal/domain/banks"
	"github.com/vkamlov/dropdesk-bot/internal/domain/duplicates"
	"github.com/vkamlov/dropdesk-bot/internal/domain/forms"
	"github.com/vkamlov/dropdesk-bot/internal/domain/groups"
	"github.com/vkamlov/dropdesk-bot/internal/domain/pool"
	"github.com/vkamlov/dropdesk-bot/internal/domain/shifts"
	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
	"github.com/vkamlov/dropdesk-bot/internal/infra/metrics"
)

type Bot struct {
	api    *tgbotapi.BotAPI
	log    *slog.Logger
	loc    *time.Location
	devIDs map[int64]bool

	states *dialog.Repo
	users  *users.Repo
	banks  *banks.Repo
	forms  *forms.Repo
	dups   *duplicates.Repo
	shifts *shifts.Repo
	pool   *pool.Repo
	access *access.Repo
	groups *groups.Repo

	albums *albumAck
}

func New(api *tgbotapi.BotAPI, log *slog.Logger, loc *time.Location, developerIDs []int64,
	statesRepo *dialog.Repo, usersRepo *users.Repo, banksRepo *banks.Repo,
	formsRepo *forms.Repo, dupsRepo *duplicates.Repo, shiftsRepo *shifts.Repo,
	poolRepo *pool.Repo, accessRepo *access.Repo, groupsRepo *groups.Repo) *Bot {

	devs := make(map[int64]bool, len(developerIDs))
	for _, id := range developerIDs {
		devs[id] = true
	}

	b := &Bot{
		api: api, log: log, loc: loc, devIDs: devs,
		states: statesRepo, users: usersRepo, banks: banksRepo,
		forms: formsRepo, dups: dupsRepo, shifts: shiftsRepo,
		pool: poolRepo, access: accessRepo, groups: groupsRepo,
	}
	b.albums = newAlbumAck(albumQuiet, albumDedup, albumCap)
	return b
}

func (b *Bot) isDeveloper(tgID int64) bool { return b.devIDs[tgID] }

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	u.AllowedUpdates = []string{"message", "callback_query", "my_chat_member"}
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			b.handleUpdate(ctx, upd)
		}
	}
}

// handleUpdate не даёт одному кривому апдейту уронить цикл.
func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			b.log.Error("panic in handler", "panic", rec)
		}
	}()

	switch {
	case upd.Message != nil:
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
		b.onMessage(ctx, upd)
	case upd.CallbackQuery != nil:
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		b.onCallback(ctx, upd)
	case upd.MyChatMember != nil:
		metrics.UpdatesTotal.WithLabelValues("my_chat_member").Inc()
		b.onMyChatMember(ctx, upd.MyChatMember)
	}
}

// onMyChatMember ведёт реестр рабочих групп: добавили бота — группа
// зарегистрирована, убрали — помечена неактивной.
func (b *Bot) onMyChatMember(ctx context.Context, ev *tgbotapi.ChatMemberUpdated) {
	if ev.Chat.Type != "group" && ev.Chat.Type != "supergroup" {
		return
	}
	switch ev.NewChatMember.Status {
	case "member", "administrator":
		if err := b.groups.Register(ctx, ev.Chat.ID, ev.Chat.Title); err != nil {
			b.log.Error("group register failed", "chat_id", ev.Chat.ID, "err", err)
			return
		}
		b.log.Info("group registered", "chat_id", ev.Chat.ID, "title", ev.Chat.Title)
	case "left", "kicked":
		if err := b.groups.Deactivate(ctx, ev.Chat.ID); err != nil {
			b.log.Error("group deactivate failed", "chat_id", ev.Chat.ID, "err", err)
			return
		}
		b.log.Info("group deactivated", "chat_id", ev.Chat.ID)
	}
}
