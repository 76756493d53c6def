package bot

import (
	"strconv"
	"sync"
	"time"
)

const (
	albumQuiet = 1600 * time.Millisecond
	albumDedup = 2 * time.Second
	albumCap   = 256
)

// albumAck сводит пачку апдейтов одного альбома к одному подтверждению:
// Telegram присылает каждый кадр отдельным сообщением, отвечать на каждый
// нельзя. Таймер перезапускается на каждом кадре; срабатывает после окна
// тишины. Кэш ограничен по размеру, повторное срабатывание по тому же
// альбому гасится окном dedup.
type albumAck struct {
	mu      sync.Mutex
	quiet   time.Duration
	dedup   time.Duration
	limit   int
	pending map[string]*albumEntry
}

type albumEntry struct {
	timer    *time.Timer
	lastFire time.Time
	touched  time.Time
}

func newAlbumAck(quiet, dedup time.Duration, limit int) *albumAck {
	return &albumAck{
		quiet:   quiet,
		dedup:   dedup,
		limit:   limit,
		pending: make(map[string]*albumEntry),
	}
}

func albumKey(chatID int64, groupID string) string {
	return strconv.FormatInt(chatID, 10) + ":" + groupID
}

// Observe регистрирует кадр альбома. onQuiet будет вызван один раз после
// окна тишины; из последующих кадров берётся свежий callback.
func (a *albumAck) Observe(chatID int64, groupID string, onQuiet func()) {
	key := albumKey(chatID, groupID)

	a.mu.Lock()
	e, ok := a.pending[key]
	if !ok {
		a.evictLocked()
		e = &albumEntry{}
		a.pending[key] = e
	}
	e.touched = time.Now()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(a.quiet, func() { a.fire(key, onQuiet) })
	a.mu.Unlock()
}

func (a *albumAck) fire(key string, onQuiet func()) {
	a.mu.Lock()
	e, ok := a.pending[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	now := time.Now()
	if !e.lastFire.IsZero() && now.Sub(e.lastFire) < a.dedup {
		a.mu.Unlock()
		return
	}
	e.lastFire = now
	a.mu.Unlock()

	onQuiet()
}

// evictLocked держит кэш в пределах лимита, выкидывая самый старый ключ.
func (a *albumAck) evictLocked() {
	if len(a.pending) < a.limit {
		return
	}
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, e := range a.pending {
		if oldestKey == "" || e.touched.Before(oldestAt) {
			oldestKey, oldestAt = k, e.touched
		}
	}
	if oldestKey != "" {
		if e := a.pending[oldestKey]; e.timer != nil {
			e.timer.Stop()
		}
		delete(a.pending, oldestKey)
	}
}

// size — для тестов.
func (a *albumAck) size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
