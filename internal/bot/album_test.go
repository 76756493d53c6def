package bot

import (
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func TestAlbumAckSingleFire(t *testing.T) {
	a := newAlbumAck(20*time.Millisecond, 200*time.Millisecond, 16)

	var fired atomic.Int32
	// Три кадра одного альбома подряд, как их шлёт Telegram.
	for i := 0; i < 3; i++ {
		a.Observe(100, "g1", func() { fired.Add(1) })
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
}

func TestAlbumAckDedupWindow(t *testing.T) {
	a := newAlbumAck(10*time.Millisecond, 500*time.Millisecond, 16)

	var fired atomic.Int32
	a.Observe(100, "g1", func() { fired.Add(1) })
	time.Sleep(50 * time.Millisecond) // первый залп отработал

	// Запоздавший кадр того же альбома в окне dedup — второго ответа нет.
	a.Observe(100, "g1", func() { fired.Add(1) })
	time.Sleep(50 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
}

func TestAlbumAckDistinctAlbums(t *testing.T) {
	a := newAlbumAck(10*time.Millisecond, 500*time.Millisecond, 16)

	var fired atomic.Int32
	a.Observe(100, "g1", func() { fired.Add(1) })
	a.Observe(100, "g2", func() { fired.Add(1) })
	a.Observe(200, "g1", func() { fired.Add(1) }) // другой чат, тот же group_id

	time.Sleep(80 * time.Millisecond)
	if got := fired.Load(); got != 3 {
		t.Errorf("fired %d times, want 3", got)
	}
}

func TestAlbumAckEvict(t *testing.T) {
	a := newAlbumAck(time.Hour, time.Hour, 3) // таймеры не успеют сработать

	for i := 0; i < 10; i++ {
		a.Observe(int64(i), "g"+strconv.Itoa(i), func() {})
	}

	if got := a.size(); got > 3 {
		t.Errorf("cache size = %d, want <= 3", got)
	}
}
