package banks

import (
	"testing"

	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

func TestConfiguredFor(t *testing.T) {
	tests := []struct {
		name string
		b    Bank
		src  users.Source
		want bool
	}{
		{name: "bare bank tg", b: Bank{Name: "ПУМБ"}, src: users.SourceTG, want: false},
		{
			name: "tg instruction only",
			b:    Bank{Name: "ПУМБ", InstructionTG: "скрины после входа"},
			src:  users.SourceTG,
			want: true,
		},
		{
			name: "tg instruction does not configure fb",
			b:    Bank{Name: "ПУМБ", InstructionTG: "скрины после входа"},
			src:  users.SourceFB,
			want: false,
		},
		{
			name: "fb screens requirement",
			b:    Bank{Name: "Моно", RequiredScreensFB: 3},
			src:  users.SourceFB,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.ConfiguredFor(tt.src); got != tt.want {
				t.Errorf("ConfiguredFor(%s) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestAvailableFor(t *testing.T) {
	all := []Bank{
		{ID: 1, Name: "ПУМБ", InstructionTG: "инструкция"},
		{ID: 2, Name: "Моно", RequiredScreensFB: 2},
		{ID: 3, Name: "Sense"},
	}

	tg := AvailableFor(all, users.SourceTG)
	if len(tg) != 1 || tg[0].ID != 1 {
		t.Errorf("AvailableFor(tg) = %v, want only ПУМБ", tg)
	}

	fb := AvailableFor(all, users.SourceFB)
	if len(fb) != 1 || fb[0].ID != 2 {
		t.Errorf("AvailableFor(fb) = %v, want only Моно", fb)
	}
}

func TestAvailableForFallsBackToAll(t *testing.T) {
	all := []Bank{
		{ID: 1, Name: "ПУМБ"},
		{ID: 2, Name: "Моно"},
	}

	got := AvailableFor(all, users.SourceTG)
	if len(got) != len(all) {
		t.Errorf("no bank configured: AvailableFor returned %d of %d", len(got), len(all))
	}
}

func TestRequiredScreensPerSource(t *testing.T) {
	b := Bank{RequiredScreensTG: 2, RequiredScreensFB: 5}

	if got := b.RequiredScreens(users.SourceTG); got != 2 {
		t.Errorf("RequiredScreens(tg) = %d, want 2", got)
	}
	if got := b.RequiredScreens(users.SourceFB); got != 5 {
		t.Errorf("RequiredScreens(fb) = %d, want 5", got)
	}
}
