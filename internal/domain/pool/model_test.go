package pool

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{name: "free to assigned", from: StatusFree, to: StatusAssigned, want: true},
		{name: "free straight to used", from: StatusFree, to: StatusUsed, want: false},
		{name: "assigned back to free", from: StatusAssigned, to: StatusFree, want: true},
		{name: "assigned to used", from: StatusAssigned, to: StatusUsed, want: true},
		{name: "assigned to invalid", from: StatusAssigned, to: StatusInvalid, want: true},
		{name: "invalid to free after fix", from: StatusInvalid, to: StatusFree, want: true},
		{name: "invalid to assigned directly", from: StatusInvalid, to: StatusAssigned, want: false},
		{name: "used is terminal", from: StatusUsed, to: StatusFree, want: false},
		{name: "used to assigned", from: StatusUsed, to: StatusAssigned, want: false},
		{name: "self transition", from: StatusFree, to: StatusFree, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestNeedsScreens(t *testing.T) {
	tests := []struct {
		t    ItemType
		want bool
	}{
		{t: TypeLink, want: false},
		{t: TypeESIM, want: true},
		{t: TypeLinkESIM, want: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.t), func(t *testing.T) {
			if got := tt.t.NeedsScreens(); got != tt.want {
				t.Errorf("%s.NeedsScreens() = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}
