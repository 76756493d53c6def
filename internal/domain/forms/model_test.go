package forms

import (
	"testing"
	"time"

	"github.com/vkamlov/dropdesk-bot/internal/domain/users"
)

func TestNextStepTG(t *testing.T) {
	f := &Form{Source: users.SourceTG}

	if got := NextStep(f, 0); got != StepPhone {
		t.Fatalf("empty tg form: NextStep = %q, want %q", got, StepPhone)
	}

	f.Phone = "+380 991234567"
	if got := NextStep(f, 0); got != StepBank {
		t.Fatalf("after phone: NextStep = %q, want %q", got, StepBank)
	}

	f.BankID = 1
	if got := NextStep(f, 0); got != StepPassword {
		t.Fatalf("after bank: NextStep = %q, want %q", got, StepPassword)
	}

	f.Password = "secret"
	if got := NextStep(f, 0); got != StepScreens {
		t.Fatalf("after password: NextStep = %q, want %q", got, StepScreens)
	}

	f.Screenshots = []string{"photo:AgAC1"}
	if got := NextStep(f, 0); got != StepComment {
		t.Fatalf("after one screen, free mode: NextStep = %q, want %q", got, StepComment)
	}

	f.Comment = "готово"
	if got := NextStep(f, 0); got != StepConfirm {
		t.Fatalf("filled form: NextStep = %q, want %q", got, StepConfirm)
	}
}

func TestNextStepFB(t *testing.T) {
	f := &Form{Source: users.SourceFB}

	if got := NextStep(f, 0); got != StepTraffic {
		t.Fatalf("empty fb form: NextStep = %q, want %q", got, StepTraffic)
	}

	f.TrafficType = TrafficDirect
	if got := NextStep(f, 0); got != StepForwardPrimary {
		t.Fatalf("direct after traffic: NextStep = %q, want %q", got, StepForwardPrimary)
	}

	f.ForwardPrimary = &ForwardContact{Username: "client"}
	if got := NextStep(f, 0); got != StepPhone {
		t.Fatalf("direct after forward: NextStep = %q, want %q", got, StepPhone)
	}

	// Реферал требует вторую пересылку.
	f.TrafficType = TrafficReferral
	if got := NextStep(f, 0); got != StepForwardSecondary {
		t.Fatalf("referral without secondary: NextStep = %q, want %q", got, StepForwardSecondary)
	}

	f.ForwardSecondary = &ForwardContact{Phone: "+380 991234567"}
	if got := NextStep(f, 0); got != StepPhone {
		t.Fatalf("referral with both forwards: NextStep = %q, want %q", got, StepPhone)
	}
}

func TestNextStepRequiredScreens(t *testing.T) {
	f := &Form{
		Source:      users.SourceTG,
		Phone:       "+380 991234567",
		BankID:      1,
		Password:    "secret",
		Screenshots: []string{"photo:a", "photo:b"},
	}

	if got := NextStep(f, 3); got != StepScreens {
		t.Errorf("two of three screens: NextStep = %q, want %q", got, StepScreens)
	}

	f.Screenshots = append(f.Screenshots, "doc:c")
	if got := NextStep(f, 3); got != StepComment {
		t.Errorf("three of three screens: NextStep = %q, want %q", got, StepComment)
	}
}

func TestForwardContactMissingFields(t *testing.T) {
	tests := []struct {
		name string
		c    ForwardContact
		want []string
	}{
		{name: "all empty", c: ForwardContact{}, want: []string{"username", "phone", "name"}},
		{name: "only username", c: ForwardContact{Username: "x"}, want: []string{"phone", "name"}},
		{name: "full", c: ForwardContact{Username: "x", Phone: "y", DisplayName: "z"}, want: nil},
		{
			name: "platform id alone changes nothing",
			c:    ForwardContact{PlatformID: 42},
			want: []string{"username", "phone", "name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.c.MissingFields()
			if len(got) != len(tt.want) {
				t.Fatalf("MissingFields() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("MissingFields()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestForwardContactLabel(t *testing.T) {
	tests := []struct {
		name string
		c    ForwardContact
		want string
	}{
		{name: "username wins", c: ForwardContact{Username: "client", DisplayName: "Иван"}, want: "@client"},
		{name: "username keeps single at", c: ForwardContact{Username: "@client"}, want: "@client"},
		{name: "display name", c: ForwardContact{DisplayName: "Иван П."}, want: "Иван П."},
		{name: "phone", c: ForwardContact{Phone: "+380 991234567"}, want: "+380 991234567"},
		{name: "empty", c: ForwardContact{}, want: "—"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLifecycleChecks(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		f          Form
		canEdit    bool
		canResub   bool
		canCapture bool
	}{
		{
			name:     "in progress",
			f:        Form{Status: StatusInProgress},
			canEdit:  true,
			canResub: false,
		},
		{
			name:     "pending",
			f:        Form{Status: StatusPending},
			canEdit:  true,
			canResub: true,
		},
		{
			name:     "rejected",
			f:        Form{Status: StatusRejected},
			canEdit:  true,
			canResub: true,
		},
		{
			name:       "approved unpaid",
			f:          Form{Status: StatusApproved},
			canCapture: true,
		},
		{
			name: "approved paid",
			f:    Form{Status: StatusApproved, PaymentDoneAt: &now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanEdit(&tt.f); got != tt.canEdit {
				t.Errorf("CanEdit = %v, want %v", got, tt.canEdit)
			}
			if got := CanResubmit(&tt.f); got != tt.canResub {
				t.Errorf("CanResubmit = %v, want %v", got, tt.canResub)
			}
			if got := CanCapturePayment(&tt.f); got != tt.canCapture {
				t.Errorf("CanCapturePayment = %v, want %v", got, tt.canCapture)
			}
		})
	}
}

func TestUnpackMedia(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		wantKind string
		wantID   string
	}{
		{name: "photo", ref: "photo:AgAC1", wantKind: MediaPhoto, wantID: "AgAC1"},
		{name: "doc", ref: "doc:BQAC2", wantKind: MediaDoc, wantID: "BQAC2"},
		{name: "video", ref: "video:BAAC3", wantKind: MediaVideo, wantID: "BAAC3"},
		// записи до ввода префиксов — голые file_id, считаются фото
		{name: "legacy bare id", ref: "AgAC1", wantKind: MediaPhoto, wantID: "AgAC1"},
		{name: "unknown prefix stays whole", ref: "sticker:CAAC4", wantKind: MediaPhoto, wantID: "sticker:CAAC4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, id := UnpackMedia(tt.ref)
			if kind != tt.wantKind || id != tt.wantID {
				t.Errorf("UnpackMedia(%q) = (%q, %q), want (%q, %q)",
					tt.ref, kind, id, tt.wantKind, tt.wantID)
			}
		})
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	ref := PackMedia(MediaDoc, "BQAC2")
	kind, id := UnpackMedia(ref)
	if kind != MediaDoc || id != "BQAC2" {
		t.Errorf("round trip = (%q, %q), want (doc, BQAC2)", kind, id)
	}
}
