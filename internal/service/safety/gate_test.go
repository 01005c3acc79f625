package safety

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/adapter/vision"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/config"
	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

type classifierMock struct {
	ClassifyFunc func(ctx context.Context, imageRef string) (*vision.Classification, error)
	calls        int
}

func (m *classifierMock) Classify(ctx context.Context, imageRef string) (*vision.Classification, error) {
	m.calls++
	return m.ClassifyFunc(ctx, imageRef)
}

type flagRepoMock struct {
	inserted []domain.ImageSafetyFlag
}

func (m *flagRepoMock) Insert(_ context.Context, flag domain.ImageSafetyFlag) (*domain.ImageSafetyFlag, error) {
	m.inserted = append(m.inserted, flag)
	cp := flag
	return &cp, nil
}

func newTestGate(cls classifier, flags flagRepo, failOpen bool) *Gate {
	return NewGate(slog.Default(), cls, flags, nil, clockwork.NewFakeClock(), config.SafetyConfig{
		TimeoutMS: 8000,
		FailOpen:  failOpen,
	})
}

func TestGate_Evaluate_NoImages(t *testing.T) {
	t.Parallel()

	cls := &classifierMock{}
	gate := newTestGate(cls, &flagRepoMock{}, true)

	v, err := gate.Evaluate(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.Blocked {
		t.Error("no images must pass the gate")
	}
	if cls.calls != 0 {
		t.Error("classifier must not be called without images")
	}
}

func TestGate_Evaluate_Safe(t *testing.T) {
	t.Parallel()

	product := json.RawMessage(`{"name":"iphone 13"}`)
	cls := &classifierMock{
		ClassifyFunc: func(_ context.Context, _ string) (*vision.Classification, error) {
			return &vision.Classification{Safe: true, AllowListing: true, Product: product}, nil
		},
	}
	flags := &flagRepoMock{}
	gate := newTestGate(cls, flags, true)

	v, err := gate.Evaluate(context.Background(), uuid.New(), []string{"img-1"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.Blocked {
		t.Fatal("safe classification must pass")
	}
	if string(v.ProductSummary) != string(product) {
		t.Errorf("ProductSummary = %s", v.ProductSummary)
	}
	if len(flags.inserted) != 0 {
		t.Error("safe verdict must not persist a flag")
	}
}

func TestGate_Evaluate_Block_PersistsPendingFlag(t *testing.T) {
	t.Parallel()

	cls := &classifierMock{
		ClassifyFunc: func(_ context.Context, _ string) (*vision.Classification, error) {
			return &vision.Classification{
				Safe:       false,
				FlagType:   "weapon",
				Confidence: "high",
				Message:    "silah tespit edildi",
			}, nil
		},
	}
	flags := &flagRepoMock{}
	gate := newTestGate(cls, flags, true)
	userID := uuid.New()

	v, err := gate.Evaluate(context.Background(), userID, []string{"img-1", "img-2"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !v.Blocked {
		t.Fatal("unsafe classification must block")
	}
	if v.FlagType != domain.FlagTypeWeapon || v.Confidence != domain.ConfidenceHigh {
		t.Errorf("verdict = %+v", v)
	}

	// Exactly one pending flag, matching the verdict.
	if len(flags.inserted) != 1 {
		t.Fatalf("flags inserted = %d, want 1", len(flags.inserted))
	}
	flag := flags.inserted[0]
	if flag.FlagType != domain.FlagTypeWeapon || flag.Status != domain.FlagStatusPending {
		t.Errorf("flag = %+v, want weapon/pending", flag)
	}
	if flag.UserID == nil || *flag.UserID != userID {
		t.Error("flag must reference the uploading user")
	}

	// Only the first image is classified; the rest inherit the verdict.
	if cls.calls != 1 {
		t.Errorf("classifier calls = %d, want 1", cls.calls)
	}
}

func TestGate_Evaluate_AllowListingFalseBlocks(t *testing.T) {
	t.Parallel()

	cls := &classifierMock{
		ClassifyFunc: func(_ context.Context, _ string) (*vision.Classification, error) {
			return &vision.Classification{Safe: true, AllowListing: false, FlagType: "document", Confidence: "medium"}, nil
		},
	}
	flags := &flagRepoMock{}
	gate := newTestGate(cls, flags, true)

	v, err := gate.Evaluate(context.Background(), uuid.New(), []string{"img-1"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !v.Blocked {
		t.Error("allow_listing=false must block even when safe=true")
	}
	if len(flags.inserted) != 1 {
		t.Errorf("flags inserted = %d, want 1", len(flags.inserted))
	}
}

func TestGate_Evaluate_OutageFailOpen(t *testing.T) {
	t.Parallel()

	cls := &classifierMock{
		ClassifyFunc: func(_ context.Context, _ string) (*vision.Classification, error) {
			return nil, domain.ErrExternalUnavailable
		},
	}
	flags := &flagRepoMock{}
	gate := newTestGate(cls, flags, true)

	v, err := gate.Evaluate(context.Background(), uuid.New(), []string{"img-1"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.Blocked {
		t.Error("classifier outage must fail open")
	}
	if len(flags.inserted) != 0 {
		t.Error("fail-open outage must not persist a flag")
	}
}

func TestGate_Evaluate_OutageFailClosed(t *testing.T) {
	t.Parallel()

	cls := &classifierMock{
		ClassifyFunc: func(_ context.Context, _ string) (*vision.Classification, error) {
			return nil, domain.ErrExternalUnavailable
		},
	}
	flags := &flagRepoMock{}
	gate := newTestGate(cls, flags, false)

	v, err := gate.Evaluate(context.Background(), uuid.New(), []string{"img-1"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !v.Blocked {
		t.Error("fail-closed configuration must block on outage")
	}
	if v.FlagType != domain.FlagTypeUnknown {
		t.Errorf("FlagType = %s, want unknown", v.FlagType)
	}
}
