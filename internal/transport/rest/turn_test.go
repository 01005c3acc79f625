package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

type controllerMock struct {
	HandleFunc func(ctx context.Context, turn domain.Turn) (domain.Reply, error)
	last       *domain.Turn
}

func (m *controllerMock) Handle(ctx context.Context, turn domain.Turn) (domain.Reply, error) {
	m.last = &turn
	return m.HandleFunc(ctx, turn)
}

func postTurn(t *testing.T, h *TurnHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/turn", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestTurnHandler_Success(t *testing.T) {
	t.Parallel()

	listingID := uuid.New()
	reason := domain.EndReasonOperationCompleted
	ctrl := &controllerMock{
		HandleFunc: func(_ context.Context, _ domain.Turn) (domain.Reply, error) {
			return domain.Reply{
				Text:         "✅ İlanınız başarıyla yayınlandı!",
				Intent:       domain.IntentPublishListing,
				SessionToken: "tok-123",
				ListingID:    &listingID,
				Success:      true,
				EndReason:    &reason,
			}, nil
		},
	}
	h := NewTurnHandler(ctrl, nil, slog.Default())

	rec := postTurn(t, h, `{"phone":"+905551234567","text":"onayla","transport":"whatsapp"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp turnResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Intent != "publish_listing" || !resp.Success {
		t.Errorf("resp = %+v", resp)
	}
	if resp.ListingID == nil || *resp.ListingID != listingID.String() {
		t.Error("listing id missing from envelope")
	}
	if resp.EndReason != "operation_completed" {
		t.Errorf("EndReason = %q", resp.EndReason)
	}
}

func TestTurnHandler_DomainRefusalIsStill200(t *testing.T) {
	t.Parallel()

	ctrl := &controllerMock{
		HandleFunc: func(_ context.Context, _ domain.Turn) (domain.Reply, error) {
			return domain.Reply{Text: "🔒 Güvenlik için 4 haneli PIN kodunuzu girin", Success: false}, nil
		},
	}
	h := NewTurnHandler(ctrl, nil, slog.Default())

	rec := postTurn(t, h, `{"phone":"+905551234567","text":"merhaba","transport":"whatsapp"}`)

	if rec.Code != http.StatusOK {
		t.Errorf("domain outcomes must be 200, got %d", rec.Code)
	}
}

func TestTurnHandler_MalformedInput(t *testing.T) {
	t.Parallel()

	ctrl := &controllerMock{
		HandleFunc: func(_ context.Context, _ domain.Turn) (domain.Reply, error) {
			t.Error("controller must not run on malformed input")
			return domain.Reply{}, nil
		},
	}
	h := NewTurnHandler(ctrl, nil, slog.Default())

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{{{`},
		{"missing phone", `{"text":"merhaba","transport":"whatsapp"}`},
		{"bad transport", `{"phone":"+905551234567","text":"x","transport":"smoke-signal"}`},
		{"bad user id", `{"phone":"+905551234567","text":"x","transport":"web","user_id":"not-a-uuid"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postTurn(t, h, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestTurnHandler_StripsWhatsAppPrefix(t *testing.T) {
	t.Parallel()

	ctrl := &controllerMock{
		HandleFunc: func(_ context.Context, _ domain.Turn) (domain.Reply, error) {
			return domain.Reply{Text: "ok"}, nil
		},
	}
	h := NewTurnHandler(ctrl, nil, slog.Default())

	postTurn(t, h, `{"phone":"whatsapp:+905551234567","text":"merhaba","transport":"whatsapp"}`)

	if ctrl.last == nil || ctrl.last.Phone != "+905551234567" {
		t.Errorf("phone = %q, want prefix stripped", ctrl.last.Phone)
	}
}

func TestTurnHandler_ControllerErrorIs500(t *testing.T) {
	t.Parallel()

	ctrl := &controllerMock{
		HandleFunc: func(_ context.Context, _ domain.Turn) (domain.Reply, error) {
			return domain.Reply{}, context.DeadlineExceeded
		},
	}
	h := NewTurnHandler(ctrl, nil, slog.Default())

	rec := postTurn(t, h, `{"phone":"+905551234567","text":"merhaba","transport":"whatsapp"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
