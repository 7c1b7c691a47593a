package filters

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventdex/internal/domain"
)

type mockModel struct {
	payload    string
	err        error
	lastPrompt string
}

func (m *mockModel) GenerateStructured(_ context.Context, prompt string, out any, _ float32) error {
	m.lastPrompt = prompt
	if m.err != nil {
		return m.err
	}
	return json.Unmarshal([]byte(m.payload), out)
}

func fixedNow() time.Time {
	return time.Date(2025, time.December, 10, 12, 0, 0, 0, time.UTC) // a Wednesday
}

func TestExtract_AllFields(t *testing.T) {
	model := &mockModel{payload: `{
		"max_price": 500,
		"city": "Istanbul",
		"category": "Concert",
		"genre": "Jazz",
		"duration": null,
		"date_range": {"start": "2025-12-12", "end": "2025-12-14"}
	}`}
	svc := New(model, fixedNow, zap.NewNop())

	got, err := svc.Extract(context.Background(), "Cheap Jazz concerts under 500 TL in Istanbul this weekend")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if got.MaxPrice == nil || *got.MaxPrice != 500 {
		t.Errorf("MaxPrice = %v", got.MaxPrice)
	}
	if got.City != "Istanbul" || got.Category != "Concert" || got.Genre != "Jazz" {
		t.Errorf("string fields = %+v", got)
	}
	if got.Duration != "" {
		t.Errorf("Duration = %q, want empty", got.Duration)
	}
	if got.DateFrom != "2025-12-12" || got.DateTo != "2025-12-14" {
		t.Errorf("date range = %q..%q", got.DateFrom, got.DateTo)
	}
}

func TestExtract_AllNull(t *testing.T) {
	model := &mockModel{payload: `{"max_price": null, "city": null, "category": null, "genre": null, "duration": null, "date_range": null}`}
	svc := New(model, fixedNow, zap.NewNop())

	got, err := svc.Extract(context.Background(), "something fun")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !got.IsEmpty() {
		t.Errorf("expected empty filters, got %+v", got)
	}
}

func TestExtract_DiscardsHallucinatedDateRange(t *testing.T) {
	model := &mockModel{payload: `{"date_range": {"start": "2025-12-12", "end": "2025-12-14"}}`}
	svc := New(model, fixedNow, zap.NewNop())

	got, err := svc.Extract(context.Background(), "jazz concerts in Istanbul")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.DateFrom != "" || got.DateTo != "" {
		t.Errorf("expected hallucinated range dropped, got %q..%q", got.DateFrom, got.DateTo)
	}
}

func TestExtract_KeepsDateRangeWithDateLanguage(t *testing.T) {
	tests := []string{
		"jazz this weekend",
		"concerts on friday",
		"hafta sonu ne var?",
		"events on 12.12",
		"events in 2026",
		"tiyatro aralık ayında",
	}

	for _, query := range tests {
		t.Run(query, func(t *testing.T) {
			model := &mockModel{payload: `{"date_range": {"start": "2025-12-12", "end": "2025-12-14"}}`}
			svc := New(model, fixedNow, zap.NewNop())

			got, err := svc.Extract(context.Background(), query)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if got.DateFrom != "2025-12-12" {
				t.Errorf("expected range kept for %q, got %+v", query, got)
			}
		})
	}
}

func TestExtract_OpenEndedRange(t *testing.T) {
	model := &mockModel{payload: `{"date_range": {"start": "2025-12-12", "end": ""}}`}
	svc := New(model, fixedNow, zap.NewNop())

	got, err := svc.Extract(context.Background(), "anything after friday")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.DateFrom != "2025-12-12" || got.DateTo != "" {
		t.Errorf("open-ended range = %q..%q", got.DateFrom, got.DateTo)
	}
}

func TestExtract_PromptCarriesCurrentDate(t *testing.T) {
	model := &mockModel{payload: `{}`}
	svc := New(model, fixedNow, zap.NewNop())

	if _, err := svc.Extract(context.Background(), "whatever"); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(model.lastPrompt, "2025-12-10 (Wednesday)") {
		t.Errorf("prompt missing current date and weekday:\n%s", model.lastPrompt)
	}
}

func TestExtract_BackendError(t *testing.T) {
	model := &mockModel{err: domain.ErrBackendUnavailable}
	svc := New(model, fixedNow, zap.NewNop())

	_, err := svc.Extract(context.Background(), "whatever")
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}
