package quote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T, svc *Service) (*chi.Mux, *Handler) {
	t.Helper()
	handler := NewHandler(HandlerConfig{Service: svc})
	r := chi.NewRouter()
	r.Post("/api/v1/quotes/preview", handler.Preview)
	r.Post("/api/v1/quotes", handler.Create)
	r.Get("/api/v1/quotes", handler.List)
	r.Get("/api/v1/quotes/{id}", handler.Get)
	r.Put("/api/v1/quotes/{id}", handler.Update)
	r.Patch("/api/v1/quotes/{id}/status", handler.SetStatus)
	r.Get("/api/v1/quotes/{id}/history", handler.History)
	return r, handler
}

func TestPreviewEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, newTestService(t, newMemStore(), nil))

	body := `{
		"clientName": "Acme Mailing",
		"quantity": 15000,
		"lines": [{"rateCardId": "card-print"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/preview", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Data struct {
			Reference string `json:"reference"`
			Totals    struct {
				Total string `json:"total"`
			} `json:"totals"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Reference != "" {
		t.Fatalf("preview must not carry a reference, got %q", resp.Data.Reference)
	}
	if resp.Data.Totals.Total != "514.95" {
		t.Fatalf("unexpected total %q", resp.Data.Totals.Total)
	}
}

func TestCreateEndpointValidation(t *testing.T) {
	router, _ := newTestRouter(t, newTestService(t, newMemStore(), nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(`{"clientName":"Acme"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "VALIDATION" {
		t.Fatalf("unexpected error code %q", resp.Error.Code)
	}
}

func TestNoBandMapsTo422(t *testing.T) {
	router, _ := newTestRouter(t, newTestService(t, newMemStore(), nil))

	body := `{
		"clientName": "Acme Mailing",
		"quantity": 50000,
		"lines": [{"rateCardId": "card-narrow"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				RateCardCode string `json:"rateCardCode"`
				Quantity     int    `json:"quantity"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "NO_PRICING_BAND" {
		t.Fatalf("unexpected code %q", resp.Error.Code)
	}
	if resp.Error.Details.RateCardCode != "ENV-C5" || resp.Error.Details.Quantity != 50000 {
		t.Fatalf("unexpected details %+v", resp.Error.Details)
	}
}

func TestUnknownQuoteMapsTo404(t *testing.T) {
	router, _ := newTestRouter(t, newTestService(t, newMemStore(), nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes/6a5f0f36-91c8-4b33-a30e-1a0c2b8c4c55", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, nil)
	router, _ := newTestRouter(t, svc)

	created, err := svc.Create(context.Background(), basicInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/quotes/"+created.ID.String()+"/status",
		strings.NewReader(`{"status":"sent"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	if store.quotes[created.ID].Status != StatusSent {
		t.Fatalf("status not updated: %s", store.quotes[created.ID].Status)
	}

	bad := httptest.NewRequest(http.MethodPatch, "/api/v1/quotes/"+created.ID.String()+"/status",
		strings.NewReader(`{"status":"ARCHIVED"}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, bad)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}
