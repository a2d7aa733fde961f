package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ventamovil/posync/internal/models"
	"github.com/ventamovil/posync/internal/session"
)

func testSession() *session.Session {
	return &session.Session{Token: "test-token", SellerID: "seller-1"}
}

func TestPushSales(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Sales []models.OfflineSaleRecord `json:"sales"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sales/sync" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(SyncResult{
			Synced:         1,
			ReviewRequired: 0,
			Results: []SyncOutcome{
				{ID: "a1", Status: "CONFIRMED", Folio: "F-001"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	result, err := client.PushSales(context.Background(), testSession(), []models.OfflineSaleRecord{
		{ID: "a1", SellerID: "seller-1", Status: models.SaleStatusPendingSync},
	})
	if err != nil {
		t.Fatalf("PushSales failed: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization mismatch: got %q", gotAuth)
	}
	if len(gotBody.Sales) != 1 || gotBody.Sales[0].ID != "a1" {
		t.Errorf("request body mismatch: %+v", gotBody.Sales)
	}
	if result.Synced != 1 || len(result.Results) != 1 {
		t.Errorf("result mismatch: %+v", result)
	}
	if result.Results[0].Folio != "F-001" {
		t.Errorf("folio mismatch: got %s, want F-001", result.Results[0].Folio)
	}
}

func TestPushSalesUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.PushSales(context.Background(), testSession(), nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestPushSalesMalformedResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// outcome without a status
		json.NewEncoder(w).Encode(map[string]interface{}{
			"synced":  1,
			"results": []map[string]string{{"id": "a1"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.PushSales(context.Background(), testSession(), nil)

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestPushSalesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.PushSales(context.Background(), testSession(), nil)

	var srvErr *ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if srvErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode mismatch: got %d", srvErr.StatusCode)
	}
}

func TestPushSalesTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := NewClient(server.URL, time.Second)
	_, err := client.PushSales(context.Background(), testSession(), nil)

	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestDoRejectsInvalidSession(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.PushSales(context.Background(), nil, nil)
	if !session.IsAuthenticationError(err) {
		t.Errorf("expected AuthenticationError, got %v", err)
	}
	if called {
		t.Error("no request should reach the server without a session")
	}
}

func TestSaleByFolio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sales" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("folio"); got != "F-001" {
			t.Errorf("folio query mismatch: got %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "1" {
			t.Errorf("limit query mismatch: got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sales": []RemoteSale{
				{UUID: "a1", Status: "CONFIRMED", Folio: "F-001", GrandTotal: 34.80},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	sale, err := client.SaleByFolio(context.Background(), testSession(), "F-001")
	if err != nil {
		t.Fatalf("SaleByFolio failed: %v", err)
	}
	if sale.UUID != "a1" || sale.GrandTotal != 34.80 {
		t.Errorf("sale mismatch: %+v", sale)
	}
}

func TestSaleByFolioNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"sales": []RemoteSale{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.SaleByFolio(context.Background(), testSession(), "F-404")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty folio match, got %v", err)
	}
}

func TestSaleByUUIDNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.SaleByUUID(context.Background(), testSession(), "a1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOfflineStatusValidatesBoundary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// sale without a status
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sales": []map[string]interface{}{{"uuid": "a1"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.OfflineStatus(context.Background(), testSession(), "")

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestOfflineStatusSellerScope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sellerId"); got != "seller-2" {
			t.Errorf("sellerId query mismatch: got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sales": []RemoteSale{{UUID: "b2", Status: "CONFIRMED"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	sales, err := client.OfflineStatus(context.Background(), testSession(), "seller-2")
	if err != nil {
		t.Fatalf("OfflineStatus failed: %v", err)
	}
	if len(sales) != 1 || sales[0].UUID != "b2" {
		t.Errorf("sales mismatch: %+v", sales)
	}
}

func TestResolveConflict(t *testing.T) {
	var gotAction models.ConflictResolutionAction
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sales/conflicts/resolve" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotAction); err != nil {
			t.Errorf("Failed to decode action: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	err := client.ResolveConflict(context.Background(), testSession(), models.ConflictResolutionAction{
		Action: models.ConflictActionCancel,
		SaleID: "a1",
	})
	if err != nil {
		t.Fatalf("ResolveConflict failed: %v", err)
	}
	if gotAction.SaleID != "a1" || gotAction.Action != models.ConflictActionCancel {
		t.Errorf("action mismatch: %+v", gotAction)
	}
}
