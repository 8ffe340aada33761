package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mealtab/kitty/internal/ledger"
	"github.com/mealtab/kitty/internal/models"
	"github.com/mealtab/kitty/internal/storage/sqlite"
)

func newTestMux(t *testing.T) (*http.ServeMux, *ledger.Service) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "kitty-api-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := ledger.DefaultConfig()
	cfg.MinimumBalance = decimal.NewFromInt(-100)
	svc := ledger.New(store, cfg)

	mux := http.NewServeMux()
	NewHandler(svc).Register(mux)
	return mux, svc
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func ensureUser(t *testing.T, svc *ledger.Service, userID string) {
	t.Helper()
	if _, err := svc.EnsureAccount(context.Background(), models.UserRef(userID)); err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}
}

func TestResolveAccount(t *testing.T) {
	mux, svc := newTestMux(t)

	t.Run("missing query parameter", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/api/accounts/resolve", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown holder", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/api/accounts/resolve?user=ghost", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("existing holder", func(t *testing.T) {
		ensureUser(t, svc, "alice")
		rec := doJSON(t, mux, http.MethodGet, "/api/accounts/resolve?user=alice", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var resp accountResponse
		decodeResponse(t, rec, &resp)
		if resp.ID == "" {
			t.Error("response has no account ID")
		}
		if resp.Holder.User != "alice" {
			t.Errorf("holder = %+v, want user alice", resp.Holder)
		}
	})
}

func TestTransferAndBalance(t *testing.T) {
	mux, svc := newTestMux(t)
	ensureUser(t, svc, "alice")
	ensureUser(t, svc, "bob")

	// External deposit: no source.
	rec := doJSON(t, mux, http.MethodPost, "/api/transfers", transferRequest{
		Target: entityRefJSON{User: "alice"},
		Amount: "10.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("deposit status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/transfers", transferRequest{
		Source:      entityRefJSON{User: "alice"},
		Target:      entityRefJSON{User: "bob"},
		Amount:      "2.50",
		Description: "snacks",
		CreatedBy:   "alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("transfer status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var tx fixedTransactionJSON
	decodeResponse(t, rec, &tx)
	if tx.Amount != "2.50" {
		t.Errorf("transaction amount = %s, want 2.50", tx.Amount)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/balance?user=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance status = %d, want 200", rec.Code)
	}
	var balance balanceResponse
	decodeResponse(t, rec, &balance)
	if balance.Balance != "7.50" || balance.BalanceFixed != "7.50" {
		t.Errorf("alice balance = %+v, want 7.50/7.50", balance)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/balances", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balances status = %d, want 200", rec.Code)
	}
	var rows []userBalanceJSON
	decodeResponse(t, rec, &rows)
	if len(rows) != 2 {
		t.Fatalf("got %d balance rows, want 2", len(rows))
	}
}

func TestTransferValidationStatus(t *testing.T) {
	mux, svc := newTestMux(t)
	ensureUser(t, svc, "alice")

	cases := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{
			"malformed body",
			"{not json",
			http.StatusBadRequest,
		},
		{
			"malformed amount",
			transferRequest{Target: entityRefJSON{User: "alice"}, Amount: "ten"},
			http.StatusBadRequest,
		},
		{
			"same source and target",
			transferRequest{Source: entityRefJSON{User: "alice"}, Target: entityRefJSON{User: "alice"}, Amount: "1.00"},
			http.StatusBadRequest,
		},
		{
			"unknown target",
			transferRequest{Target: entityRefJSON{User: "ghost"}, Amount: "1.00"},
			http.StatusNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, mux, http.MethodPost, "/api/transfers", tc.body)
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestCancelTransaction(t *testing.T) {
	mux, svc := newTestMux(t)
	ensureUser(t, svc, "alice")
	ensureUser(t, svc, "bob")

	rec := doJSON(t, mux, http.MethodPost, "/api/transfers", transferRequest{
		Source: entityRefJSON{User: "alice"},
		Target: entityRefJSON{User: "bob"},
		Amount: "4.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("transfer status = %d, want 201", rec.Code)
	}
	var tx fixedTransactionJSON
	decodeResponse(t, rec, &tx)

	cancelPath := fmt.Sprintf("/api/transactions/%s/cancel", tx.ID)
	body := map[string]string{"cancelled_by": "bob"}

	rec = doJSON(t, mux, http.MethodPost, cancelPath, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var cancelled fixedTransactionJSON
	decodeResponse(t, rec, &cancelled)
	if cancelled.Cancelled == nil || cancelled.CancelledBy != "bob" {
		t.Errorf("cancellation not recorded: %+v", cancelled)
	}

	rec = doJSON(t, mux, http.MethodPost, cancelPath, body)
	if rec.Code != http.StatusConflict {
		t.Errorf("second cancel status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/transactions/no-such-id/cancel", body)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing transaction cancel status = %d, want 404", rec.Code)
	}
}

func TestPendingEndpoints(t *testing.T) {
	mux, svc := newTestMux(t)
	ensureUser(t, svc, "alice")
	ensureUser(t, svc, "bob")

	rec := doJSON(t, mux, http.MethodPost, "/api/pending", pendingRequest{
		Source:    entityRefJSON{User: "alice"},
		Target:    entityRefJSON{User: "bob"},
		Amount:    "3.00",
		CreatedBy: "alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var pending pendingTransactionJSON
	decodeResponse(t, rec, &pending)
	if !pending.ConfirmMoment.After(pending.OrderMoment) {
		t.Errorf("expiry %v not after order moment %v", pending.ConfirmMoment, pending.OrderMoment)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/balance?user=alice", nil)
	var balance balanceResponse
	decodeResponse(t, rec, &balance)
	if balance.Balance != "-3.00" || balance.BalanceFixed != "0.00" {
		t.Errorf("alice balance = %+v, want -3.00/0.00", balance)
	}

	rec = doJSON(t, mux, http.MethodPut, "/api/pending/"+pending.ID, map[string]string{
		"amount":      "4.50",
		"description": "corrected",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var updated pendingTransactionJSON
	decodeResponse(t, rec, &updated)
	if updated.Amount != "4.50" || updated.Description != "corrected" {
		t.Errorf("update not applied: %+v", updated)
	}

	rec = doJSON(t, mux, http.MethodDelete, "/api/pending/"+pending.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/balance?user=alice", nil)
	decodeResponse(t, rec, &balance)
	if balance.Balance != "0.00" {
		t.Errorf("alice balance after delete = %s, want 0.00", balance.Balance)
	}
}

func TestNegativeSinceEndpoint(t *testing.T) {
	mux, svc := newTestMux(t)
	ensureUser(t, svc, "alice")
	ensureUser(t, svc, "bob")

	rec := doJSON(t, mux, http.MethodGet, "/api/negative-since?user=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		NegativeSince *string `json:"negative_since"`
	}
	decodeResponse(t, rec, &resp)
	if resp.NegativeSince != nil {
		t.Errorf("negative_since = %v, want null", *resp.NegativeSince)
	}

	if rec := doJSON(t, mux, http.MethodPost, "/api/transfers", transferRequest{
		Source: entityRefJSON{User: "alice"},
		Target: entityRefJSON{User: "bob"},
		Amount: "6.00",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("transfer status = %d, want 201", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/negative-since?user=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	decodeResponse(t, rec, &resp)
	if resp.NegativeSince == nil {
		t.Error("expected a negative_since moment, got null")
	}
}

func TestFinalizeEndpoints(t *testing.T) {
	mux, svc := newTestMux(t)
	ensureUser(t, svc, "alice")
	ensureUser(t, svc, "bob")

	t.Run("explicit empty object", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/pending/finalize", map[string]any{})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		var finalized []fixedTransactionJSON
		decodeResponse(t, rec, &finalized)
		if len(finalized) != 0 {
			t.Errorf("finalized %d transactions, want 0", len(finalized))
		}
	})

	// The catch-up endpoints are meant to be hit by cron-style callers
	// that send no body at all.
	t.Run("missing body means defaults", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/pending/finalize", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("pending finalize status = %d, want 200: %s", rec.Code, rec.Body.String())
		}

		rec = doJSON(t, mux, http.MethodPost, "/api/dining/finalize", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("dining finalize status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("malformed body still rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/pending/finalize", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
