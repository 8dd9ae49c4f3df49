//nolint:errcheck // unchecked errors are acceptable in test files
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cinewave/momoflow/internal/config"
	"github.com/cinewave/momoflow/internal/handlers"
	"github.com/cinewave/momoflow/internal/models"
	"github.com/cinewave/momoflow/internal/service"
	"github.com/cinewave/momoflow/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

// TestServer wraps the HTTP test server and its in-memory store for
// end-to-end purchase flow tests.
type TestServer struct {
	Server  *httptest.Server
	Store   *memory.Store
	Service *service.PaymentService
	t       *testing.T
}

// SetupTest creates a gateway server backed by the in-memory store with
// chaos disabled and manual approval, so tests control every decision.
func SetupTest(t *testing.T) *TestServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	seedTestWallets(t, store)

	svc, err := service.NewPaymentService(store, nil, nil, logger, config.ApprovalConfig{
		Mode: config.ApprovalModeManual,
	})
	require.NoError(t, err, "failed to create payment service")

	cfg := &config.Config{}
	router := handlers.NewRouter(svc, store, cfg, logger)
	server := httptest.NewServer(router)

	return &TestServer{
		Server:  server,
		Store:   store,
		Service: svc,
		t:       t,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.Service.Close()
}

func seedTestWallets(t *testing.T, store *memory.Store) {
	t.Helper()

	wallets := []models.Wallet{
		{Phone: "0788123456", Currency: "RWF", Balance: 100000, InstantLimit: 1000},
		{Phone: "0788000001", Currency: "RWF", Balance: 50000, InstantLimit: 0},
		{Phone: "0788999999", Currency: "RWF", Balance: 0, InstantLimit: 0},
	}
	for i := range wallets {
		require.NoError(t, store.CreateWallet(context.Background(), &wallets[i]), "failed to seed wallet")
	}
}

func jsonBody(t *testing.T, payload any) io.Reader {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func decodeJSON(resp *http.Response, out any) error {
	return json.NewDecoder(resp.Body).Decode(out)
}

// Confirm sends the manual payer decision for a pending transaction.
func (ts *TestServer) Confirm(t *testing.T, transactionID string, status models.Status, reason string) *http.Response {
	t.Helper()

	body, _ := json.Marshal(map[string]any{
		"status": status,
		"reason": reason,
	})
	req, err := http.NewRequest(http.MethodPatch,
		ts.Server.URL+"/api/v1/payments/"+transactionID+"/confirm", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// ConfirmAfter decides a pending transaction from a background goroutine
// once the delay elapses, simulating the payer approving on their handset.
func (ts *TestServer) ConfirmAfter(t *testing.T, transactionID string, status models.Status, reason string, delay time.Duration) {
	t.Helper()

	go func() {
		time.Sleep(delay)
		resp := ts.Confirm(t, transactionID, status, reason)
		resp.Body.Close()
	}()
}
