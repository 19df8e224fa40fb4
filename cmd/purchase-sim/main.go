/*
main.go - End-to-end purchase pipeline simulator

PURPOSE:
  Runs the full client pipeline (purchase flow, update listener,
  coordinator, ledger client) against an in-process ledger service
  and a scripted fake platform. Useful for eyeballing the pipeline's
  behavior without a device or a deployed ledger.

SCENARIOS:
  happy   purchase succeeds on the first signed redemption
  retry   the first redemption attempt hits a transport failure, the
          transaction stays unfinished, and the platform's re-delivery
          completes it - balance ends at the pack value, not double
  legacy  the signed endpoint rejects, the receipt fallback grants

USAGE:
  purchase-sim -scenario=happy
  purchase-sim -scenario=all
*/
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/waveform/credit-engine/api"
	"github.com/waveform/credit-engine/billing"
	"github.com/waveform/credit-engine/catalog"
	"github.com/waveform/credit-engine/grant"
	"github.com/waveform/credit-engine/ledger"
	"github.com/waveform/credit-engine/purchase"
	"github.com/waveform/credit-engine/redeem"
	"github.com/waveform/credit-engine/store/memory"
)

func main() {
	scenario := flag.String("scenario", "all", "happy|retry|legacy|all")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	scenarios := []string{"happy", "retry", "legacy"}
	if *scenario != "all" {
		scenarios = []string{*scenario}
	}

	for _, name := range scenarios {
		fmt.Printf("\n=== scenario: %s ===\n", name)
		if err := run(name, log); err != nil {
			log.Fatal().Err(err).Str("scenario", name).Msg("scenario failed")
		}
	}
}

// faultTransport fails a fixed number of requests, optionally only those
// whose path matches. Everything else passes through.
type faultTransport struct {
	base      http.RoundTripper
	mu        sync.Mutex
	path      string // "" matches every path
	remaining int
	reject    bool // true: return 502 instead of a transport error
}

func (t *faultTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	match := t.remaining > 0 && (t.path == "" || strings.HasPrefix(req.URL.Path, t.path))
	if match {
		t.remaining--
	}
	t.mu.Unlock()

	if !match {
		return t.base.RoundTrip(req)
	}
	if t.reject {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       http.NoBody,
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}
	return nil, fmt.Errorf("simulated transport failure on %s", req.URL.Path)
}

func run(scenario string, log zerolog.Logger) error {
	packs := catalog.Default()

	// In-process ledger service.
	st := memory.New()
	server := httptest.NewServer(api.NewRouter(api.NewHandler(grant.NewService(st, packs, log))))
	defer server.Close()

	// Per-scenario fault injection on the client transport.
	transport := &faultTransport{base: http.DefaultTransport}
	switch scenario {
	case "retry":
		transport.remaining = 1 // first call dies on the wire
	case "legacy":
		transport.path = "/v1/redeem/signed"
		transport.remaining = 1000 // signed endpoint permanently down
		transport.reject = true
	}

	client := ledger.NewClient(server.URL,
		ledger.WithHTTPClient(&http.Client{Transport: transport, Timeout: 10 * time.Second}))

	// Platform and pipeline wiring.
	deviceID := uuid.NewString()
	platform := billing.NewFakePlatform()
	resolver := billing.NewReceiptResolver(platform, log)
	coord := redeem.New(client, resolver, packs, log)
	state := purchase.NewStateOwner()
	defer state.Close()
	events := purchase.NewBroadcaster()

	mgr := purchase.NewManager(purchase.Config{
		Platform:    platform,
		Coordinator: coord,
		Balances:    client,
		Catalog:     packs,
		State:       state,
		Events:      events,
		DeviceID:    deviceID,
		Log:         log,
	})

	completed, cancelSub := events.Subscribe()
	defer cancelSub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		_ = mgr.Run(ctx)
	}()

	// One credits_10 purchase.
	txID := uuid.NewString()
	tx := billing.Transaction{
		ID:          txID,
		ProductID:   "credits_10",
		Environment: billing.EnvSandbox,
		PurchasedAt: time.Now(),
		SignedPayload: grant.EncodeToken(grant.Token{
			TransactionID: txID,
			ProductID:     "credits_10",
		}),
	}
	if scenario == "legacy" {
		// The cached blob is the raw receipt JSON; the resolver base64-encodes
		// it for the wire. It carries the transaction the signed path couldn't
		// redeem.
		raw, merr := json.Marshal(grant.Receipt{
			Transactions: []grant.Token{{TransactionID: tx.ID, ProductID: tx.ProductID}},
		})
		if merr != nil {
			return fmt.Errorf("marshal receipt: %w", merr)
		}
		platform.SetReceipt(raw)
	}
	platform.QueuePurchase("credits_10", billing.PurchaseResult{
		Outcome:      billing.OutcomeCompleted,
		Verification: billing.Verified(tx),
	})

	err := mgr.Buy(ctx, "credits_10")
	fmt.Printf("buy: err=%v lastError=%q\n", err, state.Snapshot().LastError)

	if err != nil && scenario == "retry" {
		// The platform re-delivers the unfinished transaction.
		fmt.Println("re-delivering unfinished transaction via update stream")
		platform.Deliver(billing.Verified(tx))
		select {
		case <-completed:
		case <-time.After(5 * time.Second):
			return fmt.Errorf("re-delivery never completed")
		}
	}

	balance, err := client.FetchServerBalance(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("fetch balance: %w", err)
	}
	fmt.Printf("final: balance=%d finished=%v finishCount=%d lastError=%q\n",
		balance, platform.Finished(tx.ID), platform.FinishCount(tx.ID), state.Snapshot().LastError)

	cancel()
	platform.CloseUpdates()
	<-listenerDone
	return nil
}
