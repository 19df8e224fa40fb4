/*
fake.go - In-memory Platform for tests and the simulator

PURPOSE:
  A scriptable stand-in for the platform billing service. Tests queue
  purchase results per product, push update-stream deliveries by hand,
  and inspect which transactions were finished (and how many times).

  Exported rather than hidden in a _test file because the purchase
  simulator drives the full pipeline against it as well.
*/
package billing

import (
	"context"
	"fmt"
	"sync"
)

// FakePlatform is an in-memory Platform and ReceiptStore implementation.
// Zero value is not usable; construct with NewFakePlatform.
type FakePlatform struct {
	mu sync.Mutex

	// queued purchase results, popped in FIFO order per product
	purchases map[string][]PurchaseResult

	// update stream
	updates chan VerificationResult

	// finish acks per transaction id
	finished map[string]int

	// legacy receipt state
	receipt        []byte
	refreshInstall []byte
	refreshErr     error
}

// NewFakePlatform returns a fake with an update stream buffer large enough
// for test scenarios to push deliveries without a consumer running yet.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		purchases: make(map[string][]PurchaseResult),
		updates:   make(chan VerificationResult, 16),
		finished:  make(map[string]int),
	}
}

// =============================================================================
// SCRIPTING
// =============================================================================

// QueuePurchase queues the next result Purchase will return for a product.
func (f *FakePlatform) QueuePurchase(productID string, res PurchaseResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purchases[productID] = append(f.purchases[productID], res)
}

// Deliver pushes a verification result onto the update stream, as the
// platform does when re-delivering an unfinished transaction.
func (f *FakePlatform) Deliver(res VerificationResult) {
	f.updates <- res
}

// CloseUpdates ends the update stream.
func (f *FakePlatform) CloseUpdates() {
	close(f.updates)
}

// SetReceipt installs a cached receipt blob. nil clears it.
func (f *FakePlatform) SetReceipt(raw []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipt = raw
}

// SetRefreshResult controls RefreshReceipt: on success the given blob is
// installed as the cached receipt; err, when non-nil, is returned instead.
func (f *FakePlatform) SetRefreshResult(raw []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshInstall = raw
	f.refreshErr = err
}

// =============================================================================
// INSPECTION
// =============================================================================

// FinishCount returns how many times a transaction was finished.
func (f *FakePlatform) FinishCount(transactionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished[transactionID]
}

// Finished reports whether a transaction was acknowledged at least once.
func (f *FakePlatform) Finished(transactionID string) bool {
	return f.FinishCount(transactionID) > 0
}

// =============================================================================
// PLATFORM IMPLEMENTATION
// =============================================================================

func (f *FakePlatform) Purchase(ctx context.Context, productID string) (PurchaseResult, error) {
	if err := ctx.Err(); err != nil {
		return PurchaseResult{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	queue := f.purchases[productID]
	if len(queue) == 0 {
		return PurchaseResult{}, fmt.Errorf("fake platform: no purchase result queued for product %q", productID)
	}
	res := queue[0]
	f.purchases[productID] = queue[1:]
	return res, nil
}

func (f *FakePlatform) Updates(ctx context.Context) <-chan VerificationResult {
	return f.updates
}

func (f *FakePlatform) Finish(ctx context.Context, transactionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished[transactionID]++
	return nil
}

// =============================================================================
// RECEIPT STORE IMPLEMENTATION
// =============================================================================

func (f *FakePlatform) CachedReceipt(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipt, nil
}

func (f *FakePlatform) RefreshReceipt(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return f.refreshErr
	}
	if f.refreshInstall != nil {
		f.receipt = f.refreshInstall
	}
	return nil
}

// Compile-time interface checks.
var (
	_ Platform     = (*FakePlatform)(nil)
	_ ReceiptStore = (*FakePlatform)(nil)
)
