// Package sync implements the offline sale synchronization engine: the
// push protocol that submits locally captured sales to the central
// ledger, the reconciliation poll that repairs local drift, and the
// deduplication guard that heals falsely rejected submissions.
package sync

import (
	"context"
	"fmt"
	"log"
	gosync "sync"
	"time"

	"github.com/ventamovil/posync/internal/config"
	"github.com/ventamovil/posync/internal/ledger"
	"github.com/ventamovil/posync/internal/session"
)

// SyncEngine orchestrates the push, poll and dedup protocols. The three
// never run concurrently for the same agent: a sync-in-progress flag
// gates re-entrant invocations.
type SyncEngine struct {
	mu gosync.Mutex

	store   SaleStore
	ledger  LedgerAPI
	cfg     config.SyncConfig
	events  EventSink
	connMgr *ConnectionManager

	// Session of the currently logged-in seller, used by timer-driven
	// cycles. Protocol entry points take their session explicitly.
	current *session.Session

	isRunning      bool
	syncInProgress bool
	lastPush       time.Time
	lastPoll       time.Time

	stopChan chan struct{}
}

// NewEngine creates a sync engine. ledgerURL is only used for
// reachability probing; events may be nil.
func NewEngine(store SaleStore, api LedgerAPI, cfg config.SyncConfig, ledgerURL string, events EventSink) *SyncEngine {
	if events == nil {
		events = noopSink{}
	}
	e := &SyncEngine{
		store:    store,
		ledger:   api,
		cfg:      cfg,
		events:   events,
		stopChan: make(chan struct{}),
	}
	interval := time.Duration(cfg.HealthCheckInterval) * time.Second
	e.connMgr = NewConnectionManager(ledgerURL, interval, e.onConnectivityRestored)
	return e
}

// Start begins the automatic sync loops
func (e *SyncEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isRunning {
		return fmt.Errorf("sync engine already running")
	}
	e.isRunning = true
	// Stop closed the previous channel; a restarted engine needs a
	// fresh one or its loops exit immediately.
	e.stopChan = make(chan struct{})
	stop := e.stopChan

	log.Println("🔄 Sync Engine starting...")
	e.connMgr.Start()

	if e.cfg.AutoSyncEnabled {
		go e.autoSyncLoop(stop)
	}
	if e.cfg.SyncOnStartup {
		go func() {
			time.Sleep(5 * time.Second) // Wait for initialization
			e.runCycle("startup")
		}()
	}

	log.Println("✅ Sync Engine started")
	return nil
}

// Stop stops the automatic loops. An in-flight cycle is not cancelled;
// it finishes on its own.
func (e *SyncEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isRunning {
		return
	}
	log.Println("🛑 Stopping Sync Engine...")
	e.isRunning = false
	close(e.stopChan)
	e.connMgr.Stop()
	log.Println("✅ Sync Engine stopped")
}

// SetSession registers the session used for timer-driven cycles
func (e *SyncEngine) SetSession(sess *session.Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = sess
}

// CurrentSession returns the registered session, nil when logged out
func (e *SyncEngine) CurrentSession() *session.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// invalidateSession drops the current session after the ledger rejected
// its token. The seller has to log in again.
func (e *SyncEngine) invalidateSession(sess *session.Session) {
	e.mu.Lock()
	if e.current != nil && (sess == nil || e.current.Token == sess.Token) {
		e.current = nil
	}
	e.mu.Unlock()

	log.Println("🚫 Ledger rejected session token, forcing logout")
	e.events.BroadcastEvent("session_invalidated", nil)
}

// begin claims the single-flight gate; false means a cycle is running
func (e *SyncEngine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.syncInProgress {
		return false
	}
	e.syncInProgress = true
	return true
}

func (e *SyncEngine) end() {
	e.mu.Lock()
	e.syncInProgress = false
	e.mu.Unlock()
}

// IsSyncing reports whether a protocol cycle is currently running
func (e *SyncEngine) IsSyncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncInProgress
}

// PendingCount returns how many of the seller's records await sync or review
func (e *SyncEngine) PendingCount(sellerID string) (int64, error) {
	return e.store.CountPending(sellerID)
}

// SyncNow pushes the seller's eligible records to the ledger. Returns
// ErrSyncInProgress without touching any record when another cycle is
// already running.
func (e *SyncEngine) SyncNow(ctx context.Context, sess *session.Session) (*ledger.SyncResult, error) {
	if !e.begin() {
		log.Println("⏳ Sync already in progress, skipping request")
		return nil, ErrSyncInProgress
	}
	defer e.end()

	result, err := e.pushPending(ctx, sess)
	if err == nil {
		e.mu.Lock()
		e.lastPush = time.Now()
		e.mu.Unlock()
	}
	return result, err
}

// CheckStatus polls the ledger for the current state of already-submitted
// records and repairs local drift. targetSellerID is only honored for
// reviewer sessions; empty means the session's own seller.
func (e *SyncEngine) CheckStatus(ctx context.Context, sess *session.Session, targetSellerID string) (*ReconcileReport, error) {
	if !e.begin() {
		log.Println("⏳ Sync already in progress, skipping status check")
		return nil, ErrSyncInProgress
	}
	defer e.end()

	report, err := e.reconcile(ctx, sess, targetSellerID)
	if err == nil {
		e.mu.Lock()
		e.lastPoll = time.Now()
		e.mu.Unlock()
	}
	return report, err
}

// RunDedup runs the deduplication guard on its own. It also runs
// best-effort at the end of every push.
func (e *SyncEngine) RunDedup(ctx context.Context, sess *session.Session) (*DedupReport, error) {
	if !e.begin() {
		return nil, ErrSyncInProgress
	}
	defer e.end()

	return e.dedupPass(ctx, sess)
}

// GetSyncStatus returns the engine's observable state
func (e *SyncEngine) GetSyncStatus() map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	return map[string]interface{}{
		"is_running":       e.isRunning,
		"sync_in_progress": e.syncInProgress,
		"last_push":        e.lastPush,
		"last_poll":        e.lastPoll,
		"is_online":        e.connMgr.IsOnline(),
		"has_session":      e.current != nil,
	}
}

// onConnectivityRestored fires when the ledger becomes reachable again
func (e *SyncEngine) onConnectivityRestored() {
	log.Println("📶 Connectivity restored, triggering sync")
	go e.runCycle("connectivity")
}

// autoSyncLoop periodically pushes and polls using the current session
func (e *SyncEngine) autoSyncLoop(stop <-chan struct{}) {
	pushTicker := time.NewTicker(time.Duration(e.cfg.AutoSyncInterval) * time.Second)
	pollTicker := time.NewTicker(time.Duration(e.cfg.PollInterval) * time.Second)
	defer pushTicker.Stop()
	defer pollTicker.Stop()

	for {
		select {
		case <-pushTicker.C:
			e.runCycle("timer")
		case <-pollTicker.C:
			e.runPoll("timer")
		case <-stop:
			return
		}
	}
}

// runCycle performs one push for the current session, if any
func (e *SyncEngine) runCycle(trigger string) {
	sess := e.CurrentSession()
	if sess == nil {
		log.Printf("⏭️  Auto-sync (%s): no active session, skipping", trigger)
		return
	}

	ctx, cancel := e.cycleContext()
	defer cancel()

	result, err := e.SyncNow(ctx, sess)
	if err != nil {
		if err != ErrSyncInProgress {
			log.Printf("⚠️ Auto-sync (%s) failed: %v", trigger, err)
		}
		return
	}
	log.Printf("✅ Auto-sync (%s): %d synced, %d need review", trigger, result.Synced, result.ReviewRequired)
}

// runPoll performs one reconciliation poll for the current session
func (e *SyncEngine) runPoll(trigger string) {
	sess := e.CurrentSession()
	if sess == nil {
		return
	}

	ctx, cancel := e.cycleContext()
	defer cancel()

	report, err := e.CheckStatus(ctx, sess, "")
	if err != nil {
		if err != ErrSyncInProgress {
			log.Printf("⚠️ Auto-poll (%s) failed: %v", trigger, err)
		}
		return
	}
	if report.Updated > 0 || report.Removed > 0 {
		log.Printf("🔄 Auto-poll (%s): %d updated, %d removed", trigger, report.Updated, report.Removed)
	}
}

func (e *SyncEngine) cycleContext() (context.Context, context.CancelFunc) {
	timeout := time.Duration(e.cfg.RequestTimeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	// Budget for the batch call plus per-record canonical fetches
	return context.WithTimeout(context.Background(), 4*timeout)
}
