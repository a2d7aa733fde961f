package sync

import (
	"log"
	"net/http"
	gosync "sync"
	"time"
)

// ConnectionManager probes ledger reachability in the background and
// fires a callback when connectivity comes back, so queued sales are
// pushed without waiting for the next timer tick.
type ConnectionManager struct {
	mu gosync.RWMutex

	healthURL string
	interval  time.Duration
	onRestore func()

	isOnline  bool
	lastCheck time.Time

	running  bool
	stopChan chan struct{}

	httpClient *http.Client
}

// NewConnectionManager creates a reachability prober for the ledger URL
func NewConnectionManager(ledgerURL string, interval time.Duration, onRestore func()) *ConnectionManager {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ConnectionManager{
		healthURL: ledgerURL + "/health",
		interval:  interval,
		onRestore: onRestore,
		stopChan:  make(chan struct{}),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Start begins background health checking
func (cm *ConnectionManager) Start() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.running {
		return
	}
	cm.running = true
	// Stop closed the previous channel; make a fresh one so a
	// restarted prober's loop does not exit immediately.
	cm.stopChan = make(chan struct{})
	go cm.healthCheckLoop(cm.stopChan)
}

// Stop stops background health checking
func (cm *ConnectionManager) Stop() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.running {
		return
	}
	cm.running = false
	close(cm.stopChan)
}

// IsOnline reports the last observed reachability
func (cm *ConnectionManager) IsOnline() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.isOnline
}

// LastCheck returns when the ledger was last probed
func (cm *ConnectionManager) LastCheck() time.Time {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.lastCheck
}

func (cm *ConnectionManager) healthCheckLoop(stop <-chan struct{}) {
	// Probe immediately so the first sync does not wait a full interval
	cm.checkOnce()

	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.checkOnce()
		case <-stop:
			return
		}
	}
}

// checkOnce probes the ledger health endpoint and tracks transitions
func (cm *ConnectionManager) checkOnce() {
	online := false
	resp, err := cm.httpClient.Get(cm.healthURL)
	if err == nil {
		resp.Body.Close()
		online = resp.StatusCode < 500
	}

	cm.mu.Lock()
	wasOnline := cm.isOnline
	cm.isOnline = online
	cm.lastCheck = time.Now()
	cm.mu.Unlock()

	switch {
	case !wasOnline && online:
		log.Println("📶 Ledger is reachable")
		if cm.onRestore != nil {
			cm.onRestore()
		}
	case wasOnline && !online:
		log.Println("📴 Ledger is unreachable, sales will queue locally")
	}
}
