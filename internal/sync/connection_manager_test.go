package sync

import (
	"testing"
	"time"
)

func TestConnectionManagerRestartAfterStop(t *testing.T) {
	cm := NewConnectionManager("http://ledger.test", time.Hour, nil)

	cm.Start()
	cm.Stop()
	cm.Start()
	defer cm.Stop()

	select {
	case <-cm.stopChan:
		t.Fatal("restarted prober's stop channel is already closed")
	default:
	}
}
