package services

import (
	"context"
	"testing"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/repositories/mock"
)

// stopWithin fails the test if Stop does not return before the deadline
func stopWithin(t *testing.T, cs *CleanupService, d time.Duration) {
	t.Helper()
	stopped := make(chan struct{})
	go func() {
		cs.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(d):
		t.Fatal("Stop did not return; shutdown would hang")
	}
}

func TestCleanupServiceStop_Disabled(t *testing.T) {
	cs := NewCleanupService(NewDeliveryServiceWithRepo(mock.NewDeliveryRepository()), nil, false, 30*24*time.Hour)

	// Disabled: Start never spawns the loop, Stop must still return
	cs.Start(context.Background())
	stopWithin(t, cs, 2*time.Second)
}

func TestCleanupServiceStop_Enabled(t *testing.T) {
	cs := NewCleanupService(NewDeliveryServiceWithRepo(mock.NewDeliveryRepository()), nil, true, 30*24*time.Hour)

	cs.Start(context.Background())
	stopWithin(t, cs, 2*time.Second)
}

func TestCleanupServiceRunOnce(t *testing.T) {
	delivRepo := mock.NewDeliveryRepository()
	delivRepo.DeleteFinishedBeforeFunc = func(ctx context.Context, cutoff time.Time) (int64, error) {
		if time.Since(cutoff) < 29*24*time.Hour {
			t.Errorf("Cutoff %v is inside the retention window", cutoff)
		}
		return 2, nil
	}

	cs := NewCleanupService(NewDeliveryServiceWithRepo(delivRepo), nil, true, 30*24*time.Hour)
	cs.RunOnce(context.Background())

	if len(delivRepo.Calls["DeleteFinishedBefore"]) != 1 {
		t.Error("Expected one delivery purge per pass")
	}
}
