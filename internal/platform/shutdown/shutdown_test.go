package shutdown

import (
	"context"
	"testing"
)

func TestNotifyContextNotCancelledInitially(t *testing.T) {
	ctx, cancel := NotifyContext(context.Background())
	defer cancel()

	select {
	case <-ctx.Done():
		t.Fatalf("NotifyContext: expected context not yet cancelled")
	default:
	}
}

func TestNotifyContextCancelFuncStopsNotifications(t *testing.T) {
	ctx, cancel := NotifyContext(context.Background())
	cancel()

	select {
	case <-ctx.Done():
	default:
		t.Fatalf("NotifyContext: expected context cancelled after calling cancel")
	}
}
