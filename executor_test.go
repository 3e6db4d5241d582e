package clusterkv

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"clusterkv/internal/hashslot"
)

func TestExecMovedRedirectsToNewOwner(t *testing.T) {
	fc := newFakeCluster()
	c := newTestCluster(fc, Options{})
	slot := hashslot.Of("k")
	singleSlotMap(t, c, slot, "10.0.0.1:7000")

	stale := fc.node("10.0.0.1:7000")
	stale.doErr["GET"] = fmt.Errorf("MOVED %d 10.0.0.2:7000", slot)
	fc.node("10.0.0.2:7000").data["k"] = "v"

	res, err := c.Exec(context.Background(), "GET", "k", []interface{}{"GET", "k"})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res != "v" {
		t.Fatalf("expected redirected GET to return 'v', got %v", res)
	}
}

func TestExecAskSendsAskingFirst(t *testing.T) {
	fc := newFakeCluster()
	c := newTestCluster(fc, Options{})
	slot := hashslot.Of("k")
	singleSlotMap(t, c, slot, "10.0.0.1:7000")

	fc.node("10.0.0.1:7000").doErr["GET"] = fmt.Errorf("ASK %d 10.0.0.2:7000", slot)
	target := fc.node("10.0.0.2:7000")
	target.data["k"] = "v"

	res, err := c.Exec(context.Background(), "GET", "k", []interface{}{"GET", "k"})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res != "v" {
		t.Fatalf("expected ASK-redirected GET to return 'v', got %v", res)
	}
	if !target.asked {
		t.Fatalf("expected ASKING to precede the retried command")
	}
}

func TestExecTryAgainGivesUpAfterBudget(t *testing.T) {
	fc := newFakeCluster()
	c := newTestCluster(fc, Options{})
	slot := hashslot.Of("k")
	singleSlotMap(t, c, slot, "10.0.0.1:7000")

	node := fc.node("10.0.0.1:7000")
	node.persistErr["GET"] = fmt.Errorf("TRYAGAIN")

	_, err := c.Exec(context.Background(), "GET", "k", []interface{}{"GET", "k"})
	if err != ErrTooManyRedirects {
		t.Fatalf("expected ErrTooManyRedirects, got %v", err)
	}
}

func TestExecSurfacesWellFormedServerErrors(t *testing.T) {
	fc := newFakeCluster()
	c := newTestCluster(fc, Options{})
	slot := hashslot.Of("k")
	singleSlotMap(t, c, slot, "10.0.0.1:7000")

	node := fc.node("10.0.0.1:7000")
	node.doErr["GET"] = fmt.Errorf("WRONGTYPE Operation against a key holding the wrong kind of value")

	_, err := c.Exec(context.Background(), "GET", "k", []interface{}{"GET", "k"})
	if err == nil || err.Error() != "WRONGTYPE Operation against a key holding the wrong kind of value" {
		t.Fatalf("expected the server error to surface unmodified, got %v", err)
	}
}

func TestExecRejectsEmptyKey(t *testing.T) {
	fc := newFakeCluster()
	c := newTestCluster(fc, Options{})

	_, err := c.Exec(context.Background(), "GET", "", []interface{}{"GET", ""})
	var nke *NoKeyError
	if !errors.As(err, &nke) {
		t.Fatalf("expected *NoKeyError, got %v", err)
	}
}

func TestBackoffCapsAt1280ms(t *testing.T) {
	if got := backoff(0); got != 10*time.Millisecond {
		t.Fatalf("backoff(0) = %v, want 10ms", got)
	}
	if got := backoff(20); got != 1280*time.Millisecond {
		t.Fatalf("backoff(20) = %v, want capped at 1280ms", got)
	}
}
