package protoerr

import (
	"errors"
	"testing"
)

func TestParseRedirectMoved(t *testing.T) {
	r, ok := ParseRedirect(errors.New("MOVED 3999 127.0.0.1:7001"))
	if !ok {
		t.Fatalf("expected MOVED to parse")
	}
	if r.Kind != "MOVED" || r.Slot != 3999 || r.Addr != "127.0.0.1:7001" {
		t.Fatalf("unexpected redirect: %+v", r)
	}
}

func TestParseRedirectAsk(t *testing.T) {
	r, ok := ParseRedirect(errors.New("ASK 3999 127.0.0.1:7001"))
	if !ok {
		t.Fatalf("expected ASK to parse")
	}
	if r.Kind != "ASK" {
		t.Fatalf("expected Kind ASK, got %s", r.Kind)
	}
}

func TestParseRedirectRejectsOtherErrors(t *testing.T) {
	if _, ok := ParseRedirect(errors.New("WRONGTYPE bad value")); ok {
		t.Fatalf("expected a non-redirect error not to parse as a redirect")
	}
	if _, ok := ParseRedirect(nil); ok {
		t.Fatalf("expected nil not to parse as a redirect")
	}
}

func TestIsTryAgainAndClusterDown(t *testing.T) {
	if !IsTryAgain(errors.New("TRYAGAIN Multiple keys request during rehashing")) {
		t.Fatalf("expected TRYAGAIN to be detected")
	}
	if !IsClusterDown(errors.New("CLUSTERDOWN Hash slot not served")) {
		t.Fatalf("expected CLUSTERDOWN to be detected")
	}
	if IsTryAgain(errors.New("MOVED 1 a:1")) {
		t.Fatalf("expected MOVED not to be classified as TRYAGAIN")
	}
}

func TestIsConnectionBroken(t *testing.T) {
	cases := []string{
		"read tcp 1.2.3.4:6379: i/o timeout",
		"EOF",
		"connection reset by peer",
		"use of closed network connection",
	}
	for _, msg := range cases {
		if !IsConnectionBroken(errors.New(msg)) {
			t.Errorf("expected %q to be classified as a broken connection", msg)
		}
	}
	if IsConnectionBroken(errors.New("WRONGTYPE Operation against a key")) {
		t.Fatalf("expected a well-formed server error not to be classified as broken")
	}
}
