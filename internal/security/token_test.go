package security

import (
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTokenIssuer_SingleUse(t *testing.T) {
	issuer := NewTokenIssuer(time.Hour)

	token := issuer.Issue()
	if token == "" {
		t.Fatal("Issue returned an empty token")
	}

	if !issuer.ValidateAndConsume(token) {
		t.Error("first validation should succeed")
	}
	if issuer.ValidateAndConsume(token) {
		t.Error("second validation of a consumed token should fail")
	}
}

func TestTokenIssuer_UnknownToken(t *testing.T) {
	issuer := NewTokenIssuer(time.Hour)

	if issuer.ValidateAndConsume("never-issued") {
		t.Error("unknown token should fail validation")
	}
}

func TestTokenIssuer_TokensAreUnique(t *testing.T) {
	issuer := NewTokenIssuer(time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := issuer.Issue()
		if seen[token] {
			t.Fatalf("duplicate token issued: %s", token)
		}
		seen[token] = true
	}
}

func TestTokenIssuer_Expiry(t *testing.T) {
	now := epoch
	issuer := NewTokenIssuer(time.Hour)
	issuer.now = func() time.Time { return now }

	token := issuer.Issue()

	now = epoch.Add(time.Hour + time.Second)
	if issuer.ValidateAndConsume(token) {
		t.Error("expired token should fail validation even if never consumed")
	}
}

func TestTokenIssuer_ExactlyMaxAgeStillValid(t *testing.T) {
	now := epoch
	issuer := NewTokenIssuer(time.Hour)
	issuer.now = func() time.Time { return now }

	token := issuer.Issue()

	now = epoch.Add(time.Hour)
	if !issuer.ValidateAndConsume(token) {
		t.Error("token at exactly max age should still validate")
	}
}

func TestTokenIssuer_SweepPurgesStale(t *testing.T) {
	now := epoch
	issuer := NewTokenIssuer(time.Hour)
	issuer.now = func() time.Time { return now }

	issuer.Issue()
	consumed := issuer.Issue()
	issuer.ValidateAndConsume(consumed)

	now = epoch.Add(2 * time.Hour)
	issuer.Issue()

	issuer.mu.Lock()
	size := len(issuer.tokens)
	issuer.mu.Unlock()
	if size != 1 {
		t.Errorf("token store size = %d after sweep, want 1", size)
	}
}

func TestTokenIssuer_ConcurrentConsumeExactlyOnce(t *testing.T) {
	issuer := NewTokenIssuer(time.Hour)
	token := issuer.Issue()

	const goroutines = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if issuer.ValidateAndConsume(token) {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Errorf("%d concurrent validations succeeded, want exactly 1", successes)
	}
}
