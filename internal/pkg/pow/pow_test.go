package pow

import (
	"errors"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func solve(t *testing.T, nonce string, difficulty int) string {
	t.Helper()

	for i := 0; i < 1<<20; i++ {
		counter := strconv.Itoa(i)
		if Solves(nonce, counter, difficulty) {
			return counter
		}
	}
	t.Fatalf("no solution found for %s", nonce)
	return ""
}

func TestChallengeRoundTrip(t *testing.T) {
	m := NewManager(2)

	ch := m.NewChallenge()
	if ch.Difficulty != 2 || ch.Nonce == "" {
		t.Fatalf("challenge = %+v", ch)
	}

	token, err := m.ValidateProof(ch.Nonce, solve(t, ch.Nonce, 2))
	if err != nil {
		t.Fatalf("ValidateProof: %v", err)
	}

	if _, err := m.ValidateProof(ch.Nonce, solve(t, ch.Nonce, 2)); !errors.Is(err, ErrNonceInvalid) {
		t.Fatalf("nonce reused: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/auth/register", nil)
	req.Header.Set(TokenHeaderKey, token)
	if !m.RedeemToken(req) {
		t.Fatal("valid token rejected")
	}
	if m.RedeemToken(req) {
		t.Fatal("token redeemed twice")
	}
}

func TestValidateProofRejectsWrongCounter(t *testing.T) {
	m := NewManager(4)
	ch := m.NewChallenge()

	for i := 0; ; i++ {
		counter := strconv.Itoa(i)
		if Solves(ch.Nonce, counter, 4) {
			continue
		}
		if _, err := m.ValidateProof(ch.Nonce, counter); !errors.Is(err, ErrProofInsufficient) {
			t.Fatalf("err = %v", err)
		}
		return
	}
}

func TestExpiry(t *testing.T) {
	now := time.Now()
	m := NewManager(1)
	m.now = func() time.Time { return now }

	stale := m.NewChallenge()
	fresh := m.NewChallenge()

	now = now.Add(NonceExpiryDuration + time.Second)
	if _, err := m.ValidateProof(stale.Nonce, solve(t, stale.Nonce, 1)); !errors.Is(err, ErrNonceInvalid) {
		t.Fatalf("expired nonce: %v", err)
	}

	m.nonces[fresh.Nonce] = now.Add(time.Minute)
	token, err := m.ValidateProof(fresh.Nonce, solve(t, fresh.Nonce, 1))
	if err != nil {
		t.Fatalf("ValidateProof: %v", err)
	}

	now = now.Add(ProofTokenDuration + time.Second)
	req := httptest.NewRequest("POST", "/api/auth/register?pow_token="+token, nil)
	if m.RedeemToken(req) {
		t.Fatal("expired token accepted")
	}
}

func TestPurge(t *testing.T) {
	now := time.Now()
	m := NewManager(0)
	m.now = func() time.Time { return now }

	m.NewChallenge()
	ch := m.NewChallenge()
	if _, err := m.ValidateProof(ch.Nonce, "anything"); err != nil {
		t.Fatalf("difficulty 0 should accept any counter: %v", err)
	}

	now = now.Add(NonceExpiryDuration + time.Second)
	nonces, tokens := m.purge()
	if nonces != 1 || tokens != 1 {
		t.Fatalf("purged %d nonces and %d tokens", nonces, tokens)
	}
}

func TestRedeemTokenWithoutToken(t *testing.T) {
	m := NewManager(1)
	if m.RedeemToken(httptest.NewRequest("POST", "/", nil)) {
		t.Fatal("request without token accepted")
	}
}
