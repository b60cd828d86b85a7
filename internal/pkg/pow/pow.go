/*
Package pow gates expensive or abusable endpoints, registration in particular, behind a
SHA-256 proof-of-work.

A client fetches a nonce, finds a counter such that sha256(nonce+counter) starts with the
configured number of hex zeros, and trades the pair for a short-lived, single-use proof token.
*/
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quicktalk/internal/pkg/logx"
)

const (
	// TokenHeaderKey carries the proof token on the gated request.
	TokenHeaderKey = "X-PoW-Token"

	// ProofTokenDuration is how long an issued proof token may be redeemed.
	ProofTokenDuration = 30 * time.Second

	// NonceExpiryDuration is how long a challenge nonce may be solved.
	NonceExpiryDuration = 5 * time.Minute

	cleanupInterval = time.Minute
)

var (
	ErrNonceInvalid      = errors.New("nonce expired or invalid")
	ErrProofInsufficient = errors.New("proof does not meet difficulty requirement")
)

// Challenge is handed to the client.
type Challenge struct {
	Nonce      string    `json:"nonce"`
	Difficulty int       `json:"difficulty"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Manager issues challenges and redeems proofs. It is safe for concurrent use.
type Manager struct {
	difficulty int
	now        func() time.Time

	mu     sync.Mutex
	nonces map[string]time.Time
	tokens map[string]time.Time
}

// NewManager returns a Manager requiring difficulty leading hex zeros.
func NewManager(difficulty int) *Manager {
	return &Manager{
		difficulty: difficulty,
		now:        time.Now,
		nonces:     make(map[string]time.Time),
		tokens:     make(map[string]time.Time),
	}
}

// Difficulty returns the number of leading hex zeros a proof needs.
func (m *Manager) Difficulty() int {
	return m.difficulty
}

// NewChallenge stores and returns a fresh nonce.
func (m *Manager) NewChallenge() Challenge {
	expires := m.now().Add(NonceExpiryDuration)
	nonce := uuid.New().String()

	m.mu.Lock()
	m.nonces[nonce] = expires
	m.mu.Unlock()

	return Challenge{Nonce: nonce, Difficulty: m.difficulty, ExpiresAt: expires}
}

// Solves reports whether counter solves nonce at difficulty.
func Solves(nonce, counter string, difficulty int) bool {
	hash := sha256.Sum256([]byte(nonce + counter))
	return strings.HasPrefix(hex.EncodeToString(hash[:]), strings.Repeat("0", difficulty))
}

// ValidateProof consumes nonce if counter solves it and returns a proof token.
func (m *Manager) ValidateProof(nonce, counter string) (string, error) {
	if !Solves(nonce, counter, m.difficulty) {
		return "", ErrProofInsufficient
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.nonces[nonce]
	if !ok || now.After(expiry) {
		return "", ErrNonceInvalid
	}
	delete(m.nonces, nonce)

	token := uuid.New().String()
	m.tokens[token] = now.Add(ProofTokenDuration)
	return token, nil
}

// RedeemToken consumes the proof token carried by r, from the X-PoW-Token header or the
// pow_token query parameter. A token is accepted once.
func (m *Manager) RedeemToken(r *http.Request) bool {
	token := r.Header.Get(TokenHeaderKey)
	if token == "" {
		token = r.URL.Query().Get("pow_token")
	}
	if token == "" {
		return false
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.tokens[token]
	if !ok {
		return false
	}
	delete(m.tokens, token)
	return !now.After(expiry)
}

// Run purges expired nonces and tokens until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			nonces, tokens := m.purge()
			if nonces+tokens > 0 {
				logx.Debug("Purged expired proof-of-work entries", "nonces", nonces, "tokens", tokens)
			}
		}
	}
}

func (m *Manager) purge() (nonces, tokens int) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, expiry := range m.nonces {
		if now.After(expiry) {
			delete(m.nonces, k)
			nonces++
		}
	}
	for k, expiry := range m.tokens {
		if now.After(expiry) {
			delete(m.tokens, k)
			tokens++
		}
	}
	return nonces, tokens
}
