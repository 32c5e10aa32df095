package fixtures

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"
)

var (
	sharedKeyOnce sync.Once
	sharedKey     *rsa.PrivateKey
	sharedKeyErr  error
)

// RSAKey returns a 2048-bit key shared by every test in the process.
// Key generation is slow enough that tests which only need "a key" reuse
// this one.
func RSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	sharedKeyOnce.Do(func() {
		sharedKey, sharedKeyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	require.NoError(t, sharedKeyErr, "failed to generate shared RSA key")
	return sharedKey
}

// NewRSAKey generates a fresh 2048-bit key.
func NewRSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "failed to generate RSA key")
	return key
}

// KeySetJSON renders public keys as a JWKS document, one RS256 key per
// kid.
func KeySetJSON(t testing.TB, keys map[string]*rsa.PublicKey) []byte {
	t.Helper()
	set := jwk.NewSet()
	for kid, pub := range keys {
		key, err := jwk.FromRaw(pub)
		require.NoError(t, err, "jwk.FromRaw")
		require.NoError(t, key.Set(jwk.KeyIDKey, kid))
		require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))
		require.NoError(t, key.Set(jwk.KeyUsageKey, jwk.ForSignature))
		require.NoError(t, set.AddKey(key))
	}
	body, err := json.Marshal(set)
	require.NoError(t, err, "marshal key set")
	return body
}

// JWKSServer is an httptest server publishing a key set. It counts every
// request so tests can assert on cache behavior.
type JWKSServer struct {
	*httptest.Server

	hits   atomic.Int64
	mu     sync.Mutex
	status int
	body   []byte
}

// NewJWKSServer starts a server publishing keys. It is closed when the
// test ends.
func NewJWKSServer(t testing.TB, keys map[string]*rsa.PublicKey) *JWKSServer {
	t.Helper()
	s := &JWKSServer{status: http.StatusOK, body: KeySetJSON(t, keys)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *JWKSServer) serve(w http.ResponseWriter, _ *http.Request) {
	s.hits.Add(1)
	s.mu.Lock()
	status, body := s.status, s.body
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Hits returns the number of requests served so far.
func (s *JWKSServer) Hits() int64 { return s.hits.Load() }

// SetKeys replaces the published key set.
func (s *JWKSServer) SetKeys(t testing.TB, keys map[string]*rsa.PublicKey) {
	t.Helper()
	body := KeySetJSON(t, keys)
	s.mu.Lock()
	s.status, s.body = http.StatusOK, body
	s.mu.Unlock()
}

// SetResponse makes the server answer with an arbitrary status and body.
func (s *JWKSServer) SetResponse(status int, body string) {
	s.mu.Lock()
	s.status, s.body = status, []byte(body)
	s.mu.Unlock()
}

// KeyJSON renders a single public key as a JWK object, for splicing into
// hand-written key-set documents.
func KeyJSON(t testing.TB, kid string, pub *rsa.PublicKey) string {
	t.Helper()
	key, err := jwk.FromRaw(pub)
	require.NoError(t, err, "jwk.FromRaw")
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	body, err := json.Marshal(key)
	require.NoError(t, err, "marshal key")
	return string(body)
}
