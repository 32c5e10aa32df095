package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/StricklySoft/tokengate/pkg/errors"
)

// maxKeySetSize limits a key-set response body to 1 MB.
const maxKeySetSize = 1 << 20

// KeySet maps key IDs to RSA verification keys published by one endpoint.
// A KeySet is never modified after it is built.
type KeySet map[string]*rsa.PublicKey

// ---------------------------------------------------------------------------
// Key cache
// ---------------------------------------------------------------------------

// KeyCache holds the most recently used key sets, one per key-discovery
// endpoint. It is safe for concurrent use.
//
// Locking protocol for Resolve: take the mutex to look up the endpoint,
// release it, fetch from the network with no lock held, then take the
// mutex again to store the result. Concurrent misses on the same endpoint
// therefore each fetch and each replace the entry; the last writer wins.
// That duplication is accepted: entries are replaced whole, never merged,
// so whichever set survives is internally consistent.
//
// There is no negative caching. A key ID missing from a cached set, or
// missing from the set just fetched, triggers a full fetch next time.
type KeyCache struct {
	mu     sync.Mutex
	lru    *simplelru.LRU[string, KeySet]
	client HTTPClient
	tracer trace.Tracer
}

// NewKeyCache returns a cache holding at most capacity key sets, fetched
// with client. Capacity must be positive.
func NewKeyCache(capacity int, client HTTPClient) (*KeyCache, error) {
	if client == nil {
		return nil, sserr.New(sserr.CodeValidation, "auth: key cache requires an HTTP client")
	}
	lru, err := simplelru.NewLRU[string, KeySet](capacity, nil)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeValidation, "auth: invalid key cache capacity %d", capacity)
	}
	return &KeyCache{
		lru:    lru,
		client: client,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Resolve returns the key with ID kid published at endpoint.
//
// A cached set containing kid answers without network access and marks
// the endpoint most recently used. Otherwise the whole set is fetched and
// replaces the cached entry, evicting the least recently used endpoint if
// the cache is full. A kid absent from the fresh set is an invalid token
// format. Fetch failures are returned as-is; a stale entry is never used
// in their place.
func (c *KeyCache) Resolve(ctx context.Context, endpoint, kid string) (*rsa.PublicKey, error) {
	ctx, span := startSpan(ctx, c.tracer, "auth.ResolveKey")
	defer span.End()
	span.SetAttributes(attribute.String("auth.jwks_endpoint", endpoint))

	c.mu.Lock()
	cached, ok := c.lru.Get(endpoint)
	c.mu.Unlock()

	if key, found := cached[kid]; ok && found {
		span.SetAttributes(attribute.Bool("auth.cache_hit", true))
		return key, nil
	}
	span.SetAttributes(attribute.Bool("auth.cache_hit", false))

	keys, err := c.fetch(ctx, endpoint)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}

	c.mu.Lock()
	c.lru.Add(endpoint, keys)
	c.mu.Unlock()

	key, found := keys[kid]
	if !found {
		err := errInvalidTokenFormat("key ID not published by issuer", nil).
			WithDetail("kid", kid).
			WithDetail("endpoint", endpoint)
		finishSpan(span, err)
		return nil, err
	}
	return key, nil
}

// Len returns the number of cached key sets.
func (c *KeyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Contains reports whether endpoint has a cached key set. It does not
// affect recency.
func (c *KeyCache) Contains(endpoint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Contains(endpoint)
}

// Endpoints returns the cached endpoints from least to most recently used.
func (c *KeyCache) Endpoints() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Keys()
}

// fetch downloads and parses the key set at endpoint. Only RSA keys are
// kept. An RSA key without string n and e fields fails the whole fetch;
// keys of other types are skipped, as are RSA entries jwk rejects.
func (c *KeyCache) fetch(ctx context.Context, endpoint string) (KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, sserr.Wrap(err, sserr.CodeUnavailableDependency, "auth: failed to create key set request").
			WithDetail("endpoint", endpoint)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyFetchError(err, endpoint)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, sserr.Newf(sserr.CodeUnavailableDependency,
			"auth: key set endpoint returned status %d", resp.StatusCode).
			WithDetail("endpoint", endpoint)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetSize))
	if err != nil {
		return nil, classifyFetchError(err, endpoint)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, sserr.Wrap(err, sserr.CodeUnavailableDependency, "auth: key set response is not a JSON object").
			WithDetail("endpoint", endpoint)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(doc["keys"], &entries); err != nil || entries == nil {
		return nil, errInvalidTokenFormat("key set has no keys array", err).WithDetail("endpoint", endpoint)
	}

	keys := make(KeySet, len(entries))
	for _, entry := range entries {
		var fields struct {
			Kty any `json:"kty"`
			N   any `json:"n"`
			E   any `json:"e"`
		}
		if json.Unmarshal(entry, &fields) != nil || fields.Kty != "RSA" {
			continue
		}
		if _, ok := fields.N.(string); !ok {
			return nil, errInvalidTokenFormat("RSA key is missing its modulus", nil).
				WithDetail("endpoint", endpoint)
		}
		if _, ok := fields.E.(string); !ok {
			return nil, errInvalidTokenFormat("RSA key is missing its exponent", nil).
				WithDetail("endpoint", endpoint)
		}
		key, err := jwk.ParseKey(entry)
		if err != nil {
			continue
		}
		var pub rsa.PublicKey
		if err := key.Raw(&pub); err != nil {
			continue
		}
		keys[key.KeyID()] = &pub
	}
	return keys, nil
}

func classifyFetchError(err error, endpoint string) *sserr.Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return sserr.Wrap(err, sserr.CodeTimeoutDependency, "auth: key set fetch timed out").
			WithDetail("endpoint", endpoint)
	}
	return sserr.Wrap(err, sserr.CodeUnavailableDependency, "auth: key set fetch failed").
		WithDetail("endpoint", endpoint)
}
