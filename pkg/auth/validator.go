package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/StricklySoft/tokengate/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope for auth spans.
const tracerName = "github.com/StricklySoft/tokengate/pkg/auth"

// testIssuerMarker is the issuer substring accepted by the test bypass.
const testIssuerMarker = "test"

// internalMethods are the HMAC algorithms accepted for internal tokens.
var internalMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// Scheme names reported on the auth.Validate span.
const (
	schemeInternal   = "internal"
	schemeExternal   = "external"
	schemeTestBypass = "test_bypass"
)

// TokenValidator decides whether a bearer token is trustworthy. The HTTP
// middleware and gRPC interceptors depend on this interface rather than on
// [JWTValidator] so tests can substitute a stub.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (Outcome, error)
}

// JWTValidator verifies bearer tokens issued either internally (HMAC with
// a shared secret) or by external providers publishing RSA key sets. It is
// safe for concurrent use; the only shared mutable state is its [KeyCache].
type JWTValidator struct {
	issuers  []IssuerEndpoint
	secret   Secret
	allowDev bool
	skew     time.Duration
	keys     *KeyCache
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

var _ TokenValidator = (*JWTValidator)(nil)

// NewJWTValidator validates cfg and builds a validator. The issuer list is
// copied, so later changes to cfg have no effect.
func NewJWTValidator(cfg ValidatorConfig) (*JWTValidator, error) {
	if verr := cfg.Validate(); verr != nil {
		return nil, verr
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	size := cfg.KeyCacheSize
	if size == 0 {
		size = DefaultKeyCacheSize
	}
	keys, err := NewKeyCache(size, client)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	keys.tracer = tp.Tracer(tracerName)

	v := &JWTValidator{
		issuers:  append([]IssuerEndpoint(nil), cfg.Issuers...),
		secret:   cfg.SharedSecret,
		allowDev: cfg.AllowTestTokens,
		skew:     cfg.ClockSkew,
		keys:     keys,
		logger:   logger,
		tracer:   keys.tracer,
		now:      time.Now,
	}

	if v.allowDev {
		logger.Warn("auth: test token bypass is enabled; tokens whose issuer contains \"test\" are accepted unverified")
	}
	for _, pair := range overlappingIssuers(v.issuers) {
		logger.Warn("auth: configured issuer names overlap; the first declared wins",
			"first", pair[0], "second", pair[1])
	}
	return v, nil
}

// KeyCache exposes the validator's key cache.
func (v *JWTValidator) KeyCache() *KeyCache { return v.keys }

// Validate decides the fate of token in a single pass:
//
//  1. Decode header and claims without verification. Failure is an error.
//  2. A token whose exp is at or before now is [Expired], whatever its
//     signature. Expiry therefore wins over every other rejection.
//  3. A token carrying any internal marker (tokenRequestedFrom, userId,
//     customerId) is verified with the shared secret, even if it also
//     has an issuer.
//  4. Any other token must carry iss. With AllowTestTokens, an issuer
//     containing "test" is [Valid] without verification.
//  5. Otherwise the issuer selects a key-discovery endpoint and the token
//     is verified with the RSA key named by its kid.
//
// Errors are reserved for malformed input, missing configuration and key
// set fetch failures; every verdict about the token itself is an Outcome.
func (v *JWTValidator) Validate(ctx context.Context, token string) (outcome Outcome, err error) {
	ctx, span := startSpan(ctx, v.tracer, "auth.Validate")
	defer func() {
		if outcome != nil {
			span.SetAttributes(attribute.String("auth.outcome", outcome.Kind().String()))
			v.logger.DebugContext(ctx, "auth: token validated", "outcome", outcome.Kind().String())
		}
		finishSpan(span, err)
		span.End()
	}()

	header, claims, err := decodeUnverified(token)
	if err != nil {
		return nil, err
	}

	if claims.ExpiredAt(v.now()) {
		return Expired{}, nil
	}

	if claims.IsInternal() {
		span.SetAttributes(attribute.String("auth.scheme", schemeInternal))
		return v.validateInternal(token)
	}

	if claims.Issuer == "" {
		return nil, errInvalidTokenFormat("token has no issuer", nil)
	}

	if v.allowDev && strings.Contains(claims.Issuer, testIssuerMarker) {
		span.SetAttributes(attribute.String("auth.scheme", schemeTestBypass))
		return Valid{Claims: claims}, nil
	}

	span.SetAttributes(attribute.String("auth.scheme", schemeExternal))
	return v.validateExternal(ctx, token, header, claims.Issuer)
}

// Identity decodes token without verifying it and projects the claims
// onto an [Identity]. Suitable for logging; never for access decisions.
func (v *JWTValidator) Identity(token string) (Identity, error) {
	claims, err := DecodeClaims(token)
	if err != nil {
		return Identity{}, err
	}
	return IdentityFromClaims(claims), nil
}

// validateInternal verifies an internally issued token with the shared
// secret. Failures other than expiry collapse into one generic reason.
func (v *JWTValidator) validateInternal(token string) (Outcome, error) {
	if v.secret.Value() == "" {
		return nil, sserr.New(sserr.CodeInternalConfiguration,
			"auth: internal token received but no shared secret is configured")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return []byte(v.secret.Value()), nil },
		jwt.WithValidMethods(internalMethods),
		jwt.WithLeeway(v.skew),
		jwt.WithTimeFunc(v.now),
	)
	switch {
	case err == nil:
		return Valid{Claims: claims}, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return Expired{}, nil
	default:
		return Invalid{Reason: "token verification failed"}, nil
	}
}

// validateExternal verifies a token against the key set of the first
// configured issuer contained in its iss claim.
func (v *JWTValidator) validateExternal(ctx context.Context, token string, header *tokenHeader, issuer string) (Outcome, error) {
	endpoint, ok := v.endpointFor(issuer)
	if !ok {
		return UnknownIssuer{Issuer: issuer}, nil
	}
	if header.Kid == "" {
		return nil, errInvalidTokenFormat("token header has no key ID", nil)
	}

	key, err := v.keys.Resolve(ctx, endpoint, header.Kid)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{header.Alg}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.skew),
		jwt.WithTimeFunc(v.now),
	)
	switch {
	case err == nil:
		return Valid{Claims: claims}, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return Expired{}, nil
	default:
		v.logger.DebugContext(ctx, "auth: external token rejected", "issuer", issuer, "error", err)
		return Invalid{Reason: err.Error()}, nil
	}
}

// endpointFor returns the key set URL of the first configured issuer whose
// name is a substring of issuer.
func (v *JWTValidator) endpointFor(issuer string) (string, bool) {
	for _, ie := range v.issuers {
		if strings.Contains(issuer, ie.Issuer) {
			return ie.JWKSURL, true
		}
	}
	return "", false
}

// ---------------------------------------------------------------------------
// OpenTelemetry helpers
// ---------------------------------------------------------------------------

func startSpan(ctx context.Context, tracer trace.Tracer, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// finishSpan records err on span and marks it failed. A nil err is a no-op.
func finishSpan(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
