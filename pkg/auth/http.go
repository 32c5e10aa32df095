package auth

import (
	"context"
	"log/slog"
	"net/http"

	sserr "github.com/StricklySoft/tokengate/pkg/errors"
)

// HTTPMiddleware returns middleware that admits only requests carrying a
// valid bearer token.
//
// On a [Valid] outcome the verified claims and the derived [Identity] are
// stored in the request context and the request is passed on. Every other
// outcome, and every malformed-token error, is answered with 401 and a
// short fixed message; the detailed reason is logged, not echoed. Errors
// caused by the gate itself (missing configuration, unreachable key set
// endpoint) are answered with their own status (500, 503 or 504).
//
//	mux := http.NewServeMux()
//	mux.Handle("/v1/", auth.HTTPMiddleware(validator)(api))
func HTTPMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, rejection := authenticate(r.Context(), validator, r.Header.Get(HeaderAuthorization))
			if rejection != nil {
				status := rejection.HTTPStatus()
				if status == http.StatusUnauthorized {
					w.Header().Set("WWW-Authenticate", `Bearer realm="tokengate"`)
				}
				http.Error(w, rejection.Message, status)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate runs validator against an Authorization value. It returns
// the enriched context, or a rejection whose Message is safe to show the
// caller. Rejections use AUTH codes for token problems and keep the code
// of the underlying error for server-side failures.
func authenticate(ctx context.Context, validator TokenValidator, authorization string) (context.Context, *sserr.Error) {
	token, err := ExtractBearerToken(authorization)
	if err != nil {
		return ctx, sserr.New(sserr.CodeAuthenticationInvalid, "missing or invalid authorization header")
	}

	outcome, err := validator.Validate(ctx, token)
	if err != nil {
		if sserr.IsServerError(err) {
			slog.ErrorContext(ctx, "auth: token validation could not complete", "error", err)
			return ctx, sserr.New(sserr.GetCode(err), "authentication is temporarily unavailable")
		}
		slog.InfoContext(ctx, "auth: malformed token rejected", "error", err)
		return ctx, sserr.New(sserr.CodeAuthenticationInvalid, "invalid token")
	}

	switch o := outcome.(type) {
	case Valid:
		ctx = ContextWithClaims(ctx, o.Claims)
		return ContextWithIdentity(ctx, IdentityFromClaims(o.Claims)), nil
	case Expired:
		return ctx, sserr.New(sserr.CodeAuthenticationExpired, "token expired")
	case UnknownIssuer:
		slog.InfoContext(ctx, "auth: token from unknown issuer rejected", "issuer", o.Issuer)
		return ctx, sserr.New(sserr.CodeAuthentication, "unknown token issuer")
	case Invalid:
		slog.InfoContext(ctx, "auth: invalid token rejected", "reason", o.Reason)
		return ctx, sserr.New(sserr.CodeAuthenticationInvalid, "invalid token")
	default:
		return ctx, sserr.New(sserr.CodeAuthenticationInvalid, "invalid token")
	}
}
