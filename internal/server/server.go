// Package server runs the tokengate HTTP service: a health probe and a
// bearer-token protected API that reports the caller's identity.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/StricklySoft/tokengate/pkg/auth"
	sserr "github.com/StricklySoft/tokengate/pkg/errors"
)

// Server wires a [Config] to an auth validator and an HTTP listener.
type Server struct {
	cfg       Config
	logger    *slog.Logger
	validator *auth.JWTValidator
	http      *http.Server
}

// New builds the validator described by cfg. cfg should already have
// passed Validate.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	vcfg, err := cfg.ValidatorConfig(logger)
	if err != nil {
		return nil, err
	}
	validator, err := auth.NewJWTValidator(vcfg)
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, logger: logger, validator: validator}
	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.Background() },
	}
	return s, nil
}

// ValidatorConfig translates the service configuration into the auth
// validator's configuration.
func (c *Config) ValidatorConfig(logger *slog.Logger) (auth.ValidatorConfig, error) {
	issuers, err := c.IssuerEndpoints()
	if err != nil {
		return auth.ValidatorConfig{}, err
	}
	return auth.ValidatorConfig{
		Issuers:         issuers,
		SharedSecret:    c.SharedSecret,
		AllowTestTokens: c.AllowTestTokens,
		HTTPClient:      &http.Client{Timeout: c.JWKSFetchTimeout},
		Logger:          logger,
	}, nil
}

// Validator returns the server's token validator.
func (s *Server) Validator() *auth.JWTValidator { return s.validator }

// Handler returns the routed handler with request logging applied.
//
//	GET /healthz     "Pong", unauthenticated
//	GET /v1/whoami   caller identity as JSON, bearer token required
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /v1/whoami", handleWhoAmI)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.Handle("/v1/", auth.HTTPMiddleware(s.validator)(api))

	return RequestLogger(s.logger)(mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests for
// up to the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return sserr.Wrapf(err, sserr.CodeUnavailable, "server: failed to listen on %s", s.http.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", ln.Addr().String(), "env", s.cfg.Env)
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return sserr.Wrap(err, sserr.CodeUnavailable, "server: serve failed")
	case <-ctx.Done():
	}

	s.logger.Info("server: shutting down", "timeout", s.cfg.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return sserr.Wrap(err, sserr.CodeTimeout, "server: graceful shutdown did not complete")
	}
	return nil
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Pong"))
}

func handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())
	LoggerFrom(r.Context()).Debug("whoami", "user_id", identity.ID)
	writeJSON(w, http.StatusOK, identity)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
