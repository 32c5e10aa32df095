// tokengate is the bearer-token gate service. It loads its configuration
// from TOKENGATE_* environment variables and an optional YAML file, then
// either serves HTTP or, with --token, checks a single token and exits.
//
//	tokengate --config /etc/tokengate.yaml
//	tokengate --token "$JWT"
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/StricklySoft/tokengate/internal/server"
	"github.com/StricklySoft/tokengate/pkg/auth"
	"github.com/StricklySoft/tokengate/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, lookup config.LookupFunc) error {
	var configPath, token string

	flagSet := pflag.NewFlagSet("tokengate", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a YAML or JSON config file")
	flagSet.StringVar(&token, "token", "", "validate this token, print the outcome and exit")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	var cfg server.Config
	loader := config.New().WithEnvPrefix(server.EnvPrefix).WithLookup(lookup)
	if configPath != "" {
		loader = loader.WithFile(configPath)
	}
	if err := loader.Load(&cfg); err != nil {
		return err
	}

	logger := server.NewLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	if token != "" {
		return checkToken(ctx, srv.Validator(), token, stdout)
	}
	return srv.Run(ctx)
}

// checkReport is the JSON printed by --token.
type checkReport struct {
	Outcome  string         `json:"outcome"`
	Reason   string         `json:"reason,omitempty"`
	Issuer   string         `json:"issuer,omitempty"`
	Identity *auth.Identity `json:"identity,omitempty"`
	Claims   *auth.Claims   `json:"claims,omitempty"`
}

func checkToken(ctx context.Context, v *auth.JWTValidator, token string, w io.Writer) error {
	outcome, err := v.Validate(ctx, token)
	if err != nil {
		return err
	}

	report := checkReport{Outcome: outcome.Kind().String()}
	switch o := outcome.(type) {
	case auth.Valid:
		id := auth.IdentityFromClaims(o.Claims)
		report.Identity, report.Claims = &id, o.Claims
	case auth.Invalid:
		report.Reason = o.Reason
	case auth.UnknownIssuer:
		report.Issuer = o.Issuer
	case auth.Expired:
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
