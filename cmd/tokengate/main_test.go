package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StricklySoft/tokengate/internal/testutil"
	"github.com/StricklySoft/tokengate/internal/testutil/fixtures"
	sserr "github.com/StricklySoft/tokengate/pkg/errors"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func runCheck(t *testing.T, env map[string]string, token string) (map[string]any, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--token", token}, &stdout, &stderr, envLookup(env))
	if err != nil {
		return nil, err
	}
	var report map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report), stdout.String())
	return report, nil
}

func TestRun_TokenValid(t *testing.T) {
	t.Parallel()
	token := fixtures.SignHS256(t, fixtures.SharedSecret, map[string]any{
		"userId": fixtures.UserID,
		"exp":    fixtures.InOneHour(),
	})
	report, err := runCheck(t, map[string]string{"TOKENGATE_SHIP_KEY": fixtures.SharedSecret}, token)
	require.NoError(t, err)

	assert.Equal(t, "valid", report["outcome"])
	identity, ok := report["identity"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, fixtures.UserID, identity["id"])
}

func TestRun_TokenOutcomes(t *testing.T) {
	t.Parallel()
	env := map[string]string{"TOKENGATE_SHIP_KEY": fixtures.SharedSecret}

	expired := fixtures.SignHS256(t, fixtures.SharedSecret, map[string]any{"userId": "u", "exp": fixtures.AnHourAgo()})
	report, err := runCheck(t, env, expired)
	require.NoError(t, err)
	assert.Equal(t, "expired", report["outcome"])

	stranger := fixtures.UnsignedToken(t, map[string]any{"alg": "RS256"}, map[string]any{"iss": "https://x.example"})
	report, err = runCheck(t, env, stranger)
	require.NoError(t, err)
	assert.Equal(t, "unknown_issuer", report["outcome"])
	assert.Equal(t, "https://x.example", report["issuer"])

	_, err = runCheck(t, env, "garbage")
	testutil.RequireErrorCode(t, err, sserr.CodeAuthenticationInvalid)
}

func TestRun_ConfigErrors(t *testing.T) {
	t.Parallel()
	_, err := runCheck(t, map[string]string{"TOKENGATE_ENV": "production", "TOKENGATE_ALLOW_TEST_TOKENS": "true"}, "x.y.z")
	testutil.RequireErrorCode(t, err, sserr.CodeValidation)
}

func TestRun_Flags(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	assert.NoError(t, run(context.Background(), []string{"--help"}, &stdout, &stderr, envLookup(nil)))
	assert.Contains(t, stderr.String(), "--token")

	assert.Error(t, run(context.Background(), []string{"--nope"}, &stdout, &stderr, envLookup(nil)))
	assert.Error(t, run(context.Background(), []string{"extra"}, &stdout, &stderr, envLookup(nil)))
}
