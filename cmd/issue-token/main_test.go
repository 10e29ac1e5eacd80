package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appkg "github.com/xenking/kart-pos/internal/app"
	"github.com/xenking/kart-pos/internal/domain/auth"
)

func TestIssue(t *testing.T) {
	authCfg := appkg.AuthConfig{Secret: "s3cret", Issuer: "kart-pos", TokenTTL: time.Hour}

	token, err := issue(config{Subject: "till-1", Role: "admin", Auth: authCfg})
	require.NoError(t, err)

	tokens, err := auth.NewTokenManager(authCfg.TokenConfig())
	require.NoError(t, err)
	p, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "till-1", p.Subject)
	assert.Equal(t, auth.RoleAdmin, p.Role)
}

func TestIssue_Errors(t *testing.T) {
	authCfg := appkg.AuthConfig{Secret: "s3cret"}

	_, err := issue(config{Subject: "till-1", Role: "owner", Auth: authCfg})
	require.ErrorIs(t, err, auth.ErrInvalidRole)

	_, err = issue(config{Subject: "till-1", Role: "cashier"})
	require.Error(t, err)
}
