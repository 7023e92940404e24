package identity_test

import (
	"context"
	"errors"
	"testing"

	"itsaportal/internal/gateway/gatewaytest"
	"itsaportal/internal/identity"
	"itsaportal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codeFor(t *testing.T, env *gatewaytest.Env, userID, kind string) string {
	t.Helper()
	var tok models.AuthToken
	require.NoError(t, env.DB.Where("user_id = ? AND kind = ? AND used_at IS NULL", userID, kind).First(&tok).Error)
	return tok.Code
}

func TestCallbackError(t *testing.T) {
	env := gatewaytest.New(t)
	c := newContext(t, env.Gateway)

	_, err := c.CompleteCallback(context.Background(), identity.CallbackParams{Error: "access_denied", ErrorDescription: "Email link is invalid or has expired"})
	var cerr *identity.CallbackError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "Email link is invalid or has expired", cerr.Message)

	_, err = c.CompleteCallback(context.Background(), identity.CallbackParams{Error: "server_error"})
	assert.EqualError(t, err, "Authentication failed")
}

func TestCallbackVerifiesSignUp(t *testing.T) {
	env := gatewaytest.New(t)
	c := newContext(t, env.Gateway)
	ctx := waitCtx(t)

	user, err := c.SignUp(ctx, "new@example.com", "secret1", identity.ProfileFields{FirstName: "New"})
	require.NoError(t, err)
	code := codeFor(t, env, user.ID, models.TokenSignup)

	res, err := c.CompleteCallback(ctx, identity.CallbackParams{Code: code})
	require.NoError(t, err)
	assert.Equal(t, identity.PathDashboard, res.Next)
	require.NotNil(t, c.Session())
	level, err := c.Capability(ctx)
	require.NoError(t, err)
	assert.Equal(t, identity.AuthenticatedNonStaff, level)

	again := newContext(t, env.Gateway)
	_, err = again.CompleteCallback(ctx, identity.CallbackParams{Code: code})
	assert.Error(t, err)
}

func TestCallbackRecovery(t *testing.T) {
	env := gatewaytest.New(t)
	client := env.Client(t, "a@example.com")
	ctx := waitCtx(t)

	require.NoError(t, newContext(t, env.Gateway).ResetPassword(ctx, "a@example.com"))
	code := codeFor(t, env, client.AuthID, models.TokenRecovery)

	c := newContext(t, env.Gateway)
	res, err := c.CompleteCallback(ctx, identity.CallbackParams{Code: code, Type: "recovery"})
	require.NoError(t, err)
	assert.Equal(t, identity.PathResetPassword, res.Next)

	assert.ErrorContains(t, c.UpdatePassword(ctx, "newpass1", "newpass2"), "Passwords do not match")
	require.NoError(t, c.UpdatePassword(ctx, "newpass1", "newpass1"))

	_, err = newContext(t, env.Gateway).SignIn(ctx, "a@example.com", "newpass1")
	assert.NoError(t, err)
}

func TestCallbackTokenPair(t *testing.T) {
	env := gatewaytest.New(t)
	env.Client(t, "a@example.com")
	sess := env.Login(t, "a@example.com")
	ctx := waitCtx(t)

	res, err := newContext(t, env.Gateway).CompleteCallback(ctx, identity.CallbackParams{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		Type:         "recovery",
	})
	require.NoError(t, err)
	assert.Equal(t, identity.PathResetPassword, res.Next)

	res, err = newContext(t, env.Gateway).CompleteCallback(ctx, identity.CallbackParams{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
	})
	require.NoError(t, err)
	assert.Equal(t, identity.PathDashboard, res.Next)
}

func TestCallbackWithoutParams(t *testing.T) {
	env := gatewaytest.New(t)
	env.Client(t, "a@example.com")
	ctx := waitCtx(t)

	c := newContext(t, env.Gateway)
	_, err := c.CompleteCallback(ctx, identity.CallbackParams{})
	assert.EqualError(t, err, "Invalid or expired verification link. Please try again.")

	_, err = c.SignIn(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	res, err := c.CompleteCallback(ctx, identity.CallbackParams{})
	require.NoError(t, err)
	assert.Equal(t, identity.PathDashboard, res.Next)
}
