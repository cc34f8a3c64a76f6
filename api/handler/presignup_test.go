package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/ava/api/transport"
	"github.com/fastygo/ava/domain"
)

func draftCookie(t *testing.T, ctx *fasthttp.RequestCtx) string {
	t.Helper()
	var cookie fasthttp.Cookie
	cookie.SetKey(domain.PendingSocietyDraftKey)
	require.True(t, ctx.Response.Header.Cookie(&cookie), "draft cookie not set")
	assert.True(t, cookie.HTTPOnly())
	return string(cookie.Value())
}

func completeRequest() transport.PresignupCompleteRequest {
	return transport.PresignupCompleteRequest{
		Email:     "ada@example.com",
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func TestPresignup_ChainedSignup(t *testing.T) {
	f := newFixture(t)

	ctx := newRequest(http.MethodPost, "/api/v1/presignup/society", oakGrove)
	f.presignup.SaveDraft(ctx)
	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	draftID := draftCookie(t, ctx)
	assert.Equal(t, draftID, decode(t, ctx).Data["draft_id"])

	ctx = newRequest(http.MethodGet, "/api/v1/presignup/society", nil)
	ctx.Request.Header.SetCookie(domain.PendingSocietyDraftKey, draftID)
	f.presignup.LoadDraft(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	ctx = newRequest(http.MethodPost, "/api/v1/presignup/complete", completeRequest())
	ctx.Request.Header.SetCookie(domain.PendingSocietyDraftKey, draftID)
	f.presignup.Complete(ctx)

	env := decode(t, ctx)
	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	require.NotNil(t, env.Navigation)
	assert.Equal(t, "/admin/dashboard", env.Navigation.Path)
	assert.False(t, env.Navigation.Replace)
	assert.Zero(t, env.Navigation.DelayMS)

	account, ok := env.Data["account"].(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, account["access_token"])
	assert.Equal(t, true, account["is_admin"])

	user := f.store.UserByEmail("ada@example.com")
	require.NotNil(t, user)
	assert.NotEmpty(t, f.store.Profile(user.ID).SocietyID)
	assert.Equal(t, 1, f.store.SocietyCount())
	assert.False(t, f.store.HasDraft(draftID))
}

func TestPresignup_RetryAfterCreateFailure(t *testing.T) {
	f := newFixture(t)

	ctx := newRequest(http.MethodPost, "/api/v1/presignup/society", oakGrove)
	f.presignup.SaveDraft(ctx)
	draftID := draftCookie(t, ctx)
	f.store.Locked(func() { f.store.CreateSocietyErr = errors.New("insert failed") })

	ctx = newRequest(http.MethodPost, "/api/v1/presignup/complete", completeRequest())
	ctx.Request.Header.SetCookie(domain.PendingSocietyDraftKey, draftID)
	f.presignup.Complete(ctx)
	assert.Equal(t, http.StatusBadGateway, ctx.Response.StatusCode())
	assert.True(t, f.store.HasDraft(draftID))

	f.store.Locked(func() { f.store.CreateSocietyErr = nil })
	ctx = newRequest(http.MethodPost, "/api/v1/presignup/complete", completeRequest())
	ctx.Request.Header.SetCookie(domain.PendingSocietyDraftKey, draftID)
	f.presignup.Complete(ctx)

	env := decode(t, ctx)
	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	require.NotNil(t, env.Navigation)
	assert.Equal(t, "/admin/dashboard", env.Navigation.Path)
	assert.Equal(t, 1, f.store.SocietyCount())
	assert.False(t, f.store.HasDraft(draftID))
}

func TestPresignup_CompleteWithoutDraft(t *testing.T) {
	f := newFixture(t)

	ctx := newRequest(http.MethodPost, "/api/v1/presignup/complete", completeRequest())
	f.presignup.Complete(ctx)

	env := decode(t, ctx)
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())
	assert.Equal(t, "Society data not found. Please set up your society first.", env.Error.Message)
	require.NotNil(t, env.Navigation)
	assert.Equal(t, "/admin/presignup-setup", env.Navigation.Path)
	assert.Nil(t, f.store.UserByEmail("ada@example.com"))
}

func TestPresignup_LoadMissingDraft(t *testing.T) {
	f := newFixture(t)

	ctx := newRequest(http.MethodGet, "/api/v1/presignup/society?id=missing", nil)
	f.presignup.LoadDraft(ctx)

	env := decode(t, ctx)
	assert.Equal(t, http.StatusNotFound, ctx.Response.StatusCode())
	require.NotNil(t, env.Navigation)
	assert.Equal(t, "/admin/presignup-setup", env.Navigation.Path)
}

func TestPresignup_SaveDraftValidates(t *testing.T) {
	f := newFixture(t)

	ctx := newRequest(http.MethodPost, "/api/v1/presignup/society", domain.SocietyForm{Name: "Oak Grove"})
	f.presignup.SaveDraft(ctx)

	env := decode(t, ctx)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
	assert.Contains(t, env.Error.Details, "address")
	assert.Empty(t, ctx.Response.Header.PeekCookie(domain.PendingSocietyDraftKey))
}
