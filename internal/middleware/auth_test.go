package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap/zaptest"

	"github.com/fastygo/auction/domain"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": "u-1",
		"name":    "Bob",
		"role":    "user",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	var seen domain.Identity
	h := JWTAuth(testSecret, zaptest.NewLogger(t))(func(ctx *fasthttp.RequestCtx) {
		seen = IdentityFrom(ctx)
	})

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	ctx.Request.Header.Set(HeaderUserRole, "admin")
	h(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, domain.Identity{ID: "u-1", Name: "Bob", Role: domain.RoleUser}, seen)
}

func TestJWTAuthRejects(t *testing.T) {
	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noUser := validClaims()
	delete(noUser, "user_id")

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "Bearer not-a-token"},
		{"wrong secret", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims())},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{"no user id", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), noUser)},
		{"alg none", "Bearer " + sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := JWTAuth(testSecret, zaptest.NewLogger(t))(func(*fasthttp.RequestCtx) { called = true })

			ctx := &fasthttp.RequestCtx{}
			if tt.token != "" {
				ctx.Request.Header.Set("Authorization", tt.token)
			}
			ctx.Request.Header.Set(HeaderUserID, "spoofed")
			h(ctx)

			assert.False(t, called)
			assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
			assert.Empty(t, ctx.Request.Header.Peek(HeaderUserID))
		})
	}
}

func TestRequireRole(t *testing.T) {
	called := false
	h := Chain(func(*fasthttp.RequestCtx) { called = true },
		JWTAuth(testSecret, zaptest.NewLogger(t)),
		RequireRole(domain.RoleSeller, domain.RoleAdmin),
	)

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	h(ctx)
	assert.False(t, called)
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	claims := validClaims()
	claims["role"] = "seller"
	ctx = &fasthttp.RequestCtx{}
	ctx.Request.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))
	h(ctx)
	assert.True(t, called)
}
