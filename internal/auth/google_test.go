package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientID = "client-123.apps.googleusercontent.com"

type jwksServer struct {
	*httptest.Server
	key  *rsa.PrivateKey
	kid  atomic.Value
	hits atomic.Int32
}

func newJWKSServer(t *testing.T) *jwksServer {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	s := &jwksServer{key: key}
	s.kid.Store("kid-1")
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kid": s.kid.Load().(string),
				"kty": "RSA",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) sign(t *testing.T, kid string, claims jwt.MapClaims) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(s.key)
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            testClientID,
		"sub":            "google-sub-1",
		"email":          "ama@example.com",
		"email_verified": true,
		"name":           "Ama Mensah",
		"exp":            time.Now().Add(time.Hour).Unix(),
		"iat":            time.Now().Unix(),
	}
}

func TestGoogleVerifier_Verify(t *testing.T) {
	srv := newJWKSServer(t)
	v := NewGoogleVerifier(testClientID, []string{"https://accounts.google.com", "accounts.google.com"}, srv.URL)
	clock := time.Now()
	v.now = func() time.Time { return clock }
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		id, err := v.Verify(ctx, srv.sign(t, "kid-1", validClaims()))
		require.NoError(t, err)
		assert.Equal(t, "google-sub-1", id.Subject)
		assert.Equal(t, "ama@example.com", id.Email)
		assert.Equal(t, "Ama Mensah", id.Name)
	})

	t.Run("keys are cached", func(t *testing.T) {
		before := srv.hits.Load()
		_, err := v.Verify(ctx, srv.sign(t, "kid-1", validClaims()))
		require.NoError(t, err)
		assert.Equal(t, before, srv.hits.Load())
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := validClaims()
		c["aud"] = "someone-else"
		_, err := v.Verify(ctx, srv.sign(t, "kid-1", c))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := validClaims()
		c["iss"] = "https://evil.example.com"
		_, err := v.Verify(ctx, srv.sign(t, "kid-1", c))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		c := validClaims()
		c["exp"] = time.Now().Add(-time.Hour).Unix()
		_, err := v.Verify(ctx, srv.sign(t, "kid-1", c))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unverified email", func(t *testing.T) {
		c := validClaims()
		c["email_verified"] = false
		_, err := v.Verify(ctx, srv.sign(t, "kid-1", c))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rotated key triggers refresh", func(t *testing.T) {
		clock = clock.Add(2 * jwksMinRefresh)
		srv.kid.Store("kid-2")
		before := srv.hits.Load()
		_, err := v.Verify(ctx, srv.sign(t, "kid-2", validClaims()))
		require.NoError(t, err)
		assert.Equal(t, before+1, srv.hits.Load())
	})

	t.Run("unknown kid", func(t *testing.T) {
		_, err := v.Verify(ctx, srv.sign(t, "kid-unknown", validClaims()))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestGoogleVerifier_UnknownKidRefetchIsThrottled(t *testing.T) {
	srv := newJWKSServer(t)
	v := NewGoogleVerifier(testClientID, []string{"https://accounts.google.com"}, srv.URL)
	clock := time.Now()
	v.now = func() time.Time { return clock }
	ctx := context.Background()

	_, err := v.Verify(ctx, srv.sign(t, "kid-1", validClaims()))
	require.NoError(t, err)
	require.Equal(t, int32(1), srv.hits.Load())

	for i := 0; i < 20; i++ {
		clock = clock.Add(time.Second)
		_, err := v.Verify(ctx, srv.sign(t, "kid-forged", validClaims()))
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
	assert.Equal(t, int32(1), srv.hits.Load())

	clock = clock.Add(jwksMinRefresh)
	_, err = v.Verify(ctx, srv.sign(t, "kid-forged", validClaims()))
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, int32(2), srv.hits.Load())

	_, err = v.Verify(ctx, srv.sign(t, "kid-1", validClaims()))
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.hits.Load())
}
