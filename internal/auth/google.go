package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/valyala/fasthttp"
)

var ErrUnknownKey = errors.New("unknown signing key")

const (
	jwksTTL = time.Hour
	// minimum spacing between fetches, whatever kid a token claims
	jwksMinRefresh = time.Minute
)

// GoogleIdentity is the verified content of a Google ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

type jwkSet struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// GoogleVerifier checks Google ID tokens against the published JWKS.
type GoogleVerifier struct {
	clientID string
	issuers  []string
	jwksURL  string
	client   *fasthttp.Client
	timeout  time.Duration

	minRefresh time.Duration
	now        func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetched   time.Time
	attempted time.Time
}

func NewGoogleVerifier(clientID string, issuers []string, jwksURL string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		issuers:  issuers,
		jwksURL:  jwksURL,
		client:   &fasthttp.Client{Name: "crowdfund-jwks"},
		timeout:  10 * time.Second,
		keys:     make(map[string]*rsa.PublicKey),

		minRefresh: jwksMinRefresh,
		now:        time.Now,
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	if v.clientID == "" {
		return nil, errors.New("google client id is not configured")
	}

	claims := &googleClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	if !slices.Contains(v.issuers, claims.Issuer) {
		return nil, fmt.Errorf("%w: issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified", ErrInvalidToken)
	}

	return &GoogleIdentity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}

// key returns the cached key for kid, refreshing the set when it is stale or
// the kid is unknown. Fetches are at least minRefresh apart, so tokens with
// made-up kids cannot drive traffic to Google.
func (v *GoogleVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	k, ok := v.keys[kid]
	fresh := v.now().Sub(v.fetched) < jwksTTL
	v.mu.RUnlock()
	if ok && fresh {
		return k, nil
	}

	if !v.claimRefresh() {
		if ok {
			return k, nil
		}
		return nil, ErrUnknownKey
	}

	if err := v.refresh(ctx); err != nil {
		if ok {
			logger.Warn("[auth] jwks refresh failed, using cached key", "error", err)
			return k, nil
		}
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if k, ok := v.keys[kid]; ok {
		return k, nil
	}
	return nil, ErrUnknownKey
}

// claimRefresh reports whether the caller may fetch the key set now and, if
// so, records the attempt.
func (v *GoogleVerifier) claimRefresh() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := v.now()
	if !v.attempted.IsZero() && now.Sub(v.attempted) < v.minRefresh {
		return false
	}
	v.attempted = now
	return true
}

func (v *GoogleVerifier) refresh(ctx context.Context) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(v.jwksURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	timeout := v.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := v.client.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode())
	}

	var set jwkSet
	if err := json.Unmarshal(resp.Body(), &set); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaPublicKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("jwks contained no usable keys")
	}

	v.mu.Lock()
	v.keys = keys
	v.fetched = v.now()
	v.mu.Unlock()
	return nil
}

func rsaPublicKey(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, err
	}
	exp := 0
	for _, b := range eBytes {
		exp = exp<<8 + int(b)
	}
	if exp == 0 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: exp}, nil
}
