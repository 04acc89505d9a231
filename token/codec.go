package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired is returned by [Codec.Decode] when the signature verifies
	// but the validity window has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers malformed tokens, bad signatures and wrong keys.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrNoSessionID is returned when a fallback decode finds no sid to recover.
	ErrNoSessionID = errors.New("token carries no session id")
	// ErrSecretUnavailable is returned when the KeyFunc yields no usable secret.
	ErrSecretUnavailable = errors.New("signing secret unavailable")
)

const (
	// KeySID is the claim key carrying the session id in decoded claims.
	KeySID = "sid"
	// KeyAuth marks a sid-less token as a one-time authentication code.
	KeyAuth = "auth"

	maxLeeway = 2 * time.Minute
)

// KeyFunc resolves the signing secret. It is called on every sign and verify
// so that a rotated secret takes effect without a restart.
type KeyFunc func(ctx context.Context) ([]byte, error)

// StaticKey returns a KeyFunc that always yields secret.
func StaticKey(secret []byte) KeyFunc {
	return func(context.Context) ([]byte, error) {
		return secret, nil
	}
}

// Config holds codec settings.
type Config struct {
	Lifetime time.Duration
	Issuer   string
	Leeway   time.Duration
	Key      KeyFunc
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Codec signs and verifies session tokens.
type Codec struct {
	config Config
	method jwt.SigningMethod
}

type wireClaims struct {
	SID  string         `json:"sid,omitempty"`
	Data map[string]any `json:"data,omitempty"`
	jwt.RegisteredClaims
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Lifetime <= 0 {
		return nil, errors.New("invalid token lifetime")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Key == nil {
		return nil, errors.New("token codec requires a key func")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{config: cfg, method: jwt.SigningMethodHS256}, nil
}

// Lifetime returns the primary scheme's validity window.
func (c *Codec) Lifetime() time.Duration {
	return c.config.Lifetime
}

// Encode signs claims together with sid using the primary time-limited
// scheme. It returns an empty string and no error when sid is empty: a session
// without durable identity never produces a token.
func (c *Codec) Encode(ctx context.Context, claims Claims, sid string) (string, error) {
	if sid == "" {
		return "", nil
	}
	return c.sign(ctx, sid, claims, c.config.Lifetime, "")
}

// IssueCode mints a one-time authentication code: a sid-less token carrying
// identity fields and auth=true. A non-positive ttl uses the codec lifetime.
func (c *Codec) IssueCode(ctx context.Context, claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = c.config.Lifetime
	}
	data := claims.Clone()
	delete(data, KeySID)
	data[KeyAuth] = true
	return c.sign(ctx, "", data, ttl, uuid.NewString())
}

func (c *Codec) sign(ctx context.Context, sid string, claims Claims, ttl time.Duration, jti string) (string, error) {
	secret, err := c.secret(ctx)
	if err != nil {
		return "", err
	}

	data := claims.Clone()
	delete(data, KeySID)

	now := c.config.Now()
	wc := wireClaims{
		SID:  sid,
		Data: data,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	return jwt.NewWithClaims(c.method, wc).SignedString(secret)
}

// Decode verifies the primary signature and expiry and returns the embedded
// claims, including the sid under [KeySID] when present.
func (c *Codec) Decode(ctx context.Context, tokenStr string) (Claims, error) {
	claims, _, err := c.DecodeWithExpiry(ctx, tokenStr)
	return claims, err
}

// DecodeWithExpiry is [Codec.Decode] that also returns the token's exp. A
// one-time code's replay marker must live at least until then.
func (c *Codec) DecodeWithExpiry(ctx context.Context, tokenStr string) (Claims, time.Time, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.config.Now),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	wc, err := c.parse(ctx, tokenStr, jwt.NewParser(options...))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, time.Time{}, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		if errors.Is(err, ErrSecretUnavailable) {
			return nil, time.Time{}, err
		}
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	out := Claims(wc.Data).Clone()
	if wc.SID != "" {
		out[KeySID] = wc.SID
	}
	// exp is required by the parser options, so it is never nil here
	return out, wc.ExpiresAt.Time, nil
}

// RecoverSIDFromExpired verifies only the signature of tokenStr, ignoring the
// validity window, and returns the embedded sid. The result identifies which
// session to revoke; it must never be used to authenticate.
func (c *Codec) RecoverSIDFromExpired(ctx context.Context, tokenStr string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	wc, err := c.parse(ctx, tokenStr, parser)
	if err != nil {
		if errors.Is(err, ErrSecretUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if c.config.Issuer != "" && wc.Issuer != c.config.Issuer {
		return "", fmt.Errorf("%w: unexpected issuer", ErrTokenInvalid)
	}
	if wc.SID == "" {
		return "", ErrNoSessionID
	}
	return wc.SID, nil
}

func (c *Codec) parse(ctx context.Context, tokenStr string, parser *jwt.Parser) (*wireClaims, error) {
	var keyErr error
	token, err := parser.ParseWithClaims(tokenStr, &wireClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		secret, err := c.secret(ctx)
		if err != nil {
			keyErr = err
			return nil, err
		}
		return secret, nil
	})
	if keyErr != nil {
		return nil, keyErr
	}
	if err != nil {
		return nil, err
	}

	wc, ok := token.Claims.(*wireClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return wc, nil
}

func (c *Codec) secret(ctx context.Context) ([]byte, error) {
	secret, err := c.config.Key(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretUnavailable, err)
	}
	if len(secret) == 0 {
		return nil, ErrSecretUnavailable
	}
	return secret, nil
}
