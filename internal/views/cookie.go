package views

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const minSecretLength = 32

// Cookie names.
const (
	AnonViewsCookie   = "dr_anon_views"
	RecentViewsCookie = "dr_recent_views"
)

// maxCookieAge is the longest lifetime browsers honour (400 days).
const maxCookieAge = 400 * 24 * 60 * 60

// maxCookieSize bounds name=value. Browsers drop cookies over 4096 bytes
// without telling anyone.
const maxCookieSize = 4000

var (
	ErrSecretTooShort   = errors.New("views: cookie secret must be at least 32 characters")
	ErrInvalidFormat    = errors.New("views: invalid cookie format")
	ErrInvalidSignature = errors.New("views: invalid cookie signature")
	ErrValueTooLarge    = errors.New("views: encoded cookie too large")
)

// Signer encodes JSON values as HMAC-SHA256 signed strings.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer. The secret must be at least 32 characters.
func NewSigner(secret string) (*Signer, error) {
	if len(secret) < minSecretLength {
		return nil, ErrSecretTooShort
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Encode marshals v and appends its signature: base64(json) "." base64(mac).
func (s *Signer) Encode(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode cookie value: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString(s.mac(payload)), nil
}

// Decode verifies value and unmarshals it into v.
func (s *Signer) Decode(value string, v any) error {
	encodedPayload, encodedSig, ok := strings.Cut(value, ".")
	if !ok {
		return ErrInvalidFormat
	}

	payload, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return ErrInvalidFormat
	}
	sig, err := base64.RawURLEncoding.DecodeString(encodedSig)
	if err != nil {
		return ErrInvalidFormat
	}

	if subtle.ConstantTimeCompare(sig, s.mac(payload)) != 1 {
		return ErrInvalidSignature
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return ErrInvalidFormat
	}
	return nil
}

func (s *Signer) mac(payload []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(payload)
	return h.Sum(nil)
}

// CookieStore is a request-scoped Store backed by a signed cookie.
type CookieStore[T any] struct {
	signer *Signer
	name   string
	secure bool
	r      *http.Request
	w      http.ResponseWriter
}

// NewCookieStore binds a signed cookie to the current request/response.
// Save sets the cookie on w; it must be called before the body is written.
func NewCookieStore[T any](signer *Signer, name string, secure bool, w http.ResponseWriter, r *http.Request) *CookieStore[T] {
	return &CookieStore[T]{
		signer: signer,
		name:   name,
		secure: secure,
		r:      r,
		w:      w,
	}
}

func (c *CookieStore[T]) Load() (T, error) {
	var v T
	cookie, err := c.r.Cookie(c.name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return v, nil
		}
		return v, err
	}
	if err := c.signer.Decode(cookie.Value, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func (c *CookieStore[T]) Save(v T) error {
	if c.w == nil {
		return ErrStoreUnavailable
	}
	value, err := c.signer.Encode(v)
	if err != nil {
		return err
	}
	if len(c.name)+1+len(value) > maxCookieSize {
		return ErrValueTooLarge
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxCookieAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
