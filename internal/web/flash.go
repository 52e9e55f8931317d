package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	flashCookieName = "portfolio_flash"
	flashTTL        = 5 * time.Minute
)

var ErrInvalidFlash = errors.New("invalid flash cookie")

// Flash is a one-shot status message shown on the next page view.
type Flash struct {
	Severity string
	Message  string
}

type flashClaims struct {
	Severity string `json:"sev"`
	Message  string `json:"msg"`
	jwt.RegisteredClaims
}

// FlashStore keeps flashes in a signed HttpOnly cookie.
type FlashStore struct {
	secret []byte
	secure bool
	now    func() time.Time
}

// NewFlashStore signs cookies with secret. secure marks them HTTPS-only.
func NewFlashStore(secret string, secure bool) *FlashStore {
	return &FlashStore{secret: []byte(secret), secure: secure, now: time.Now}
}

// Set stores f in the response, replacing any pending flash.
func (s *FlashStore) Set(w http.ResponseWriter, f Flash) error {
	now := s.now()
	claims := &flashClaims{
		Severity: f.Severity,
		Message:  f.Message,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(flashTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("failed to sign flash: %w", err)
	}
	http.SetCookie(w, s.cookie(token, int(flashTTL.Seconds())))
	return nil
}

// Pop returns the pending flash, if any, and clears the cookie. A tampered or
// expired cookie is cleared and reported as no flash.
func (s *FlashStore) Pop(w http.ResponseWriter, r *http.Request) (Flash, bool) {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return Flash{}, false
	}
	http.SetCookie(w, s.cookie("", -1))

	claims, err := s.parse(c.Value)
	if err != nil {
		return Flash{}, false
	}
	return Flash{Severity: claims.Severity, Message: claims.Message}, true
}

func (s *FlashStore) parse(value string) (*flashClaims, error) {
	claims := &flashClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidFlash
	}
	return claims, nil
}

func (s *FlashStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
