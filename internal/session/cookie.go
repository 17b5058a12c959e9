package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	CookieName = "rose_session"
	DefaultTTL = 12 * time.Hour
)

var (
	ErrNoSecret     = errors.New("session secret is empty")
	ErrInvalidToken = errors.New("invalid session token")
)

type claims struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
	jwt.RegisteredClaims
}

// CookieCodec stores IDs in a signed HS256 token inside an HttpOnly cookie.
type CookieCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	Secure bool
}

func NewCookieCodec(secret string, ttl time.Duration) (*CookieCodec, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CookieCodec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (c *CookieCodec) Encode(ids IDs) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RoomID:   ids.RoomID,
		PlayerID: ids.PlayerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ids.PlayerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (c *CookieCodec) Decode(raw string) (IDs, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return IDs{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	ids := IDs{RoomID: parsed.RoomID, PlayerID: parsed.PlayerID}
	if !ids.Complete() {
		return IDs{}, fmt.Errorf("%w: missing ids", ErrInvalidToken)
	}
	return ids, nil
}

// Write sets the session cookie for ids.
func (c *CookieCodec) Write(w http.ResponseWriter, ids IDs) error {
	token, err := c.Encode(ids)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the ids of a valid session cookie.
func (c *CookieCodec) Read(r *http.Request) (IDs, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return IDs{}, false
	}
	ids, err := c.Decode(cookie.Value)
	if err != nil {
		return IDs{}, false
	}
	return ids, true
}

func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
