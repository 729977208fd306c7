package devserver

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"taskdeck/domain"
)

const defaultTokenTTL = 24 * time.Hour

// Principal is the caller identified by a bearer token.
type Principal struct {
	UserID int64
	Email  string
	Role   domain.Role
}

// IsAdmin reports whether the principal is an administrator.
func (p Principal) IsAdmin() bool { return p.Role.IsAdmin() }

// Auth issues and validates HS256 tokens.
type Auth struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time

	parser *jwt.Parser
}

// NewAuth creates an Auth signing with secret. A non-positive ttl uses one day.
func NewAuth(secret []byte, ttl time.Duration) *Auth {
	if len(secret) == 0 {
		panic("devserver: empty signing secret")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Auth{
		Secret: secret,
		TTL:    ttl,
		Now:    time.Now,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// Issue signs a token for u carrying its email, role and id.
func (a *Auth) Issue(u domain.User) (string, time.Time, error) {
	now := a.Now()
	exp := now.Add(a.TTL)
	claims := jwt.MapClaims{
		"sub":    u.Email,
		"role":   string(u.Role),
		"userId": u.ID,
		"iat":    now.Unix(),
		"exp":    exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// PrincipalFromAuthHeader validates the Authorization header value.
func (a *Auth) PrincipalFromAuthHeader(h string) (Principal, error) {
	if h == "" {
		return Principal{}, errMissingAuthorization
	}
	token, err := bearerTokenFromString(h)
	if err != nil {
		return Principal{}, err
	}
	return a.PrincipalFromBearer(token)
}

// PrincipalFromBearer validates a raw bearer token.
func (a *Auth) PrincipalFromBearer(token string) (Principal, error) {
	if token == "" {
		return Principal{}, errBadAuthorization
	}
	parsed, err := a.parser.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.Secret, nil
	})
	if err != nil {
		return Principal{}, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, errors.New("invalid claims")
	}
	now := a.Now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return Principal{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return Principal{}, errors.New("token not valid yet")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Principal{}, errors.New("missing sub")
	}
	id, ok := claims["userId"].(float64)
	if !ok || id <= 0 {
		return Principal{}, errors.New("missing userId")
	}
	raw, _ := claims["role"].(string)
	role, ok := domain.ParseRole(raw)
	if !ok {
		return Principal{}, errors.New("unknown role")
	}
	return Principal{UserID: int64(id), Email: sub, Role: role}, nil
}
