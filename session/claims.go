package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"taskdeck/domain"
)

// Claims are the token fields the client relies on.
type Claims struct {
	Subject   string
	Role      domain.Role
	UserID    int64
	ExpiresAt time.Time
}

// Verifier reads claims from service tokens. Without a JWKS or shared secret
// it reads them unverified and leaves signature checks to the service.
type Verifier struct {
	JWKS   *keyfunc.JWKS
	Secret []byte

	parser *jwt.Parser
}

// NewVerifier picks the verification mode. jwksURL takes precedence over secret.
func NewVerifier(jwksURL, secret string) (*Verifier, error) {
	switch {
	case jwksURL != "":
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{RefreshInterval: time.Hour, RefreshUnknownKID: true})
		if err != nil {
			return nil, fmt.Errorf("jwks: %w", err)
		}
		return &Verifier{JWKS: jwks, parser: jwt.NewParser(jwt.WithValidMethods([]string{"RS256", "ES256"}))}, nil
	case secret != "":
		return &Verifier{Secret: []byte(secret), parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))}, nil
	}
	return &Verifier{parser: jwt.NewParser()}, nil
}

// Close stops the JWKS refresh goroutine, if any.
func (v *Verifier) Close() {
	if v != nil && v.JWKS != nil {
		v.JWKS.EndBackground()
	}
}

// Claims parses token and extracts its claims.
func (v *Verifier) Claims(token string) (Claims, error) {
	if token == "" {
		return Claims{}, errors.New("empty token")
	}
	parser := v.parser
	if parser == nil {
		parser = jwt.NewParser()
	}

	mc := jwt.MapClaims{}
	switch {
	case v.JWKS != nil:
		if _, err := parser.ParseWithClaims(token, mc, v.JWKS.Keyfunc); err != nil {
			return Claims{}, err
		}
	case len(v.Secret) > 0:
		if _, err := parser.ParseWithClaims(token, mc, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return v.Secret, nil
		}); err != nil {
			return Claims{}, err
		}
	default:
		if _, _, err := parser.ParseUnverified(token, mc); err != nil {
			return Claims{}, err
		}
	}
	return claimsFromMap(mc)
}

func claimsFromMap(mc jwt.MapClaims) (Claims, error) {
	var c Claims
	c.Subject, _ = mc["sub"].(string)
	if c.Subject == "" {
		return Claims{}, errors.New("missing sub")
	}
	if exp, ok := mc["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(exp), 0)
	}
	if id, ok := mc["userId"].(float64); ok {
		c.UserID = int64(id)
	}
	c.Role = roleClaim(mc)
	return c, nil
}

func roleClaim(mc jwt.MapClaims) domain.Role {
	candidates := []any{mc["role"], mc["userRole"]}
	if roles, ok := mc["roles"].([]any); ok && len(roles) > 0 {
		candidates = append(candidates, roles[0])
	}
	for _, c := range candidates {
		s, ok := c.(string)
		if !ok {
			continue
		}
		if r, ok := domain.ParseRole(s); ok {
			return r
		}
	}
	return ""
}
