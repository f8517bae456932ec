package vault

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes the three credential shapes the Vault mints.
// Mirrors the access/refresh distinction the gourdiantoken library draws
// between AccessTokenClaims and RefreshTokenClaims, generalized with a
// third service-to-service variant.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
	TokenService TokenType = "service"
)

// Claims is the decoded contents of a token: subject, audience, issue/expiry
// times, roles, scopes, and custom fields. Field tags follow the
// gourdiantoken library's short-JSON-tag convention.
type Claims struct {
	ID        string                 `json:"jti"`
	Subject   string                 `json:"sub"`
	Audience  string                 `json:"aud"`
	Type      TokenType              `json:"typ"`
	Roles     []string               `json:"rls"`
	Scopes    []string               `json:"scp,omitempty"`
	IssuedAt  time.Time              `json:"iat"`
	NotBefore time.Time              `json:"nbf"`
	ExpiresAt time.Time              `json:"exp"`
	KeyID     string                 `json:"kid"`
	Custom    map[string]interface{} `json:"cst,omitempty"`
}

// jwtClaims is the on-the-wire MapClaims-compatible shape. KeyID never
// round-trips through the body: it lives in the JOSE header, and every
// token minted here carries one.
type jwtClaims struct {
	Roles  []string               `json:"rls"`
	Scopes []string               `json:"scp,omitempty"`
	Typ    TokenType              `json:"typ"`
	Custom map[string]interface{} `json:"cst,omitempty"`
	jwt.RegisteredClaims
}

func claimsToJWT(c Claims) jwtClaims {
	return jwtClaims{
		Roles:  c.Roles,
		Scopes: c.Scopes,
		Typ:    c.Type,
		Custom: c.Custom,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        c.ID,
			Subject:   c.Subject,
			Audience:  jwt.ClaimStrings{c.Audience},
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			NotBefore: jwt.NewNumericDate(c.NotBefore),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
	}
}

func jwtToClaims(jc jwtClaims, keyID string) Claims {
	var aud string
	if len(jc.Audience) > 0 {
		aud = jc.Audience[0]
	}
	c := Claims{
		ID:       jc.ID,
		Subject:  jc.Subject,
		Audience: aud,
		Type:     jc.Typ,
		Roles:    jc.Roles,
		Scopes:   jc.Scopes,
		KeyID:    keyID,
		Custom:   jc.Custom,
	}
	if jc.IssuedAt != nil {
		c.IssuedAt = jc.IssuedAt.Time
	}
	if jc.NotBefore != nil {
		c.NotBefore = jc.NotBefore.Time
	}
	if jc.ExpiresAt != nil {
		c.ExpiresAt = jc.ExpiresAt.Time
	}
	return c
}
