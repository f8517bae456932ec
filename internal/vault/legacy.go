package vault

import (
	"strings"

	jwtv4 "github.com/golang-jwt/jwt/v4"
	"github.com/golang-jwt/jwt/v5"
)

// looksLikeJWT is a cheap structural check (three dot-separated segments)
// used by Service.Revoke to decide whether it was handed a raw token-id or
// a full token string.
func looksLikeJWT(s string) bool {
	return strings.Count(s, ".") == 2
}

// decodeClaimsUnverified parses token without verifying its signature, to
// recover the token-id for revocation purposes even if the token itself has
// since expired. This is the only place an unverified parse is permitted:
// revocation must work against the id, not against whether the token is
// currently valid.
func decodeClaimsUnverified(token string) (Claims, error) {
	var claims jwtClaims
	parser := jwt.NewParser()
	t, _, err := parser.ParseUnverified(token, &claims)
	if err != nil {
		return Claims{}, err
	}
	kid, _ := t.Header["kid"].(string)
	return jwtToClaims(claims, kid), nil
}

// legacyClaims is the v1-era claim shape auth.go's ParseTokenV2
// "v1-then-v2" compatibility path falls back to decoding, kept here so a
// token signed before a migration to this Vault is still recoverable for
// revocation during the migration window. It is never accepted by
// Validate: only generate-token/refresh issue v5 tokens.
type legacyClaims struct {
	UserID string `json:"user_id"`
	jwtv4.RegisteredClaims
}

// decodeLegacyUnverified best-effort decodes a pre-migration v4-signed
// token far enough to recover a subject for operator tooling (e.g. a
// migration report); it is not part of the validate-token contract.
func decodeLegacyUnverified(token string) (string, error) {
	var claims legacyClaims
	parser := jwtv4.NewParser()
	_, _, err := parser.ParseUnverified(token, &claims)
	if err != nil {
		return "", err
	}
	if claims.UserID != "" {
		return claims.UserID, nil
	}
	return claims.Subject, nil
}
