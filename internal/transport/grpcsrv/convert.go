package grpcsrv

import (
	"time"

	"github.com/aegisline/corectl/internal/vault"
)

func claimsToMsg(c vault.Claims) ClaimsMsg {
	return ClaimsMsg{
		ID:        c.ID,
		Subject:   c.Subject,
		Audience:  c.Audience,
		Type:      string(c.Type),
		Roles:     c.Roles,
		Scopes:    c.Scopes,
		IssuedAt:  c.IssuedAt.Unix(),
		NotBefore: c.NotBefore.Unix(),
		ExpiresAt: c.ExpiresAt.Unix(),
		KeyID:     c.KeyID,
		Custom:    c.Custom,
	}
}

func msgToClaims(m ClaimsMsg) vault.Claims {
	return vault.Claims{
		ID:        m.ID,
		Subject:   m.Subject,
		Audience:  m.Audience,
		Type:      vault.TokenType(m.Type),
		Roles:     m.Roles,
		Scopes:    m.Scopes,
		IssuedAt:  time.Unix(m.IssuedAt, 0).UTC(),
		NotBefore: time.Unix(m.NotBefore, 0).UTC(),
		ExpiresAt: time.Unix(m.ExpiresAt, 0).UTC(),
		KeyID:     m.KeyID,
		Custom:    m.Custom,
	}
}

func secretToMsg(s vault.Secret) SecretMsg {
	msg := SecretMsg{
		Key:       s.Key,
		CreatedAt: s.CreatedAt.Unix(),
		UpdatedAt: s.UpdatedAt.Unix(),
		Version:   s.Version,
		Labels:    s.Labels,
	}
	if s.ExpiresAt != nil {
		msg.ExpiresAt = s.ExpiresAt.Unix()
	}
	return msg
}
