package app

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/charlesng35/dbpanel/internal/auth"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// BcryptCost clamps the configured password cost to the range bcrypt accepts.
func (c AuthConfig) BcryptCost() int {
	switch {
	case c.PasswordCost <= 0:
		return bcrypt.DefaultCost
	case c.PasswordCost < bcrypt.MinCost:
		return bcrypt.MinCost
	case c.PasswordCost > bcrypt.MaxCost:
		return bcrypt.MaxCost
	default:
		return c.PasswordCost
	}
}
