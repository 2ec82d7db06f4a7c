package transport

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// InspectBearerToken parses a bearer or OAuth2 access token structurally,
// without verifying its signature, so diagnostics can report the
// subject and expiry a device presented without requiring the issuer's
// signing key. Hooks should still treat the token as opaque for actual
// authentication; this is read-only introspection.
func InspectBearerToken(token string) (jwt.MapClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("transport: cannot parse bearer token structure: %w", err)
	}
	return claims, nil
}

// Validate checks that an Authentication value carries the fields its
// Type requires.
func (a Authentication) Validate() error {
	switch a.Type {
	case "", AuthNone:
		return nil
	case AuthBasic, AuthDigest:
		if a.Username == "" {
			return fmt.Errorf("transport: %s authentication requires a username", a.Type)
		}
	case AuthBearer:
		if a.BearerToken == "" {
			return fmt.Errorf("transport: bearer authentication requires a token")
		}
		if _, err := InspectBearerToken(a.BearerToken); err != nil {
			return fmt.Errorf("transport: bearer token is not structurally valid: %w", err)
		}
	case AuthAPIKey:
		if a.APIKey == "" {
			return fmt.Errorf("transport: api_key authentication requires a key")
		}
	case AuthOAuth2:
		if a.OAuth2ClientID == "" || a.OAuth2TokenURL == "" {
			return fmt.Errorf("transport: oauth2 authentication requires a client id and token url")
		}
	case AuthCustom:
		if len(a.CustomParameters) == 0 {
			return fmt.Errorf("transport: custom authentication requires at least one parameter")
		}
	default:
		return fmt.Errorf("transport: unknown authentication type %q", a.Type)
	}
	return nil
}
