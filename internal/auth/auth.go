// Package auth implements the bearer-token validator collaborator (§6),
// grounded on
// original_source/crates/apollo-mcp-server/src/auth/valid_token.rs: decode
// the unverified header to find `kid`, walk the configured authorization
// servers fetching the matching JWK, validate the signature with the
// algorithm the JWK names, then check audience and expiry. A token that
// fails at any step is treated as simply absent, never as an error.
//
// JWK-set fetching uses lestrrat-go/jwx (seen across the retrieval pack's
// JWT-handling repos), layered under golang-jwt/jwt/v5 — already one of
// the teacher's dependencies — for the actual decode/verify step.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// supportedAlgorithms is the exact set the original validates: other JWK
// algorithms are skipped with a warning rather than rejected as an error.
var supportedAlgorithms = map[string]bool{
	"HS256": true, "HS384": true, "HS512": true,
	"ES256": true, "ES384": true,
	"RS256": true, "RS384": true, "RS512": true,
	"PS256": true, "PS384": true, "PS512": true,
	"EdDSA": true,
}

// ValidToken marks a bearer token that has passed full validation. It is
// attached to a request as a per-call extension; its presence is what the
// executor's header-merging step checks before overlaying an Authorization
// header on the upstream call.
type ValidToken struct {
	Raw string
}

// Validator validates bearer tokens against a set of authorization
// servers and an allowed audience list.
type Validator struct {
	servers   []string
	audiences []string
	log       logr.Logger

	mu      sync.Mutex
	keySets map[string]jwk.Set
}

// NewValidator builds a Validator. servers are JWKS endpoint URLs;
// audiences are the accepted `aud` claim values.
func NewValidator(servers, audiences []string, log logr.Logger) *Validator {
	return &Validator{
		servers:   servers,
		audiences: audiences,
		log:       log,
		keySets:   make(map[string]jwk.Set),
	}
}

// Validate attempts to validate raw as a bearer token. A false return means
// the token is absent from the caller's perspective — never an error.
func (v *Validator) Validate(ctx context.Context, raw string) (*ValidToken, bool) {
	if raw == "" {
		return nil, false
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, false
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, false
	}

	for _, server := range v.servers {
		set, err := v.keySetFor(ctx, server)
		if err != nil {
			continue
		}

		key, ok := set.LookupKeyID(kid)
		if !ok {
			continue
		}

		alg := key.Algorithm().String()
		if !supportedAlgorithms[alg] {
			v.log.Info("skipping JWT signed by unsupported algorithm", "algorithm", alg)
			continue
		}

		var rawKey any
		if err := key.Raw(&rawKey); err != nil {
			continue
		}

		parsed, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return rawKey, nil },
			jwt.WithValidMethods([]string{alg}))
		if err != nil {
			v.log.Info("token failed validation", "error", err.Error())
			continue
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok || !v.audienceMatches(claims) {
			continue
		}

		return &ValidToken{Raw: raw}, true
	}

	v.log.V(1).Info("token did not pass validation")
	return nil, false
}

func (v *Validator) audienceMatches(claims jwt.MapClaims) bool {
	if len(v.audiences) == 0 {
		return true
	}

	var tokenAudiences []string
	switch aud := claims["aud"].(type) {
	case string:
		tokenAudiences = []string{aud}
	case []any:
		for _, a := range aud {
			if s, ok := a.(string); ok {
				tokenAudiences = append(tokenAudiences, s)
			}
		}
	}

	for _, want := range v.audiences {
		for _, got := range tokenAudiences {
			if want == got {
				return true
			}
		}
	}
	return false
}

func (v *Validator) keySetFor(ctx context.Context, server string) (jwk.Set, error) {
	v.mu.Lock()
	if set, ok := v.keySets[server]; ok {
		v.mu.Unlock()
		return set, nil
	}
	v.mu.Unlock()

	set, err := jwk.Fetch(ctx, server)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks from %s: %w", server, err)
	}

	v.mu.Lock()
	v.keySets[server] = set
	v.mu.Unlock()
	return set, nil
}
