package source

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// keyClaims are the claims Supabase puts into its legacy JWT API keys.
type keyClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// KeyInfo describes a Supabase API key. Opaque is set for keys that are
// not JWTs (the newer sb_publishable_/sb_secret_ keys); nothing else is
// known about those.
type KeyInfo struct {
	Role      string
	ExpiresAt *time.Time
	Opaque    bool
}

func (k KeyInfo) Anon() bool { return k.Role == "anon" }

// InspectKey reads the claims of a Supabase API key without verifying the
// signature; the server does that. An expired key is a configuration error.
func InspectKey(key string, now time.Time) (KeyInfo, error) {
	claims := &keyClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return KeyInfo{Opaque: true}, nil
	}

	info := KeyInfo{Role: claims.Role}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		info.ExpiresAt = &exp
		if !exp.After(now) {
			return info, fmt.Errorf("%w: supabase key (role %q) expired at %s", common.ErrConfig, claims.Role, exp.Format(time.RFC3339))
		}
	}
	return info, nil
}
