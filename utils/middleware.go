package utils

import (
	"os"
	"strings"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// UserIDFromTokenMiddleware extracts the user ID from a verified JWT and
// stores it in the request context for downstream handlers.
func UserIDFromTokenMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	ctx.Values().Set("userID", claims.ID)
	ctx.Next()
}

// CurrentUserID returns the authenticated user's ID, or false when the
// request carries no valid session. Unlike the verifier middleware it never
// rejects the request: no token, a bad token, or missing configuration all
// read as anonymous.
func CurrentUserID(ctx iris.Context) (uint, bool) {
	if v := ctx.Values().Get("userID"); v != nil {
		if id, ok := v.(uint); ok && id != 0 {
			return id, true
		}
	}

	secret := os.Getenv("ACCESS_TOKEN_SECRET")
	if secret == "" {
		return 0, false
	}

	raw := ctx.GetHeader("Authorization")
	if !strings.HasPrefix(raw, "Bearer ") {
		return 0, false
	}

	verifier := jwt.NewVerifier(jwt.HS256, []byte(secret))
	verified, err := verifier.VerifyToken([]byte(strings.TrimPrefix(raw, "Bearer ")))
	if err != nil {
		return 0, false
	}

	var claims AccessToken
	if err := verified.Claims(&claims); err != nil || claims.ID == 0 {
		return 0, false
	}

	return claims.ID, true
}
