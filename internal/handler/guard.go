package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wagerescrow/internal/address"
	"wagerescrow/internal/auth"
)

// Guard builds the middleware chains for role-restricted routes.
type Guard struct {
	JWT auth.JWT
}

func (g Guard) with(h gin.HandlerFunc, roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{auth.Middleware(g.JWT), auth.RequireRole(roles...), h}
}

// actor returns the address the caller authenticated as.
func actor(c *gin.Context) (address.Address, bool) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "missing token", nil)
		return address.Address{}, false
	}
	a, err := address.Parse(claims.Subject)
	if err != nil {
		Error(c, http.StatusUnauthorized, "invalid token subject", nil)
		return address.Address{}, false
	}
	return a, true
}
