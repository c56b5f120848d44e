package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// callerIP reports the caller's address for the audit fields. Best effort:
// first X-Forwarded-For hop, then X-Real-Ip, then "unknown". Never an error;
// these fields carry no behavioral contract.
func callerIP(ctx *gin.Context) string {
	if fwd := ctx.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")

		first = strings.TrimSpace(first)

		if first != "" {
			return first
		}
	}

	if real := ctx.GetHeader("X-Real-Ip"); real != "" {
		return real
	}

	return "unknown"
}
