package handler

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"wagerescrow/internal/address"
	"wagerescrow/internal/amount"
)

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQueryPtr(c *gin.Context, key string) *bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return &b
		}
	}
	return nil
}

func strQueryPtr(c *gin.Context, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

func parseOrder(value string, allow map[string]string) string {
	key := strings.TrimSpace(strings.ToLower(value))
	if key == "" {
		return ""
	}
	if mapped, ok := allow[key]; ok {
		return mapped
	}
	return ""
}

func paginationMeta(limit, offset int, total int64) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	hasNext := int64(offset+limit) < total
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": hasNext,
	}
}

func boolPtr(v bool) *bool { return &v }

func addressParam(c *gin.Context, key string) (address.Address, bool) {
	a, err := address.Parse(c.Param(key))
	if err != nil {
		Error(c, 400, fmt.Sprintf("invalid %s: %v", key, err), nil)
		return address.Address{}, false
	}
	return a, true
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
}

// amountField resolves an amount given either in lamports or as a decimal
// token string; exactly one must be set.
func amountField(lamports int64, tokens string) (int64, error) {
	tokens = strings.TrimSpace(tokens)
	switch {
	case lamports != 0 && tokens != "":
		return 0, fmt.Errorf("%w: set either lamports or tokens, not both", errBadRequest)
	case tokens != "":
		return amount.ParseToken(tokens)
	default:
		return lamports, nil
	}
}
