package middleware

import (
	"net/http"
	"strings"

	"github.com/anoixa/tidypics/api/common"
	"github.com/anoixa/tidypics/utils"
	"github.com/gin-gonic/gin"
)

// TokenParser 解析访问令牌得到用户 GUID
type TokenParser interface {
	ParseToken(token string) (uint, error)
}

// RequireAuth 要求有效的 Bearer 令牌
func RequireAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "No valid Authorization request header")
			return
		}

		userGUID, err := parser.ParseToken(token)
		if err != nil {
			common.RespondErrorAbort(c, http.StatusUnauthorized, err.Error())
			return
		}

		c.Set(utils.ContextUserIDKey, userGUID)
		c.Next()
	}
}

// OptionalAuth 携带有效令牌时记录用户，否则按匿名访问继续
func OptionalAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if userGUID, err := parser.ParseToken(token); err == nil {
				c.Set(utils.ContextUserIDKey, userGUID)
			}
		}
		c.Next()
	}
}

// CurrentUser 返回当前用户 GUID，匿名为 0
func CurrentUser(c *gin.Context) uint {
	return c.GetUint(utils.ContextUserIDKey)
}

func bearerToken(c *gin.Context) (string, bool) {
	scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
	if !found || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}
