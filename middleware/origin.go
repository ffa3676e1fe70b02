package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// Origin 校验 websocket 握手的 Origin；allowed 为空表示不限制，"*" 放行所有
func Origin(path string, allowed []string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	allowAll := false
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "*" {
			allowAll = true
		}
		set[o] = struct{}{}
	}
	return func(c *gin.Context) {
		if len(set) == 0 || allowAll || c.Request.URL.Path != path {
			c.Next()
			return
		}
		origin := c.GetHeader("Origin")
		// 非浏览器客户端不带 Origin
		if origin == "" {
			c.Next()
			return
		}
		if _, ok := set[normalizeOrigin(origin)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "origin not allowed"})
			return
		}
		c.Next()
	}
}

func normalizeOrigin(o string) string {
	u, err := url.Parse(strings.TrimSpace(o))
	if err != nil || u.Host == "" {
		return strings.ToLower(o)
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}
