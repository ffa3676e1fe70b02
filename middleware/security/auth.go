package security

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// context key，后续 handler 统一用它读取
const (
	CtxTokenKey = "authorization" // string
)

type Options struct {
	HeaderToken               string // 默认 "authorization"
	QueryToken                string // 默认 "token"，浏览器 websocket 无法带头部
	EnableAuthorizationBearer bool   // 默认 true
	Required                  bool   // 缺 token 时直接 401；/ws 由握手自己拒绝，默认 false
}

func DefaultOptions() *Options {
	return &Options{
		HeaderToken:               CtxTokenKey,
		QueryToken:                "token",
		EnableAuthorizationBearer: true,
	}
}

// ExtractToken 依次读 query、自定义头、Authorization: Bearer
func ExtractToken(c *gin.Context, opts *Options) string {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.QueryToken != "" {
		if t := strings.TrimSpace(c.Query(opts.QueryToken)); t != "" {
			return t
		}
	}
	if opts.HeaderToken != "" {
		if t := strings.TrimSpace(c.GetHeader(opts.HeaderToken)); t != "" {
			if !strings.HasPrefix(strings.ToLower(t), "bearer ") {
				return t
			}
		}
	}
	if opts.EnableAuthorizationBearer {
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				return strings.TrimSpace(authz[len("bearer "):])
			}
		}
	}
	return ""
}

// Middleware 把 token 放进 context；校验交给具体入口
func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions()
	}
	return func(c *gin.Context) {
		token := ExtractToken(c, opts)
		if token != "" {
			c.Set(CtxTokenKey, token)
		} else if opts.Required {
			c.AbortWithStatusJSON(401, gin.H{"code": 401, "message": "Authentication token missing"})
			return
		}
		c.Next()
	}
}

// TokenFrom 读取 Middleware 写入的 token
func TokenFrom(c *gin.Context) string {
	if v, ok := c.Get(CtxTokenKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
