package chat

import (
	"context"
	"strings"

	usermodel "CollabNotes/module/user/model"
	"CollabNotes/tools/errs"
	"CollabNotes/tools/security"

	"go.uber.org/zap"
)

// Gate 握手认证：校验 JWT 并解析为启用状态的用户
type Gate struct {
	opts security.Options
	dir  Directory
	log  *zap.Logger
}

func NewGate(opts security.Options, dir Directory, log *zap.Logger) *Gate {
	return &Gate{opts: opts, dir: dir, log: log}
}

func (g *Gate) Authenticate(ctx context.Context, token string) (usermodel.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return usermodel.Identity{}, errs.ErrAuthentication.WrapMsg("Authentication token missing")
	}
	claims, err := security.Verify(g.opts, token)
	if err != nil {
		g.log.Debug("token rejected", zap.String("token", security.HashToken(token)), zap.Error(err))
		return usermodel.Identity{}, errs.ErrAuthentication.WrapMsg("Invalid token")
	}
	userID := claims.Subject()
	if userID == "" {
		return usermodel.Identity{}, errs.ErrAuthentication.WrapMsg("Invalid token")
	}
	u, err := g.dir.FindByID(ctx, userID)
	if err != nil || u == nil || !u.IsActive {
		if err != nil && !errs.ErrNotFound.Is(err) {
			g.log.Warn("directory lookup failed", zap.String("userID", userID), zap.Error(err))
		}
		return usermodel.Identity{}, errs.ErrAuthentication.WrapMsg("User not found or inactive")
	}
	return u.Identity(), nil
}
