package mongoutil

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"CollabNotes/data/database"
	"CollabNotes/tools/errs"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	defaultMaxPoolSize = 100
	defaultMaxRetry    = 3
)

func buildMongoURI(config *Config, authSource string) string {
	credentials := ""
	if config.Username != "" && config.Password != "" {
		credentials = fmt.Sprintf("%s:%s@", config.Username, config.Password)
	}

	return fmt.Sprintf(
		"mongodb://%s%s/%s?authSource=%s&maxPoolSize=%d",
		credentials,
		strings.Join(config.Address, ","),
		config.Database,
		authSource,
		config.MaxPoolSize,
	)
}

// shouldRetry determines whether an error should trigger a retry.
func shouldRetry(ctx context.Context, err error) bool {
	select {
	case <-ctx.Done():
		return false
	default:
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) {
			// 13 Unauthorized / 18 AuthenticationFailed 重试无意义
			return cmdErr.Code != 13 && cmdErr.Code != 18
		}
		return true
	}
}

// ObjectID 解析 hex id；非法 id 与不存在同等对待
func ObjectID(hex string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// ObjectIDs 批量解析，跳过非法 id
func ObjectIDs(hexes []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		if oid, ok := ObjectID(h); ok {
			out = append(out, oid)
		}
	}
	return out
}

// Hexes ObjectID 转 hex 字符串
func Hexes(oids []primitive.ObjectID) []string {
	out := make([]string, 0, len(oids))
	for _, o := range oids {
		out = append(out, o.Hex())
	}
	return out
}

// NotFoundOr 把 ErrNoDocuments 转成 errs.ErrNotFound，其余加栈返回
func NotFoundOr(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.ErrNotFound.WrapMsg(what + " not found")
	}
	return errs.WrapMsg(err, "mongo "+what)
}

// Collection 按模型取集合
func Collection(db *mongo.Database, t database.Table) *mongo.Collection {
	return db.Collection(t.GetTableName())
}
