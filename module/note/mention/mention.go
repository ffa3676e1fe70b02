// Package mention 从笔记正文中解析 @name 并解析为目录中的启用用户。
package mention

import (
	"context"
	"errors"
	"regexp"

	usermodel "CollabNotes/module/user/model"
	"CollabNotes/tools/errs"
)

var tokenRe = regexp.MustCompile(`@(\w+)`)

// Directory 只需要按名字查启用用户
type Directory interface {
	FindActiveByName(ctx context.Context, name string) (*usermodel.User, error)
}

// Extract 按出现顺序返回 @ 后的名字，保留重复
func Extract(text string) []string {
	matches := tokenRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// Resolve 逐个 token 查目录：未命中的丢弃，顺序和重复保留。
// 同一次扫描内重复的名字只查一次目录。
func Resolve(ctx context.Context, dir Directory, text string) ([]usermodel.Identity, error) {
	tokens := Extract(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	type hit struct {
		id usermodel.Identity
		ok bool
	}
	cache := make(map[string]hit, len(tokens))
	out := make([]usermodel.Identity, 0, len(tokens))
	for _, tok := range tokens {
		h, seen := cache[tok]
		if !seen {
			u, err := dir.FindActiveByName(ctx, tok)
			switch {
			case err == nil:
				h = hit{id: u.Identity(), ok: true}
			case errors.Is(err, errs.ErrNotFound):
			default:
				return nil, errs.WrapMsg(err, "resolve mention", "name", tok)
			}
			cache[tok] = h
		}
		if h.ok {
			out = append(out, h.id)
		}
	}
	return out, nil
}

// NetNew 返回 next 中不在 prior 里的身份，按首次出现排序并去重
func NetNew(prior []string, next []usermodel.Identity) []usermodel.Identity {
	seen := make(map[string]struct{}, len(prior)+len(next))
	for _, id := range prior {
		seen[id] = struct{}{}
	}
	var out []usermodel.Identity
	for _, ident := range next {
		if _, ok := seen[ident.ID]; ok {
			continue
		}
		seen[ident.ID] = struct{}{}
		out = append(out, ident)
	}
	return out
}

// IDs 保序取 id
func IDs(idents []usermodel.Identity) []string {
	out := make([]string, 0, len(idents))
	for _, i := range idents {
		out = append(out, i.ID)
	}
	return out
}
