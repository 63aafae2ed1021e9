package storage

import (
	"strings"

	"go.uber.org/zap"
)

// Credentials 管理持久化的 bearer token
type Credentials struct {
	kv KV
	tl *zap.Logger
}

func NewCredentials(kv KV, tl *zap.Logger) *Credentials {
	return &Credentials{kv: kv, tl: tl}
}

// Token 读取失败按未登录处理
func (c *Credentials) Token() string {
	v, ok, err := c.kv.Get(KeyAPIKey)
	if err != nil {
		c.tl.Warn("read credential failed", zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func (c *Credentials) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return c.Clear()
	}
	return c.kv.Set(KeyAPIKey, token)
}

func (c *Credentials) Clear() error {
	return c.kv.Delete(KeyAPIKey)
}
