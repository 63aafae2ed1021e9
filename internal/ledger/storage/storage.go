package storage

import "errors"

// 两条逻辑记录，与前端 localStorage 的键保持一致
const (
	KeySettings = "settings"
	KeyAPIKey   = "apiKey"
)

var ErrClosed = errors.New("storage closed")

// KV 同步的键值持久化接口，等价于浏览器 localStorage
type KV interface {
	// Get 返回值以及是否存在
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}
