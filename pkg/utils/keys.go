package utils

import "fmt"

// StorageKey 设置存储在 Redis 中的 key，例如 sentinel:settings
func StorageKey(prefix, key string) string {
	return fmt.Sprintf("%s%s", prefix, key)
}

// TopicSubscriptionID 实时订阅 id 统一使用小写地址
func TopicSubscriptionID(address string) string {
	return NormalizeAddress(address)
}
