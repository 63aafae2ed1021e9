package job

import (
	"context"

	"sentinel-ledger/internal/ledger/monitor"

	"go.uber.org/zap"
)

// QueryCache 由 query.Client 实现
type QueryCache interface {
	GC()
	Len() int
}

// CacheGC 清理空闲查询并上报条目数
type CacheGC struct {
	cache QueryCache
	tl    *zap.Logger
}

func NewCacheGC(cache QueryCache, logger *zap.Logger) *CacheGC {
	return &CacheGC{cache: cache, tl: logger}
}

func (j *CacheGC) Run(ctx context.Context) error {
	before := j.cache.Len()
	j.cache.GC()
	after := j.cache.Len()
	monitor.QueryCacheEntries.Set(float64(after))
	if before != after {
		j.tl.Debug("query cache collected", zap.Int("before", before), zap.Int("after", after))
	}
	return nil
}
