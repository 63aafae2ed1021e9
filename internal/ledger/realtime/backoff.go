package realtime

import "time"

// Backoff 第 retry 次重连前的等待：min * 2^retry，不超过 max
func Backoff(retry int, min, max time.Duration) time.Duration {
	if retry < 0 {
		return min
	}
	// 2^30 秒级延迟早已超过上限
	if retry > 30 {
		return max
	}
	d := min * time.Duration(1<<retry)
	if d > max || d <= 0 {
		return max
	}
	return d
}
