package query

import (
	"net/url"
	"sort"
	"strings"
)

// Key 标识一条缓存。Resource 用 / 分层，例如 tokens/detail
type Key struct {
	Resource string
	Params   map[string]string
}

// NewKey kv 按 key, value 成对传入，多余的单个参数忽略
func NewKey(resource string, kv ...string) Key {
	k := Key{Resource: resource}
	if len(kv) >= 2 {
		k.Params = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			k.Params[kv[i]] = kv[i+1]
		}
	}
	return k
}

// With 返回附加参数后的新 Key，原 Key 不变
func (k Key) With(name, value string) Key {
	params := make(map[string]string, len(k.Params)+1)
	for n, v := range k.Params {
		params[n] = v
	}
	params[name] = value
	return Key{Resource: k.Resource, Params: params}
}

// String 规范形式，与参数顺序无关
func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Resource
	}
	names := make([]string, 0, len(k.Params))
	for n := range k.Params {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(k.Resource)
	b.WriteByte('?')
	for i, n := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(n))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(k.Params[n]))
	}
	return b.String()
}

// Matches prefix 的资源是 k 的资源本身或其上层，且 prefix 的参数全部相等
func (k Key) Matches(prefix Key) bool {
	if k.Resource != prefix.Resource && !strings.HasPrefix(k.Resource, prefix.Resource+"/") {
		return false
	}
	for n, v := range prefix.Params {
		if got, ok := k.Params[n]; !ok || got != v {
			return false
		}
	}
	return true
}
