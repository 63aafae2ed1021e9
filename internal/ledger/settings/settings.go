package settings

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

const (
	ChainBase     = "base"
	ChainEthereum = "ethereum"
	ChainBoth     = "both"

	ThemeDark  = "dark"
	ThemeLight = "light"

	MinRefreshInterval = time.Second
)

// AlertTypes 按告警类型的开关
type AlertTypes struct {
	HighRisk       bool `json:"highRisk"`
	NewDeployments bool `json:"newDeployments"`
	RugDetected    bool `json:"rugDetected"`
}

// Settings 用户偏好。Extra 保存当前版本不认识的键，写回时原样保留
type Settings struct {
	DefaultChain    string     `json:"defaultChain"`
	RefreshInterval int64      `json:"refreshInterval"` // 毫秒
	AlertsEnabled   bool       `json:"alertsEnabled"`
	AlertTypes      AlertTypes `json:"alertTypes"`
	RiskThreshold   int        `json:"riskThreshold"`
	Theme           string     `json:"theme"`
	DefaultView     string     `json:"defaultView"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Defaults 内置默认值
func Defaults() Settings {
	return Settings{
		DefaultChain:    ChainBase,
		RefreshInterval: 30000,
		AlertsEnabled:   true,
		AlertTypes: AlertTypes{
			HighRisk:       true,
			NewDeployments: true,
			RugDetected:    true,
		},
		RiskThreshold: 50,
		Theme:         ThemeDark,
		DefaultView:   "dashboard",
	}
}

// Refresh 轮询间隔
func (s Settings) Refresh() time.Duration {
	d := time.Duration(s.RefreshInterval) * time.Millisecond
	if d < MinRefreshInterval {
		return MinRefreshInterval
	}
	return d
}

// Clone 深拷贝 Extra，避免观察者之间共享 map
func (s Settings) Clone() Settings {
	if s.Extra != nil {
		extra := make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			extra[k] = v
		}
		s.Extra = extra
	}
	return s
}

// Patch 顶层字段的部分更新，nil 表示不修改。AlertTypes 整体替换
type Patch struct {
	DefaultChain    *string
	RefreshInterval *int64
	AlertsEnabled   *bool
	AlertTypes      *AlertTypes
	RiskThreshold   *int
	Theme           *string
	DefaultView     *string
}

func (p Patch) apply(s Settings) Settings {
	if p.DefaultChain != nil {
		s.DefaultChain = *p.DefaultChain
	}
	if p.RefreshInterval != nil {
		s.RefreshInterval = *p.RefreshInterval
	}
	if p.AlertsEnabled != nil {
		s.AlertsEnabled = *p.AlertsEnabled
	}
	if p.AlertTypes != nil {
		s.AlertTypes = *p.AlertTypes
	}
	if p.RiskThreshold != nil {
		s.RiskThreshold = *p.RiskThreshold
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.DefaultView != nil {
		s.DefaultView = *p.DefaultView
	}
	return s
}

func validChain(chain string) bool {
	switch chain {
	case ChainBase, ChainEthereum, ChainBoth:
		return true
	}
	return false
}

// normalize 修正越界值
func normalize(s Settings) Settings {
	if s.RiskThreshold < 0 {
		s.RiskThreshold = 0
	}
	if s.RiskThreshold > 100 {
		s.RiskThreshold = 100
	}
	if s.RefreshInterval < MinRefreshInterval.Milliseconds() {
		s.RefreshInterval = MinRefreshInterval.Milliseconds()
	}
	return s
}

// encode 已知字段与 Extra 合并成一个 JSON 对象
func encode(s Settings) ([]byte, error) {
	fields, err := toFields(s)
	if err != nil {
		return nil, err
	}
	for k, v := range s.Extra {
		if _, known := fields[k]; !known {
			fields[k] = v
		}
	}
	return sonic.Marshal(fields)
}

func toFields(s Settings) (map[string]json.RawMessage, error) {
	raw, err := sonic.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	fields := make(map[string]json.RawMessage)
	if err := sonic.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return fields, nil
}

// merge 浅合并：overlay 中的顶层键覆盖 base
func merge(base Settings, overlay map[string]json.RawMessage) (Settings, error) {
	fields, err := toFields(base)
	if err != nil {
		return base, err
	}
	known := make(map[string]struct{}, len(fields))
	for k := range fields {
		known[k] = struct{}{}
	}
	for k, v := range overlay {
		fields[k] = v
	}

	raw, err := sonic.Marshal(fields)
	if err != nil {
		return base, err
	}
	var out Settings
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return base, fmt.Errorf("decode settings: %w", err)
	}

	for k, v := range base.Extra {
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[k] = v
	}
	for k, v := range overlay {
		if _, ok := known[k]; ok {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[k] = v
	}
	return out, nil
}
