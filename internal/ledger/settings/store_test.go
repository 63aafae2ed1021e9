package settings

import (
	"errors"
	"sync"
	"testing"

	"sentinel-ledger/internal/ledger/notify"
	"sentinel-ledger/internal/ledger/storage"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingKV struct {
	*storage.MemoryStore
}

func (f failingKV) Set(string, string) error {
	return errors.New("quota exceeded")
}

func newStore(t *testing.T, kv storage.KV) (*Store, *notify.Hub) {
	t.Helper()
	hub := notify.NewHub(zap.NewNop(), 10)
	return NewStore(kv, hub, zap.NewNop()), hub
}

func TestLoadMergesPersistedOverDefaults(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(storage.KeySettings, `{"riskThreshold":70}`))

	store, _ := newStore(t, kv)
	got := store.Load()

	want := Defaults()
	want.RiskThreshold = 70
	assert.Equal(t, want.RiskThreshold, got.RiskThreshold)
	assert.Equal(t, want.DefaultChain, got.DefaultChain)
	assert.Equal(t, want.RefreshInterval, got.RefreshInterval)
	assert.Equal(t, want.AlertTypes, got.AlertTypes)
	assert.Equal(t, want.Theme, got.Theme)
	assert.Equal(t, want.DefaultView, got.DefaultView)
	assert.True(t, got.AlertsEnabled)
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	cases := map[string]string{
		"absent":     "",
		"not json":   "{riskThreshold:",
		"array":      `[1,2,3]`,
		"wrong type": `{"riskThreshold":"high"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			kv := storage.NewMemoryStore()
			if raw != "" {
				require.NoError(t, kv.Set(storage.KeySettings, raw))
			}
			store, _ := newStore(t, kv)
			got := store.Load()
			assert.Equal(t, Defaults().RiskThreshold, got.RiskThreshold)
			assert.Equal(t, Defaults().DefaultChain, got.DefaultChain)
		})
	}
}

func TestUnknownKeysSurviveRoundTrip(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(storage.KeySettings, `{"riskThreshold":40,"compactTables":true}`))

	store, _ := newStore(t, kv)
	store.Load()

	theme := ThemeLight
	_, err := store.Update(Patch{Theme: &theme})
	require.NoError(t, err)

	raw, ok, err := kv.Get(storage.KeySettings)
	require.NoError(t, err)
	require.True(t, ok)

	var persisted map[string]any
	require.NoError(t, sonic.UnmarshalString(raw, &persisted))
	assert.Equal(t, true, persisted["compactTables"])
	assert.Equal(t, "light", persisted["theme"])
	assert.EqualValues(t, 40, persisted["riskThreshold"])
}

func TestUpdateReplacesNestedAlertTypes(t *testing.T) {
	store, _ := newStore(t, storage.NewMemoryStore())
	store.Load()

	got, err := store.Update(Patch{AlertTypes: &AlertTypes{HighRisk: true}})
	require.NoError(t, err)

	assert.Equal(t, AlertTypes{HighRisk: true}, got.AlertTypes)
	assert.Equal(t, Defaults().RiskThreshold, got.RiskThreshold)
}

func TestUpdateNotifiesObserversAndPersists(t *testing.T) {
	kv := storage.NewMemoryStore()
	store, _ := newStore(t, kv)
	store.Load()

	var seen []Settings
	cancel := store.Subscribe(func(s Settings) { seen = append(seen, s) })

	threshold := 85
	_, err := store.Update(Patch{RiskThreshold: &threshold})
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, 85, seen[0].RiskThreshold)

	reloaded, _ := newStore(t, kv)
	assert.Equal(t, 85, reloaded.Load().RiskThreshold)

	cancel()
	store.Reset()
	assert.Len(t, seen, 1)
}

func TestUpdateClampsAndValidates(t *testing.T) {
	store, _ := newStore(t, storage.NewMemoryStore())
	store.Load()

	threshold := 150
	interval := int64(10)
	got, err := store.Update(Patch{RiskThreshold: &threshold, RefreshInterval: &interval})
	require.NoError(t, err)
	assert.Equal(t, 100, got.RiskThreshold)
	assert.Equal(t, MinRefreshInterval.Milliseconds(), got.RefreshInterval)

	chain := "solana"
	_, err = store.Update(Patch{DefaultChain: &chain})
	assert.Error(t, err)
	assert.Equal(t, ChainBase, store.Current().DefaultChain)
}

func TestLoadClampsPersistedValues(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(storage.KeySettings, `{"riskThreshold":150,"refreshInterval":5}`))
	store, _ := newStore(t, kv)

	got := store.Load()
	assert.Equal(t, 100, got.RiskThreshold)
	assert.Equal(t, MinRefreshInterval.Milliseconds(), got.RefreshInterval)
	assert.Equal(t, MinRefreshInterval, got.Refresh())
}

func TestConcurrentUpdatesPersistLatest(t *testing.T) {
	kv := storage.NewMemoryStore()
	store, _ := newStore(t, kv)
	store.Load()

	var (
		mu   sync.Mutex
		last Settings
	)
	store.Subscribe(func(s Settings) {
		mu.Lock()
		last = s
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		threshold := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(Patch{RiskThreshold: &threshold})
			assert.NoError(t, err)
		}()
		if i%10 == 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				store.Reset()
			}()
		}
	}
	wg.Wait()

	current := store.Current()
	reloaded, _ := newStore(t, kv)
	assert.Equal(t, current.RiskThreshold, reloaded.Load().RiskThreshold)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, current.RiskThreshold, last.RiskThreshold)
}

func TestResetRestoresDefaults(t *testing.T) {
	kv := storage.NewMemoryStore()
	store, _ := newStore(t, kv)
	store.Load()

	view := "explorer"
	_, err := store.Update(Patch{DefaultView: &view})
	require.NoError(t, err)

	got := store.Reset()
	assert.Equal(t, Defaults().DefaultView, got.DefaultView)

	reloaded, _ := newStore(t, kv)
	assert.Equal(t, Defaults().DefaultView, reloaded.Load().DefaultView)
}

func TestWriteFailureIsNonFatal(t *testing.T) {
	store, hub := newStore(t, failingKV{storage.NewMemoryStore()})
	store.Load()

	threshold := 70
	got, err := store.Update(Patch{RiskThreshold: &threshold})
	require.NoError(t, err)
	assert.Equal(t, 70, got.RiskThreshold)
	assert.Equal(t, 70, store.Current().RiskThreshold)

	recent := hub.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, notify.LevelWarning, recent[0].Level)
	assert.Equal(t, "SETTINGS_NOT_SAVED", recent[0].Code)
}
