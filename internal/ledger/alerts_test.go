package ledger

import (
	"context"
	"sync/atomic"
	"testing"

	"sentinel-ledger/internal/ledger/model"
	"sentinel-ledger/internal/ledger/notify"
	"sentinel-ledger/internal/ledger/query"
	"sentinel-ledger/internal/ledger/realtime"
	"sentinel-ledger/internal/ledger/service"
	"sentinel-ledger/internal/ledger/settings"
	"sentinel-ledger/internal/ledger/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const tokenAddr = "0x1111111111111111111111111111111111111111"

type routerFixture struct {
	bus    *realtime.Bus
	store  *settings.Store
	query  *query.Client
	hub    *notify.Hub
	cancel []func()
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	tl := zap.NewNop()
	hub := notify.NewHub(tl, 20)
	store := settings.NewStore(storage.NewMemoryStore(), hub, tl)
	store.Load()
	qc := query.NewClient(query.Options{}, tl)
	bus := realtime.NewBus(realtime.Config{}, tl)

	f := &routerFixture{bus: bus, store: store, query: qc, hub: hub}
	f.cancel = NewAlertRouter(store, qc, hub, tl).Register(bus)
	return f
}

func (f *routerFixture) emit(topic, data string) {
	f.bus.Emit(topic, []byte(data))
}

func TestRiskAlertRespectsThreshold(t *testing.T) {
	f := newRouterFixture(t)
	threshold := 70
	_, err := f.store.Update(settings.Patch{RiskThreshold: &threshold})
	require.NoError(t, err)

	f.emit(model.EventRiskAlert, `{"token_address":"`+tokenAddr+`","risk_score":65}`)
	assert.Empty(t, f.hub.Recent())

	f.emit(model.EventHighRisk, `{"token_address":"`+tokenAddr+`","risk_score":88,"risk_level":"critical"}`)
	recent := f.hub.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, notify.LevelWarning, recent[0].Level)
	assert.Equal(t, model.EventRiskAlert, recent[0].Code)
	assert.Contains(t, recent[0].Message, "critical")
}

func TestAlertTogglesSuppressNotices(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.store.Update(settings.Patch{AlertTypes: &settings.AlertTypes{HighRisk: true}})
	require.NoError(t, err)
	f.emit(model.EventRugDetected, `{"token_address":"`+tokenAddr+`","risk_score":100}`)
	f.emit(model.EventNewToken, `{"address":"`+tokenAddr+`","chain":"base"}`)
	assert.Empty(t, f.hub.Recent())

	off := false
	_, err = f.store.Update(settings.Patch{AlertsEnabled: &off})
	require.NoError(t, err)
	f.emit(model.EventRiskAlert, `{"token_address":"`+tokenAddr+`","risk_score":99}`)
	assert.Empty(t, f.hub.Recent())
}

func TestRugDetectedRaisesError(t *testing.T) {
	f := newRouterFixture(t)
	f.emit(model.EventRugDetected, `{"token_address":"`+tokenAddr+`","risk_score":100}`)

	recent := f.hub.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, notify.LevelError, recent[0].Level)
}

func TestNewTokenFollowsDefaultChain(t *testing.T) {
	f := newRouterFixture(t)

	f.emit(model.EventNewToken, `{"address":"`+tokenAddr+`","chain":"ethereum"}`)
	assert.Empty(t, f.hub.Recent())

	f.emit(model.EventNewToken, `{"address":"`+tokenAddr+`","chain":"base"}`)
	require.Len(t, f.hub.Recent(), 1)
}

func TestLiquidityChangeInvalidatesTokenDetail(t *testing.T) {
	f := newRouterFixture(t)

	var calls atomic.Int32
	def := query.Definition[string]{
		Key: service.TokenDetailKey(tokenAddr),
		Fetch: func(context.Context) (string, error) {
			calls.Add(1)
			return "detail", nil
		},
		StaleTime: 1 << 40,
	}
	_, err := query.Get(context.Background(), f.query, def)
	require.NoError(t, err)
	_, err = query.Get(context.Background(), f.query, def)
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())

	f.emit(model.EventLiquidityChange, `{"token_address":"`+tokenAddr+`","change_percent":-80}`)
	_, err = query.Get(context.Background(), f.query, def)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
	assert.Empty(t, f.hub.Recent())
}

func TestMalformedPayloadIsIgnored(t *testing.T) {
	f := newRouterFixture(t)
	f.emit(model.EventRiskAlert, `"not an object"`)
	assert.Empty(t, f.hub.Recent())
}

func TestRegisterCancelRemovesHandlers(t *testing.T) {
	f := newRouterFixture(t)
	assert.Equal(t, 1, f.bus.Listeners(model.EventRiskAlert))
	for _, cancel := range f.cancel {
		cancel()
	}
	assert.Zero(t, f.bus.Listeners(model.EventRiskAlert))
	f.emit(model.EventRugDetected, `{"token_address":"`+tokenAddr+`"}`)
	assert.Empty(t, f.hub.Recent())
}
