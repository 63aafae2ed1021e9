package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"sentinel-ledger/internal/ledger/api"
	"sentinel-ledger/internal/ledger/model"
	"sentinel-ledger/internal/ledger/query"
	"sentinel-ledger/pkg/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const addr = "0x52908400098527886E0F7030069857D2E4169EE7"

func newTestService(t *testing.T, h http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	hc := httpclient.NewHTTPClient(httpclient.HTTPClientConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, zap.NewNop())
	t.Cleanup(func() { _ = hc.Close() })
	return New(api.NewClient(hc), query.NewClient(query.Options{StaleTime: time.Minute}, zap.NewNop()))
}

func TestAddressHooksDisabledForInvalidAddress(t *testing.T) {
	var calls atomic.Int32
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	})

	for _, a := range []string{"", "0x123", "not-an-address"} {
		assert.True(t, s.Token(a).Disabled, a)
		assert.True(t, s.Wallet(a).Disabled, a)
		assert.True(t, s.WalletTokens(a).Disabled, a)
		assert.True(t, s.WalletTransactions(a, 10).Disabled, a)
		assert.True(t, s.WalletGraph(a, 2).Disabled, a)
	}

	_, err := query.Get(context.Background(), s.Query(), s.Token("0x123"))
	assert.ErrorIs(t, err, query.ErrDisabled)
	assert.Zero(t, calls.Load())
	assert.True(t, s.SearchTokens("").Disabled)
}

func TestTokenKeyIgnoresAddressCase(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
	lower := s.Token("0x52908400098527886e0f7030069857d2e4169ee7").Key.String()
	assert.Equal(t, lower, s.Token(addr).Key.String())
	assert.True(t, s.Token(addr).Key.Matches(KeyTokens))
}

func TestTokenFetchesDetail(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens/"+addr, r.URL.Path)
		fmt.Fprintf(w, `{"address":%q,"final_score":88,"flags":["mintable"]}`, addr)
	})

	got, err := query.Get(context.Background(), s.Query(), s.Token(addr))
	require.NoError(t, err)
	assert.Equal(t, addr, got.Address)
	assert.Equal(t, []string{"mintable"}, got.Flags)
}

func TestRiskFeedPollsByDefault(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
	def := s.RiskFeed(50, 0)
	assert.Equal(t, DefaultRiskFeedInterval, def.RefetchInterval)
	assert.True(t, def.Key.Matches(KeyRiskFeed))
	assert.Equal(t, 5*time.Second, s.RiskFeed(50, 5*time.Second).RefetchInterval)
}

func TestInfiniteTokensPagesBySkip(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		n := 20
		if skip >= 20 {
			n = 3
		}
		w.Write([]byte(`{"tokens":[`))
		for i := 0; i < n; i++ {
			if i > 0 {
				w.Write([]byte(","))
			}
			fmt.Fprintf(w, `{"address":"0x%d"}`, skip+i)
		}
		w.Write([]byte(`]}`))
	})

	inf := s.InfiniteTokens(model.TokenFilters{Chain: "base"})
	require.NoError(t, inf.FetchNextPage(context.Background()))
	assert.True(t, inf.HasNextPage())
	require.NoError(t, inf.FetchNextPage(context.Background()))
	assert.False(t, inf.HasNextPage())

	items := inf.Items()
	require.Len(t, items, 23)
	assert.Equal(t, "0x22", items[22].Address)
}

func TestDashboardStatsCached(t *testing.T) {
	var calls atomic.Int32
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"total_tokens":1200,"high_risk_tokens":87,"total_liquidity_usd":"1500000.5"}`))
	})

	for i := 0; i < 3; i++ {
		got, err := query.Get(context.Background(), s.Query(), s.DashboardStats())
		require.NoError(t, err)
		assert.EqualValues(t, 1200, got.TotalTokens)
		assert.Equal(t, "1500000.5", got.TotalLiquidity.String())
	}
	assert.Equal(t, int32(1), calls.Load())
}
