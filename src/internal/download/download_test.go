package download

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admi-n/sc-security-research/src/internal"
	"github.com/admi-n/sc-security-research/src/internal/cache"
	"github.com/admi-n/sc-security-research/src/internal/metrics"
)

const verifiedAddr = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

// fakeEtherscan 按地址返回固定响应；未知地址返回未验证
type fakeEtherscan struct {
	calls    atomic.Int32
	failures atomic.Int32 // 前 N 次返回 503
	sources  map[string]string
	listed   []string
}

func (f *fakeEtherscan) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	if q.Get("module") != "contract" || q.Get("chainid") != "1" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch q.Get("action") {
	case "getsourcecode":
		src, ok := f.sources[strings.ToLower(q.Get("address"))]
		if !ok {
			fmt.Fprint(w, `{"status":"1","message":"OK","result":[{"SourceCode":"","ContractName":""}]}`)
			return
		}
		fmt.Fprintf(w, `{"status":"1","message":"OK","result":[{"SourceCode":%q,"ContractName":"TetherToken","CompilerVersion":"v0.4.18","OptimizationUsed":"0","LicenseType":""}]}`, src)
	case "listcontracts":
		var items []string
		for _, a := range f.listed {
			items = append(items, fmt.Sprintf(`{"ContractAddress":%q}`, a))
		}
		fmt.Fprintf(w, `{"status":"1","message":"OK","result":[%s]}`, strings.Join(items, ","))
	default:
		fmt.Fprint(w, `{"status":"0","message":"NOTOK","result":"Error! Invalid action"}`)
	}
}

func newFake() *fakeEtherscan {
	return &fakeEtherscan{sources: map[string]string{
		strings.ToLower(verifiedAddr): "pragma solidity ^0.4.18; contract TetherToken { }",
	}}
}

func newTestClient(t *testing.T, url string, c cache.Cache, m *metrics.Registry) *Client {
	t.Helper()
	client, err := NewClient(EtherscanConfig{
		APIKey:            "test-key",
		BaseURL:           url,
		RequestsPerSecond: 1000,
		RetryBackoff:      time.Millisecond,
		Cache:             c,
		Metrics:           m,
	})
	require.NoError(t, err)
	return client
}

func TestFetchContractSource_Verified(t *testing.T) {
	srv := httptest.NewServer(newFake())
	defer srv.Close()

	src, err := newTestClient(t, srv.URL, nil, nil).FetchContractSource(context.Background(), verifiedAddr)
	require.NoError(t, err)
	assert.Equal(t, "TetherToken", src.Name)
	assert.Equal(t, "v0.4.18", src.CompilerVersion)
	assert.Equal(t, "Unknown", src.License)
	assert.Contains(t, src.SourceCode, "contract TetherToken")
}

func TestFetchContractSource_NotVerified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`)
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL, nil, nil)

	_, err := client.FetchContractSource(context.Background(), verifiedAddr)
	assert.ErrorIs(t, err, ErrNotVerified)

	fake := httptest.NewServer(newFake())
	defer fake.Close()
	_, err = newTestClient(t, fake.URL, nil, nil).FetchContractSource(context.Background(), "0x0000000000000000000000000000000000000001")
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestFetchContractSource_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"1","message":"OK","result":[]}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil, nil).FetchContractSource(context.Background(), verifiedAddr)
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestFetchContractSource_RetriesServerErrors(t *testing.T) {
	fake := newFake()
	fake.failures.Store(2)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	src, err := newTestClient(t, srv.URL, nil, nil).FetchContractSource(context.Background(), verifiedAddr)
	require.NoError(t, err)
	assert.Equal(t, "TetherToken", src.Name)
	assert.Equal(t, int32(3), fake.calls.Load())
}

func TestFetchContractSource_GivesUpAfterMaxAttempts(t *testing.T) {
	fake := newFake()
	fake.failures.Store(10)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil, nil).FetchContractSource(context.Background(), verifiedAddr)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotVerified))
	assert.Equal(t, int32(maxAttempts), fake.calls.Load())
	assert.NotContains(t, err.Error(), "test-key")
}

func TestFetchContractSource_ConnectionErrorHidesAPIKey(t *testing.T) {
	srv := httptest.NewServer(newFake())
	deadURL := srv.URL
	srv.Close()

	_, err := newTestClient(t, deadURL, nil, nil).FetchContractSource(context.Background(), verifiedAddr)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "test-key")
	assert.Contains(t, err.Error(), "apikey=REDACTED")
	assert.Contains(t, err.Error(), "action=getsourcecode")
}

func TestRedactAPIKey(t *testing.T) {
	assert.Equal(t, "https://api.etherscan.io/v2/api?action=x&apikey=REDACTED",
		redactAPIKey("https://api.etherscan.io/v2/api?action=x&apikey=secret"))
	assert.Equal(t, "https://api.etherscan.io/v2/api?action=x",
		redactAPIKey("https://api.etherscan.io/v2/api?action=x"))

	plain := errors.New("boom")
	assert.Same(t, plain, redactURLError(plain))
}

func TestFetchContractSource_UsesCache(t *testing.T) {
	fake := newFake()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	m := metrics.New()
	client := newTestClient(t, srv.URL, cache.NewMemory(), m)
	for i := 0; i < 3; i++ {
		_, err := client.FetchContractSource(context.Background(), verifiedAddr)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("etherscan", metrics.OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("etherscan", metrics.OutcomeCached)))
}

func TestFetchContractSource_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(newFake())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(t, srv.URL, nil, nil).FetchContractSource(ctx, verifiedAddr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListVerifiedContracts(t *testing.T) {
	fake := newFake()
	fake.listed = []string{verifiedAddr, "0x0000000000000000000000000000000000000002"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	addrs, err := newTestClient(t, srv.URL, nil, nil).ListVerifiedContracts(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, fake.listed, addrs)

	none, err := newTestClient(t, srv.URL, nil, nil).ListVerifiedContracts(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

type fakeChain struct{}

func (fakeChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return make([]byte, 42), nil
}

func (fakeChain) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	return wei, nil
}

type memStore struct {
	mu    sync.Mutex
	saved map[string]internal.Contract
}

func (s *memStore) ContractExists(_ context.Context, address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.saved[strings.ToLower(address)]
	return ok, nil
}

func (s *memStore) SaveContract(_ context.Context, c internal.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[strings.ToLower(c.Address)] = c
	return nil
}

func TestCollectKnown_TagsCategoriesAndSkipsUnverified(t *testing.T) {
	fake := newFake()
	fake.sources[strings.ToLower(ScamContracts[0].Address)] = "contract Squid { }"
	srv := httptest.NewServer(fake)
	defer srv.Close()

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &memStore{saved: map[string]internal.Contract{}}
	cc := NewContractCollector(newTestClient(t, srv.URL, nil, nil), WithChain(fakeChain{}), WithStore(store))
	cc.now = func() time.Time { return fixed }

	got, err := cc.CollectKnown(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, internal.CategoryLegit, got[0].Category)
	assert.Equal(t, "2025-03-01T12:00:00Z", got[0].CollectionDate)
	assert.Equal(t, 42, got[0].BytecodeSize)
	assert.Equal(t, "1.500000", got[0].Balance)
	assert.Equal(t, internal.CategoryScam, got[1].Category)
	assert.Len(t, store.saved, 2)
}

func TestCollectVerified(t *testing.T) {
	fake := newFake()
	fake.listed = []string{verifiedAddr, "0x0000000000000000000000000000000000000003"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	got, err := NewContractCollector(newTestClient(t, srv.URL, nil, nil)).CollectVerified(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, internal.CategoryUnknown, got[0].Category)
	assert.Empty(t, got[0].Balance)
}

func TestCollectAddresses(t *testing.T) {
	srv := httptest.NewServer(newFake())
	defer srv.Close()

	existing := "0x0000000000000000000000000000000000000009"
	store := &memStore{saved: map[string]internal.Contract{existing: {Address: existing}}}
	cc := NewContractCollector(newTestClient(t, srv.URL, nil, nil), WithStore(store))

	got, err := cc.CollectAddresses(context.Background(), []string{
		verifiedAddr,
		strings.ToLower(verifiedAddr), // duplicate
		existing,
		"0x0000000000000000000000000000000000000004", // unverified, kept
		"", "not-an-address",
	}, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, *got[0].Verified)
	assert.False(t, *got[1].Verified)
	assert.Equal(t, internal.CategoryUnknown, got[1].Category)
}

func TestCollectAddresses_FailLog(t *testing.T) {
	fake := newFake()
	fake.failures.Store(100)
	srv := httptest.NewServer(fake)
	defer srv.Close()

	failLog := filepath.Join(t.TempDir(), "failed.txt")
	cc := NewContractCollector(newTestClient(t, srv.URL, nil, nil), WithFailLog(failLog))
	got, err := cc.CollectAddresses(context.Background(), []string{verifiedAddr}, internal.CategoryLegit)
	require.NoError(t, err)
	assert.Empty(t, got)

	data, err := os.ReadFile(failLog)
	require.NoError(t, err)
	assert.Equal(t, verifiedAddr+"\n", string(data))
}

func TestFormatEther(t *testing.T) {
	assert.Equal(t, "0.000000", FormatEther(nil))
	assert.Equal(t, "1.000000", FormatEther(big.NewInt(1e18)))
	assert.Equal(t, "0.000001", FormatEther(big.NewInt(1e12)))
}

func TestReadAddressFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addrs.txt")
	require.NoError(t, os.WriteFile(path, []byte("# header\n0xabc\n\n  0xdef  \n"), 0o644))

	got, err := ReadAddressFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc", "0xdef"}, got)
}

func TestKnownContracts(t *testing.T) {
	all := KnownContracts()
	assert.Len(t, all, 11)
	for _, k := range all {
		assert.True(t, common.IsHexAddress(k.Address), k.Name)
	}
}

func TestRateLimiter_Unlimited(t *testing.T) {
	rl := NewRateLimiter(0)
	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, rl.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}
