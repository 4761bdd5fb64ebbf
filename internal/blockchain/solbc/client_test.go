package solbc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/token-sale/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/token-sale/internal/utils/metrics"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode: минимальный JSON-RPC узел, на каждый метод отвечает заданным обработчиком.
type fakeNode struct {
	mu       sync.Mutex
	calls    map[string]int
	params   map[string][]json.RawMessage
	handlers map[string]func(call int) (status int, body string)
}

func newFakeNode(t *testing.T) (*fakeNode, *httptest.Server) {
	t.Helper()
	node := &fakeNode{
		calls:    make(map[string]int),
		params:   make(map[string][]json.RawMessage),
		handlers: make(map[string]func(int) (int, string)),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		node.mu.Lock()
		node.calls[req.Method]++
		n := node.calls[req.Method]
		node.params[req.Method] = req.Params
		handler := node.handlers[req.Method]
		node.mu.Unlock()

		if handler == nil {
			writeRPC(w, req.ID, `null`, `{"code":-32601,"message":"Method not found"}`)
			return
		}
		status, body := handler(n)
		if status == statusRPCError {
			writeRPC(w, req.ID, "", body)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
		writeRPC(w, req.ID, body, "")
	}))
	t.Cleanup(srv.Close)
	return node, srv
}

func writeRPC(w http.ResponseWriter, id json.RawMessage, result, rpcErr string) {
	w.Header().Set("Content-Type", "application/json")
	if rpcErr != "" {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(id) + `,"error":` + rpcErr + `}`))
		return
	}
	_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(id) + `,"result":` + result + `}`))
}

func (n *fakeNode) handle(method string, fn func(call int) (int, string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = fn
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// statusRPCError: обработчик вернул объект ошибки JSON-RPC вместо результата.
const statusRPCError = 0

func rpcFailure(errObject string) func(int) (int, string) {
	return func(int) (int, string) { return statusRPCError, errObject }
}

func ok(body string) func(int) (int, string) {
	return func(int) (int, string) { return http.StatusOK, body }
}

func newTestClient(t *testing.T, endpoint string, collector *metrics.Collector) *Client {
	t.Helper()
	return NewClient(Config{
		Endpoint:   endpoint,
		Timeout:    2 * time.Second,
		Retries:    1,
		RetryDelay: time.Millisecond,
	}, collector, zaptest.NewLogger(t))
}

func TestAccountExists(t *testing.T) {
	node, srv := newFakeNode(t)
	client := newTestClient(t, srv.URL, nil)
	account := solana.NewWallet().PublicKey()

	t.Run("absent account is not an error", func(t *testing.T) {
		node.handle(methodGetAccountInfo, ok(`{"context":{"slot":10},"value":null}`))

		exists, err := client.AccountExists(context.Background(), account)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("present account", func(t *testing.T) {
		node.handle(methodGetAccountInfo, ok(`{"context":{"slot":11},"value":{
			"data":["","base64"],"executable":false,"lamports":2039280,
			"owner":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA","rentEpoch":0,"space":165}}`))

		exists, err := client.AccountExists(context.Background(), account)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("rpc error surfaces", func(t *testing.T) {
		node.handle(methodGetAccountInfo, nil)

		_, err := client.AccountExists(context.Background(), account)
		require.Error(t, err)
		var rpcErr *rpc.Error
		require.True(t, errors.As(err, &rpcErr))
		assert.Equal(t, methodGetAccountInfo, rpcErr.Method)
	})
}

func TestGetLatestCheckpoint(t *testing.T) {
	node, srv := newFakeNode(t)
	client := newTestClient(t, srv.URL, nil)

	first := solana.HashFromBytes(solana.NewWallet().PublicKey().Bytes())
	second := solana.HashFromBytes(solana.NewWallet().PublicKey().Bytes())
	node.handle(methodGetLatestBlockhash, func(call int) (int, string) {
		hash := first
		if call > 1 {
			hash = second
		}
		return http.StatusOK, `{"context":{"slot":777},"value":{"blockhash":"` + hash.String() + `","lastValidBlockHeight":900}}`
	})

	cp, err := client.GetLatestCheckpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, cp.Blockhash)
	assert.Equal(t, uint64(900), cp.LastValidBlockHeight)
	assert.Equal(t, uint64(777), cp.Slot)

	// каждый вызов идёт в сеть, кэша нет
	cp, err = client.GetLatestCheckpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, cp.Blockhash)
	assert.Equal(t, 2, node.count(methodGetLatestBlockhash))
}

func TestEstimatePriorityFee(t *testing.T) {
	accounts := []solana.PublicKey{solana.NewWallet().PublicKey(), solana.SystemProgramID}

	tests := []struct {
		name      string
		result    string
		want      uint64
		malformed bool
	}{
		{name: "integer estimate", result: `{"priorityFeeEstimate":120000}`, want: 120000},
		{name: "fractional estimate is rounded up", result: `{"priorityFeeEstimate":1500.2}`, want: 1501},
		{name: "zero estimate", result: `{"priorityFeeEstimate":0}`, want: 0},
		{name: "string estimate", result: `{"priorityFeeEstimate":"fast"}`, malformed: true},
		{name: "missing estimate", result: `{}`, malformed: true},
		{name: "negative estimate", result: `{"priorityFeeEstimate":-5}`, malformed: true},
		{name: "null result", result: `null`, malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, srv := newFakeNode(t)
			node.handle(methodGetPriorityFeeEstimate, ok(tt.result))
			client := newTestClient(t, srv.URL, nil)

			fee, err := client.EstimatePriorityFee(context.Background(), accounts)
			if tt.malformed {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedFeeEstimate)
				// некорректный ответ не повторяется
				assert.Equal(t, 1, node.count(methodGetPriorityFeeEstimate))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, fee)
		})
	}
}

func TestEstimatePriorityFeeSendsAccountKeys(t *testing.T) {
	node, srv := newFakeNode(t)
	node.handle(methodGetPriorityFeeEstimate, ok(`{"priorityFeeEstimate":10}`))
	client := newTestClient(t, srv.URL, nil)

	accounts := []solana.PublicKey{solana.NewWallet().PublicKey(), solana.TokenProgramID}
	_, err := client.EstimatePriorityFee(context.Background(), accounts)
	require.NoError(t, err)

	node.mu.Lock()
	params := node.params[methodGetPriorityFeeEstimate]
	node.mu.Unlock()
	require.Len(t, params, 1)

	var req priorityFeeRequest
	require.NoError(t, json.Unmarshal(params[0], &req))
	assert.True(t, req.Options.Recommended)
	assert.Equal(t, []string{accounts[0].String(), accounts[1].String()}, req.AccountKeys)
}

func TestTransientFailureIsRetriedOnce(t *testing.T) {
	node, srv := newFakeNode(t)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	client := newTestClient(t, srv.URL, collector)

	node.handle(methodGetPriorityFeeEstimate, func(call int) (int, string) {
		if call == 1 {
			return http.StatusBadGateway, "upstream unavailable"
		}
		return http.StatusOK, `{"priorityFeeEstimate":42}`
	})

	fee, err := client.EstimatePriorityFee(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), fee)
	assert.Equal(t, 2, node.count(methodGetPriorityFeeEstimate))

	expected := `
# HELP token_sale_rpc_retries_total Total number of Solana RPC retry attempts
# TYPE token_sale_rpc_retries_total counter
token_sale_rpc_retries_total{method="getPriorityFeeEstimate"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "token_sale_rpc_retries_total"))
}

func TestPersistentFailureGivesUpAfterBoundedRetry(t *testing.T) {
	node, srv := newFakeNode(t)
	client := newTestClient(t, srv.URL, nil)

	node.handle(methodGetLatestBlockhash, func(int) (int, string) {
		return http.StatusInternalServerError, "boom"
	})

	_, err := client.GetLatestCheckpoint(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, node.count(methodGetLatestBlockhash))
}

func TestCriticalErrorIsNotRetried(t *testing.T) {
	node, srv := newFakeNode(t)
	reg := prometheus.NewRegistry()
	client := newTestClient(t, srv.URL, metrics.NewCollector(reg))

	// текст содержит "timeout", но запрос отвергнут узлом как некорректный
	node.handle(methodGetLatestBlockhash, rpcFailure(`{"code":-32600,"message":"Invalid request: timeout parameter out of range"}`))

	_, err := client.GetLatestCheckpoint(context.Background())
	require.Error(t, err)
	assert.True(t, rpc.IsCriticalError(err))
	assert.Equal(t, 1, node.count(methodGetLatestBlockhash))
	retries, err := testutil.GatherAndCount(reg, "token_sale_rpc_retries_total")
	require.NoError(t, err)
	assert.Zero(t, retries)
}

func TestErrorDoesNotLeakEndpointSecrets(t *testing.T) {
	node, srv := newFakeNode(t)
	client := newTestClient(t, srv.URL+"/?api-key=super-secret", nil)
	account := solana.NewWallet().PublicKey()

	node.handle(methodGetAccountInfo, nil)
	_, err := client.AccountExists(context.Background(), account)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret")

	// транспортная ошибка solana-go включает полный URL запроса
	node.handle(methodGetAccountInfo, func(int) (int, string) {
		return http.StatusServiceUnavailable, "maintenance"
	})
	_, err = client.AccountExists(context.Background(), account)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret")
}

func TestParseFeeEstimate(t *testing.T) {
	fee, err := parseFeeEstimate(json.RawMessage(`{"priorityFeeEstimate":0.1}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fee)

	_, err = parseFeeEstimate(nil)
	assert.ErrorIs(t, err, ErrMalformedFeeEstimate)

	_, err = parseFeeEstimate(json.RawMessage(`{"priorityFeeEstimate":1e30}`))
	assert.ErrorIs(t, err, ErrMalformedFeeEstimate)
}
