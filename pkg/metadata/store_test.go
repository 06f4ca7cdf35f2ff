package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxledger/dlt-rx/pkg/config"
	"github.com/rxledger/dlt-rx/pkg/logger"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	cid, err := store.Put(ctx, []byte("encrypted prescription payload"))
	require.NoError(t, err)
	require.NotEmpty(t, cid)

	data, err := store.Get(ctx, cid)
	require.NoError(t, err)
	assert.Equal(t, []byte("encrypted prescription payload"), data)

	// Content addressing: same bytes, same CID.
	again, err := store.Put(ctx, []byte("encrypted prescription payload"))
	require.NoError(t, err)
	assert.Equal(t, cid, again)

	_, err = store.Get(ctx, "missing")
	assert.Error(t, err)
}

func TestIPFSStore_Put(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v0/add", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		json.NewEncoder(w).Encode(map[string]string{"Hash": "bafyTestCid"})
	}))
	defer server.Close()

	store := NewIPFSStore(&config.MetadataConfig{APIAddr: server.URL, TimeoutSec: 5}, logger.New("error"))

	cid, err := store.Put(context.Background(), []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "bafyTestCid", cid)
}

func TestIPFSStore_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v0/cat", r.URL.Path)
		require.Equal(t, "bafyTestCid", r.URL.Query().Get("arg"))
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	store := NewIPFSStore(&config.MetadataConfig{APIAddr: server.URL, TimeoutSec: 5}, logger.New("error"))

	data, err := store.Get(context.Background(), "bafyTestCid")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestIPFSStore_GetErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "merkledag: not found", http.StatusInternalServerError)
	}))
	defer server.Close()

	store := NewIPFSStore(&config.MetadataConfig{APIAddr: server.URL, TimeoutSec: 5}, logger.New("error"))

	_, err := store.Get(context.Background(), "missing")
	assert.Error(t, err)
}
