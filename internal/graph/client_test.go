package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// driveServer fakes the Graph-style REST surface: site resolution, drive
// listing, content PUT, upload sessions and item metadata.
func driveServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var ranges []string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sites/files.example.com:/sites/portal", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "site-1"})
	})
	mux.HandleFunc("GET /sites/site-1/drives", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"value": []map[string]string{{"id": "drive-1"}},
		})
	})
	mux.HandleFunc("PUT /drives/drive-1/root:/uploads/small.txt:/content", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(RemoteObject{ID: "item-small", Name: "small.txt", Size: int64(len(body))})
	})
	mux.HandleFunc("POST /drives/drive-1/root:/uploads/big.bin:/createUploadSession", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"uploadUrl": "SESSION_URL"})
	})
	mux.HandleFunc("PUT /session", func(w http.ResponseWriter, r *http.Request) {
		ranges = append(ranges, r.Header.Get("Content-Range"))
		body, _ := io.ReadAll(r.Body)
		var total int64
		var start, end int64
		fmt.Sscanf(r.Header.Get("Content-Range"), "bytes %d-%d/%d", &start, &end, &total)
		assert.Equal(t, end-start+1, int64(len(body)))
		if end+1 == total {
			json.NewEncoder(w).Encode(RemoteObject{ID: "item-big", Name: "big.bin", Size: total})
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /drives/drive-1/items/item-small", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "item-small", "downloadUrl": "https://signed.example.com/item-small"})
	})
	mux.HandleFunc("GET /drives/drive-1/items/item-denied", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "access denied to item"},
		})
	})
	mux.HandleFunc("DELETE /drives/drive-1/items/item-small", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &ranges
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient(srv.URL, "files.example.com", "/sites/portal", zaptest.NewLogger(t))
}

func TestClient_SimplePut(t *testing.T) {
	srv, _ := driveServer(t)
	c := newTestClient(t, srv)

	obj, err := c.SimplePut(context.Background(), "tok", "uploads", "small.txt", "text/plain", []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, "item-small", obj.ID)
	require.Equal(t, int64(5), obj.Size)
}

func TestClient_UploadSessionAndChunks(t *testing.T) {
	srv, ranges := driveServer(t)
	c := newTestClient(t, srv)

	uploadURL, err := c.CreateUploadSession(context.Background(), "tok", "uploads", "big.bin")
	require.NoError(t, err)
	require.Equal(t, "SESSION_URL", uploadURL)

	// The session URL is opaque to the client; here it points back at the
	// fake server.
	sessionURL := srv.URL + "/session"

	total := int64(10)
	obj, err := c.PutChunk(context.Background(), sessionURL, []byte("01234"), 0, 4, total)
	require.NoError(t, err)
	require.Nil(t, obj)

	obj, err = c.PutChunk(context.Background(), sessionURL, []byte("56789"), 5, 9, total)
	require.NoError(t, err)
	require.NotNil(t, obj)
	require.Equal(t, "item-big", obj.ID)

	require.Equal(t, []string{"bytes 0-4/10", "bytes 5-9/10"}, *ranges)
}

func TestClient_ItemDownloadURL(t *testing.T) {
	srv, _ := driveServer(t)
	c := newTestClient(t, srv)

	url, err := c.ItemDownloadURL(context.Background(), "tok", "item-small")
	require.NoError(t, err)
	require.Equal(t, "https://signed.example.com/item-small", url)
}

func TestClient_RemoteErrorPayload(t *testing.T) {
	srv, _ := driveServer(t)
	c := newTestClient(t, srv)

	_, err := c.ItemDownloadURL(context.Background(), "tok", "item-denied")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.Status)
	require.Equal(t, "access denied to item", apiErr.Message)
}

func TestClient_DeleteItem(t *testing.T) {
	srv, _ := driveServer(t)
	c := newTestClient(t, srv)

	require.NoError(t, c.DeleteItem(context.Background(), "tok", "item-small"))
}
