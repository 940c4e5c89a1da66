package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisper2/server/internal/adapters"
	"github.com/whisper2/server/internal/auth"
	"github.com/whisper2/server/internal/clock"
	"github.com/whisper2/server/internal/httpapi"
	"github.com/whisper2/server/internal/store"
	"github.com/whisper2/server/internal/store/memory"
)

type fakeConns struct{}

func (fakeConns) ForceLogout(whisperID, reason string) bool { return false }

func newAPI(t *testing.T) (*httpapi.API, *memory.Durable, string) {
	api, durable, _, token := newAPIWithVolatile(t)
	return api, durable, token
}

func newAPIWithVolatile(t *testing.T) (*httpapi.API, *memory.Durable, *memory.Volatile, string) {
	t.Helper()
	durable := memory.NewDurable()
	volatile := memory.NewVolatile()
	engine := auth.New(durable, volatile, fakeConns{}, clock.New(), nil)
	presigner := adapters.LocalPresigner{BaseURL: "http://local.test"}
	turn := adapters.StaticTURNMinter{URLs: []string{"turn:example"}, Username: "u", Credential: "c"}
	api := httpapi.New(durable, engine, presigner, turn, nil)

	_, err := durable.UpsertIdentityAndDevice(context.Background(), "WSP-AAAA-AAAA-AAAA", store.Device{
		DeviceID: "device-1", Platform: "ios", EncPublicKey: make([]byte, 32), SignPublicKey: make([]byte, 32),
	})
	require.NoError(t, err)
	prev, err := volatile.SwapSession(context.Background(), store.Session{
		Token: "tok-1", WhisperID: "WSP-AAAA-AAAA-AAAA", DeviceID: "device-1", Platform: "ios",
	})
	require.NoError(t, err)
	require.Nil(t, prev)

	return api, durable, volatile, "tok-1"
}

func TestGetKeys_Found(t *testing.T) {
	api, _, token := newAPI(t)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/users/WSP-AAAA-AAAA-AAAA/keys", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetKeys_UnknownWhisperID(t *testing.T) {
	api, _, token := newAPI(t)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/users/WSP-ZZZZ-ZZZZ-ZZZZ/keys", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetKeys_MissingBearerToken(t *testing.T) {
	api, _, _ := newAPI(t)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/users/WSP-AAAA-AAAA-AAAA/keys")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestContactBackup_RoundTrip(t *testing.T) {
	api, _, token := newAPI(t)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"nonce": []byte("nonce-bytes-here"), "ciphertext": []byte("ciphertext-bytes")})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/backup/contacts", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	getReq, _ := http.NewRequest(http.MethodGet, srv.URL+"/backup/contacts", nil)
	getReq.Header.Set("Authorization", "Bearer "+token)
	getResp, err := http.DefaultClient.Do(getReq)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)

	var decoded struct {
		Nonce      []byte `json:"nonce"`
		Ciphertext []byte `json:"ciphertext"`
	}
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&decoded))
	assert.Equal(t, []byte("nonce-bytes-here"), decoded.Nonce)
	assert.Equal(t, []byte("ciphertext-bytes"), decoded.Ciphertext)

	delReq, _ := http.NewRequest(http.MethodDelete, srv.URL+"/backup/contacts", nil)
	delReq.Header.Set("Authorization", "Bearer "+token)
	delResp, err := http.DefaultClient.Do(delReq)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	getReq2, _ := http.NewRequest(http.MethodGet, srv.URL+"/backup/contacts", nil)
	getReq2.Header.Set("Authorization", "Bearer "+token)
	getResp2, err := http.DefaultClient.Do(getReq2)
	require.NoError(t, err)
	defer getResp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp2.StatusCode)
}

func TestPresignUpload(t *testing.T) {
	api, _, token := newAPI(t)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"contentType": "image/png", "size": 1024})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/attachments/presign/upload", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPresignDownload_UploaderAllowedStrangerForbidden(t *testing.T) {
	api, durable, volatile, token := newAPIWithVolatile(t)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	uploadBody, _ := json.Marshal(map[string]any{"contentType": "image/png", "size": 1024})
	uploadReq, _ := http.NewRequest(http.MethodPost, srv.URL+"/attachments/presign/upload", bytes.NewReader(uploadBody))
	uploadReq.Header.Set("Authorization", "Bearer "+token)
	uploadResp, err := http.DefaultClient.Do(uploadReq)
	require.NoError(t, err)
	defer uploadResp.Body.Close()
	require.Equal(t, http.StatusOK, uploadResp.StatusCode)

	var uploadDecoded struct {
		ObjectKey string `json:"objectKey"`
	}
	require.NoError(t, json.NewDecoder(uploadResp.Body).Decode(&uploadDecoded))
	require.NotEmpty(t, uploadDecoded.ObjectKey)

	downloadBody, _ := json.Marshal(map[string]any{"objectKey": uploadDecoded.ObjectKey})
	downloadReq, _ := http.NewRequest(http.MethodPost, srv.URL+"/attachments/presign/download", bytes.NewReader(downloadBody))
	downloadReq.Header.Set("Authorization", "Bearer "+token)
	downloadResp, err := http.DefaultClient.Do(downloadReq)
	require.NoError(t, err)
	downloadResp.Body.Close()
	assert.Equal(t, http.StatusOK, downloadResp.StatusCode)

	_, err = durable.UpsertIdentityAndDevice(context.Background(), "WSP-BBBB-BBBB-BBBB", store.Device{
		DeviceID: "device-2", Platform: "ios", EncPublicKey: make([]byte, 32), SignPublicKey: make([]byte, 32),
	})
	require.NoError(t, err)
	_, err = volatile.SwapSession(context.Background(), store.Session{
		Token: "tok-2", WhisperID: "WSP-BBBB-BBBB-BBBB", DeviceID: "device-2", Platform: "ios",
	})
	require.NoError(t, err)

	strangerReq, _ := http.NewRequest(http.MethodPost, srv.URL+"/attachments/presign/download", bytes.NewReader(downloadBody))
	strangerReq.Header.Set("Authorization", "Bearer tok-2")
	strangerResp, err := http.DefaultClient.Do(strangerReq)
	require.NoError(t, err)
	defer strangerResp.Body.Close()
	assert.Equal(t, http.StatusForbidden, strangerResp.StatusCode)
}
