package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netident/internal/auth"
	"netident/internal/backup"
	"netident/internal/monitoring"
	"netident/internal/network"
	"netident/internal/secrets"
	"netident/internal/store"
	"netident/internal/system"
	"netident/internal/wireguard"
)

// fakeRunner maps a joined command line to canned output or an error.
type fakeRunner struct {
	outputs map[string]string
}

func (f *fakeRunner) Run(name string, args ...string) (string, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	if out, ok := f.outputs[key]; ok {
		return out, nil
	}
	return "", fmt.Errorf("command not faked: %s", key)
}

type unreachableProber struct{}

func (unreachableProber) Reachable(addr string) bool {
	return false
}

// testServer bundles a router with the components behind it so tests can
// reach past the HTTP surface when needed.
type testServer struct {
	router  *gin.Engine
	manager *auth.Manager
	store   *store.Store
	token   string
}

func newTestServer(t *testing.T, runner system.Runner) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	authManager := auth.NewManagerWithConfig("test-secret", 24*time.Hour, filepath.Join(dir, "admin.hash"))
	require.NoError(t, authManager.SetPassword("hunter22hunter22"))

	profileStore := store.NewWithDir(filepath.Join(dir, "networks"))
	cipher := secrets.NewWithKeyPath(filepath.Join(dir, "master.key"))
	provisioner := wireguard.NewProvisionerWithConfig(runner, unreachableProber{}, filepath.Join(dir, "wg0.conf"), "wg0")
	backupManager := backup.NewManagerWithDir(cipher, profileStore, provisioner, filepath.Join(dir, "exports"))
	aggregator := network.NewAggregator(system.NewProber(runner))
	logs := monitoring.NewLogManagerWithConfig(monitoring.LogConfig{
		LogLevel:    monitoring.LogLevelInfo,
		LogToStdout: false,
		BufferSize:  100,
	})

	server := NewServer(Dependencies{
		AuthManager: authManager,
		Store:       profileStore,
		Aggregator:  aggregator,
		Provisioner: provisioner,
		Backup:      backupManager,
		Logs:        logs,
	})

	token, err := authManager.Login("hunter22hunter22")
	require.NoError(t, err)

	return &testServer{
		router:  server.Router(),
		manager: authManager,
		store:   profileStore,
		token:   token,
	}
}

func (ts *testServer) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ts.token)

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func TestServer_Auth(t *testing.T) {
	t.Run("should reject protected routes without a token", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		req, _ := http.NewRequest("GET", "/api/networks", nil)
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("should issue a token on login", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		body, _ := json.Marshal(LoginRequest{Password: "hunter22hunter22"})
		req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("should reject wrong password", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		body, _ := json.Marshal(LoginRequest{Password: "wrong-password"})
		req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("should refuse setup when a password already exists", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		body, _ := json.Marshal(SetupRequest{Password: "another-password"})
		req, _ := http.NewRequest("POST", "/api/auth/setup", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestServer_Networks(t *testing.T) {
	t.Run("should save and list network profiles", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		w := ts.request(t, "POST", "/api/networks", SaveNetworkRequest{
			Profile: store.NetworkProfile{SSID: "HomeWifi", Mode: store.ModeClient, Password: "secret"},
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var saved SaveNetworkResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
		assert.Equal(t, "HomeWifi_client", saved.ID)

		w = ts.request(t, "GET", "/api/networks", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var list NetworkListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		assert.Equal(t, 1, list.Total)
		assert.Equal(t, "HomeWifi", list.Networks[0].Profile.SSID)
	})

	t.Run("should not clobber an existing profile on save", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		profile := store.NetworkProfile{SSID: "Cafe", Mode: store.ModeClient}
		w := ts.request(t, "POST", "/api/networks", SaveNetworkRequest{Name: "cafe", Profile: profile})
		require.Equal(t, http.StatusCreated, w.Code)

		w = ts.request(t, "POST", "/api/networks", SaveNetworkRequest{Name: "cafe", Profile: profile})
		require.Equal(t, http.StatusCreated, w.Code)

		var saved SaveNetworkResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
		assert.Equal(t, "cafe_1", saved.ID)
	})

	t.Run("should return 404 for a missing profile", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		w := ts.request(t, "GET", "/api/networks/nonexistent", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should delete a profile", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		w := ts.request(t, "POST", "/api/networks", SaveNetworkRequest{
			Profile: store.NetworkProfile{SSID: "Temp", Mode: store.ModeClient},
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var saved SaveNetworkResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))

		w = ts.request(t, "DELETE", "/api/networks/"+saved.ID, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = ts.request(t, "GET", "/api/networks/"+saved.ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should manage the default profile pointer", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		w := ts.request(t, "GET", "/api/networks/default", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = ts.request(t, "POST", "/api/networks", SaveNetworkRequest{
			Profile: store.NetworkProfile{SSID: "HomeWifi", Mode: store.ModeClient},
		})
		require.Equal(t, http.StatusCreated, w.Code)
		var saved SaveNetworkResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))

		w = ts.request(t, "PUT", "/api/networks/default", SetDefaultRequest{ID: saved.ID})
		require.Equal(t, http.StatusOK, w.Code)

		w = ts.request(t, "GET", "/api/networks/default", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var def DefaultNetworkResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &def))
		assert.Equal(t, saved.ID, def.ID)
	})

	t.Run("should deduplicate stored profiles", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		older := store.NetworkProfile{SSID: "HomeWifi", Mode: store.ModeClient, CreatedAt: time.Now().Add(-time.Hour)}
		newer := store.NetworkProfile{SSID: "HomeWifi", Mode: store.ModeClient, CreatedAt: time.Now()}

		w := ts.request(t, "POST", "/api/networks", SaveNetworkRequest{Name: "old", Profile: older})
		require.Equal(t, http.StatusCreated, w.Code)
		w = ts.request(t, "POST", "/api/networks", SaveNetworkRequest{Name: "new", Profile: newer})
		require.Equal(t, http.StatusCreated, w.Code)

		w = ts.request(t, "POST", "/api/networks/deduplicate", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp DeduplicateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"old"}, resp.RemovedProfiles)
	})
}

func TestServer_Status(t *testing.T) {
	t.Run("should report disconnected when no device is active", func(t *testing.T) {
		runner := &fakeRunner{outputs: map[string]string{
			"nmcli -t -f DEVICE,TYPE,STATE,CONNECTION device status": "wlan0:wifi:disconnected:\nlo:loopback:unmanaged:\n",
		}}
		ts := newTestServer(t, runner)

		w := ts.request(t, "GET", "/api/status", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var status network.UnifiedStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.False(t, status.Connected)
		assert.Equal(t, network.ModeDisconnected, status.Mode)
	})

	t.Run("should report disconnected when the device probe fails", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		w := ts.request(t, "GET", "/api/status", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var status network.UnifiedStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.False(t, status.Connected)
		assert.Equal(t, network.ModeDisconnected, status.Mode)
	})
}

func TestServer_Tunnel(t *testing.T) {
	t.Run("should report an inactive tunnel", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		w := ts.request(t, "GET", "/api/tunnel/status", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var status wireguard.TunnelStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.False(t, status.Active)
	})

	t.Run("should return 404 for QR without a configuration", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		w := ts.request(t, "GET", "/api/tunnel/qr", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_Backup(t *testing.T) {
	t.Run("should export and re-import network profiles", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		w := ts.request(t, "POST", "/api/networks", SaveNetworkRequest{
			Profile: store.NetworkProfile{SSID: "HomeWifi", Mode: store.ModeClient, Password: "hunter2"},
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = ts.request(t, "POST", "/api/backup/networks/export", ExportRequest{Filename: "test.json"})
		require.Equal(t, http.StatusOK, w.Code)

		var exported ExportResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exported))
		assert.NotEmpty(t, exported.Path)

		w = ts.request(t, "POST", "/api/backup/networks/import", ImportRequest{Path: exported.Path})
		require.Equal(t, http.StatusOK, w.Code)

		var result backup.ImportResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, 1, result.ImportedCount)
	})

	t.Run("should fail import for a missing file", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		w := ts.request(t, "POST", "/api/backup/networks/import", ImportRequest{Path: "/nonexistent/backup.json"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_Health(t *testing.T) {
	t.Run("should respond without authentication", func(t *testing.T) {
		ts := newTestServer(t, &fakeRunner{})

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
