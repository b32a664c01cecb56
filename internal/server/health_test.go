package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/abduss/transmute/internal/config"
	"github.com/abduss/transmute/internal/file"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuckets struct {
	exists bool
	err    error
}

func (f fakeBuckets) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return f.exists, f.err
}

func newHealthRouter(t *testing.T, deps Dependencies) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	deps.Config.App = config.AppConfig{Name: "Transmute", Version: "v1.2.3"}
	deps.Config.MinIO.Bucket = "transmute"
	return NewRouter(deps)
}

func testDisk(t *testing.T) *file.Disk {
	t.Helper()
	disk, err := file.NewDisk(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return disk
}

func okPing(context.Context) error { return nil }

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthInfoAndLive(t *testing.T) {
	router := newHealthRouter(t, Dependencies{})

	w := get(router, "/health/info")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name": "Transmute", "version": "v1.2.3"}`, w.Body.String())

	w = get(router, "/health/live")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "alive"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestHealthReady(t *testing.T) {
	router := newHealthRouter(t, Dependencies{
		DB:          PingFunc(okPing),
		Disks:       []*file.Disk{testDisk(t)},
		ObjectStore: fakeBuckets{exists: true},
	})

	w := get(router, "/health/ready")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ready", "checks": {"database": "ok", "storage": "ok", "object_store": "ok"}}`, w.Body.String())
}

func TestHealthNotReadyReportsEveryCheck(t *testing.T) {
	disk := testDisk(t)
	require.NoError(t, os.RemoveAll(disk.Dir()))

	router := newHealthRouter(t, Dependencies{
		DB:          PingFunc(func(context.Context) error { return errors.New("connection refused") }),
		Disks:       []*file.Disk{disk},
		ObjectStore: fakeBuckets{exists: false},
	})

	w := get(router, "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "connection refused", body.Checks["database"])
	assert.Contains(t, body.Checks["storage"], disk.Dir())
	assert.Contains(t, body.Checks["object_store"], "does not exist")
}

func TestHealthReadySkipsObjectStoreWhenDisabled(t *testing.T) {
	router := newHealthRouter(t, Dependencies{
		DB:    PingFunc(okPing),
		Disks: []*file.Disk{testDisk(t)},
	})

	w := get(router, "/health/ready")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "object_store")
}
