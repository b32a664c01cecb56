package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/abduss/transmute/internal/config"
	"github.com/abduss/transmute/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeDrawioExport mimics drawio-export: it copies the input to <out>Page-1.<format>.
const fakeDrawioExport = `#!/bin/sh
fmt=""
out=""
while [ $# -gt 1 ]; do
  case "$1" in
    -f) fmt="$2"; shift 2 ;;
    -o) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
cp "$1" "${out}Page-1.${fmt}"
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake converter is a shell script")
	}

	root := t.TempDir()
	tool := filepath.Join(root, "bin", "drawio-export")
	require.NoError(t, os.MkdirAll(filepath.Dir(tool), 0o750))
	require.NoError(t, os.WriteFile(tool, []byte(fakeDrawioExport), 0o755))

	t.Setenv("TRANSMUTE_DB_DRIVER", "sqlite")
	t.Setenv("TRANSMUTE_SQLITE_PATH", filepath.Join(root, "db", "app.db"))
	t.Setenv("TRANSMUTE_UPLOAD_DIR", filepath.Join(root, "uploads"))
	t.Setenv("TRANSMUTE_TMP_DIR", filepath.Join(root, "tmp"))
	t.Setenv("TRANSMUTE_OUTPUT_DIR", filepath.Join(root, "converted"))
	t.Setenv("TRANSMUTE_DRAWIO_BIN", tool)
	t.Setenv("TRANSMUTE_CONVERTER_TIMEOUT", "30s")
	t.Setenv("TRANSMUTE_CACHE_SIZE", "8")
	t.Setenv("TRANSMUTE_MIRROR_ENABLED", "false")

	cfg, err := config.Load()
	require.NoError(t, err)

	deps, cleanup, err := buildDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	srv := httptest.NewServer(server.NewRouter(deps))
	t.Cleanup(srv.Close)
	return srv
}

func TestUploadConvertDownloadWorkflow(t *testing.T) {
	srv := newTestServer(t)
	client := &http.Client{Timeout: 30 * time.Second}
	baseURL := srv.URL

	// 1. Upload three files
	fileNames := []string{"notes1.txt", "notes2.txt", "flow.drawio"}
	fileContents := []string{"Content 1", "Content 2", "<mxfile><diagram name=\"Page-1\"/></mxfile>"}
	var fileIDs []string

	for i, name := range fileNames {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(fileContents[i]))
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		req, _ := http.NewRequest(http.MethodPost, baseURL+"/files/", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := client.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var fileResp struct {
			ID        string `json:"id"`
			MediaType string `json:"media_type"`
		}
		decode(t, resp, &fileResp)
		fileIDs = append(fileIDs, fileResp.ID)
	}

	// 2. List files
	resp, err := client.Get(baseURL + "/files/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var filesResp struct {
		Files []struct {
			ID string `json:"id"`
		} `json:"files"`
	}
	decode(t, resp, &filesResp)
	assert.Len(t, filesResp.Files, 3)

	// 3. Download each file
	for i, id := range fileIDs {
		resp, err := client.Get(fmt.Sprintf("%s/files/%s/download", baseURL, id))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		content, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, fileContents[i], string(content))
	}

	// 4. Convert the diagram
	drawioID := fileIDs[2]
	resp = postJSON(t, client, baseURL+"/conversions/", map[string]string{"id": drawioID, "output_format": "png"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var converted struct {
		ID               string `json:"id"`
		MediaType        string `json:"media_type"`
		OriginalFilename string `json:"original_filename"`
		SizeBytes        int64  `json:"size_bytes"`
		SHA256Checksum   string `json:"sha256_checksum"`
	}
	decode(t, resp, &converted)
	assert.Equal(t, "png", converted.MediaType)
	assert.Equal(t, "flow.png", converted.OriginalFilename)

	resp, err = client.Get(fmt.Sprintf("%s/conversions/%s/download", baseURL, converted.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	content, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), converted.SHA256Checksum)
	assert.Equal(t, int64(len(content)), converted.SizeBytes)

	// 5. Unsupported and unknown requests
	resp = postJSON(t, client, baseURL+"/conversions/", map[string]string{"id": fileIDs[0], "output_format": "png"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, client, baseURL+"/conversions/", map[string]string{"id": "missing", "output_format": "png"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// 6. Joined listing
	resp, err = client.Get(baseURL + "/conversions/complete")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var complete struct {
		Conversions []struct {
			ID         string          `json:"id"`
			Conversion json.RawMessage `json:"conversion"`
		} `json:"conversions"`
	}
	decode(t, resp, &complete)
	require.Len(t, complete.Conversions, 3)
	for _, entry := range complete.Conversions {
		if entry.ID == drawioID {
			assert.Contains(t, string(entry.Conversion), converted.ID)
		} else {
			assert.Equal(t, "null", string(entry.Conversion))
		}
	}

	// 7. Readiness
	resp, err = client.Get(baseURL + "/health/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// 8. Delete everything
	for _, path := range []string{"/conversions/" + converted.ID, "/files/" + fileIDs[0], "/files/" + fileIDs[1], "/files/" + drawioID} {
		req, _ := http.NewRequest(http.MethodDelete, baseURL+path, nil)
		resp, err := client.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode, path)
		resp.Body.Close()
	}

	resp, err = client.Get(fmt.Sprintf("%s/files/%s", baseURL, drawioID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func postJSON(t *testing.T, client *http.Client, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}
