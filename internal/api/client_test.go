package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianops/voyagesim/pkg/core"
)

func TestHealthcheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthcheck" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	require.NoError(t, New(server.URL, "").Healthcheck())
}

func TestHealthcheckBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := New(server.URL, "").Healthcheck()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHealthcheckUnreachable(t *testing.T) {
	require.Error(t, New("http://127.0.0.1:1", "").Healthcheck())
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	replayPath := filepath.Join(dir, "voyage_1.json")
	require.NoError(t, os.WriteFile(replayPath, []byte(`{"meta":{"sessionId":"voyage_1"}}`), 0o644))

	var (
		gotPath   string
		gotFields map[string]string
		gotFile   []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1 << 20))

		gotFields = map[string]string{}
		for key, vals := range r.MultipartForm.Value {
			if len(vals) > 0 {
				gotFields[key] = vals[0]
			}
		}

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		buf := make([]byte, 1<<10)
		n, _ := file.Read(buf)
		gotFile = buf[:n]

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL+"/", "sekrit")
	err := client.Upload(replayPath, core.UploadMetadata{
		SessionID:     "voyage_1",
		RouteName:     "Boston to Porto",
		RiskTier:      "Medium",
		DurationHours: 80,
		Tag:           "nightly",
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/voyages/add", gotPath)
	assert.Equal(t, "sekrit", gotFields["secret"])
	assert.Equal(t, "voyage_1.json", gotFields["filename"])
	assert.Equal(t, "voyage_1", gotFields["sessionId"])
	assert.Equal(t, "Boston to Porto", gotFields["routeName"])
	assert.Equal(t, "Medium", gotFields["riskTier"])
	assert.Equal(t, "nightly", gotFields["tag"])
	assert.JSONEq(t, `{"meta":{"sessionId":"voyage_1"}}`, string(gotFile))
}

func TestUploadRejectedStatus(t *testing.T) {
	dir := t.TempDir()
	replayPath := filepath.Join(dir, "voyage_1.json")
	require.NoError(t, os.WriteFile(replayPath, []byte("{}"), 0o644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	err := New(server.URL, "wrong").Upload(replayPath, core.UploadMetadata{SessionID: "voyage_1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestUploadMissingFile(t *testing.T) {
	err := New("http://127.0.0.1:1", "").Upload("/nonexistent/replay.json", core.UploadMetadata{})
	require.Error(t, err)
}
