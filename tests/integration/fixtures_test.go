package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var baseURL = os.Getenv("PICSHARE_API_URL")

func requireLiveServer(t *testing.T) *http.Client {
	t.Helper()
	if baseURL == "" {
		t.Skip("PICSHARE_API_URL not set, skipping integration test")
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func postJSON(t *testing.T, client *http.Client, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", baseURL+path, bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func uploadChunk(t *testing.T, client *http.Client, uploadID string, partNumber int, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("chunk", "blob")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	path := fmt.Sprintf("%s/api/upload/chunk/%s/%d", baseURL, uploadID, partNumber)
	req, err := http.NewRequest("POST", path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}
