package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Coordinator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	coordinator, _, _ := newTestCoordinator(4, &fakePublisher{})
	router := gin.New()
	RegisterRoutes(router.Group("/api"), coordinator)
	return router, coordinator
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func postChunk(t *testing.T, router *gin.Engine, uploadID string, partNumber int, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("chunk", "blob")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	writer.Close()

	path := fmt.Sprintf("/api/upload/chunk/%s/%d", uploadID, partNumber)
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestUploadEndpointsFullFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/upload/init", gin.H{
		"filename": "photo.jpg",
		"mimetype": "image/jpeg",
		"size":     10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("init status %d: %s", rec.Code, rec.Body.String())
	}
	init := decodeBody(t, rec)
	uploadID, _ := init["uploadId"].(string)
	if uploadID == "" {
		t.Fatalf("missing upload id in %v", init)
	}
	if init["totalChunks"].(float64) != 3 {
		t.Fatalf("expected 3 chunks, got %v", init["totalChunks"])
	}

	for n, blob := range [][]byte{part(4, 'a'), part(4, 'b'), part(2, 'c')} {
		rec := postChunk(t, router, uploadID, n+1, blob)
		if rec.Code != http.StatusOK {
			t.Fatalf("chunk %d status %d: %s", n+1, rec.Code, rec.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/upload/progress/"+uploadID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status %d: %s", rec.Code, rec.Body.String())
	}
	if progress := decodeBody(t, rec); progress["progress"].(float64) != 100 {
		t.Fatalf("expected 100%% progress, got %v", progress["progress"])
	}

	req = httptest.NewRequest(http.MethodPost, "/api/upload/complete/"+uploadID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["shortCode"] != "abc123" {
		t.Fatalf("unexpected completion body: %v", body)
	}

	// A completed session no longer exists.
	req = httptest.NewRequest(http.MethodGet, "/api/upload/progress/"+uploadID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after completion, got %d", rec.Code)
	}
}

func TestInitRejectsMissingFields(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/upload/init", gin.H{"filename": "photo.jpg"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestInitRejectsUnsupportedMimeType(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/upload/init", gin.H{
		"filename": "doc.pdf",
		"mimetype": "application/pdf",
		"size":     10,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for pdf, got %d", rec.Code)
	}
}

func TestCompleteIncompleteReportsCounts(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/upload/init", gin.H{
		"filename": "photo.jpg",
		"mimetype": "image/jpeg",
		"size":     10,
	})
	init := decodeBody(t, rec)
	uploadID := init["uploadId"].(string)

	if rec := postChunk(t, router, uploadID, 1, part(4, 'a')); rec.Code != http.StatusOK {
		t.Fatalf("chunk status %d: %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload/complete/"+uploadID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete session, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["uploaded"].(float64) != 1 || body["total"].(float64) != 3 {
		t.Fatalf("expected 1 of 3 reported, got %v", body)
	}
}

func TestChunkForUnknownSessionReturnsNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postChunk(t, router, "no-such-session", 1, part(4, 'a'))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
