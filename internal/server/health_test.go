package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeBucketChecker struct {
	exists bool
	err    error
	asked  string
}

func (f *fakeBucketChecker) BucketExists(ctx context.Context, bucket string) (bool, error) {
	f.asked = bucket
	return f.exists, f.err
}

func TestCheckReadinessChecksConfiguredBucket(t *testing.T) {
	store := &fakeBucketChecker{exists: true}

	component, err := checkReadiness(context.Background(), &fakePinger{}, store, "picshare")
	if err != nil {
		t.Fatalf("checkReadiness: %v", err)
	}
	if component != "" {
		t.Fatalf("component = %q, want empty", component)
	}
	if store.asked != "picshare" {
		t.Fatalf("checked bucket %q, want %q", store.asked, "picshare")
	}
}

func TestCheckReadinessReportsPostgresFirst(t *testing.T) {
	db := &fakePinger{err: errors.New("connection refused")}
	store := &fakeBucketChecker{exists: true}

	component, err := checkReadiness(context.Background(), db, store, "picshare")
	if err == nil {
		t.Fatal("expected error for unreachable postgres")
	}
	if component != "postgres" {
		t.Fatalf("component = %q, want postgres", component)
	}
	if store.asked != "" {
		t.Fatal("bucket check should not run when postgres is down")
	}
}

func TestCheckReadinessFailsOnMissingBucket(t *testing.T) {
	store := &fakeBucketChecker{exists: false}

	component, err := checkReadiness(context.Background(), &fakePinger{}, store, "picshare")
	if err == nil {
		t.Fatal("expected error for missing bucket")
	}
	if component != "minio" {
		t.Fatalf("component = %q, want minio", component)
	}
}

func TestCheckReadinessFailsOnBucketCheckError(t *testing.T) {
	store := &fakeBucketChecker{err: errors.New("access denied")}

	component, err := checkReadiness(context.Background(), &fakePinger{}, store, "picshare")
	if err == nil {
		t.Fatal("expected error when bucket check fails")
	}
	if component != "minio" {
		t.Fatalf("component = %q, want minio", component)
	}
}

func TestLivenessEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerHealthRoutes(router, Dependencies{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
