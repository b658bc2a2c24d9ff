package s3

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/querypilot/querypilot/internal/storage"
)

func TestPutUsesPrefixAndResolvedKey(t *testing.T) {
	fake := &fakeAPI{}
	store, err := NewWithAPI("reports", "querypilot/prod", fake)
	if err != nil {
		t.Fatalf("NewWithAPI() error = %v", err)
	}

	_, err = store.Put(context.Background(), "/runs/date=2026-08-25/run-1/report.json", bytes.NewBufferString("{}"), 2, storage.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.lastPutBucket != "reports" {
		t.Fatalf("bucket = %q", fake.lastPutBucket)
	}
	if fake.lastPutKey != "querypilot/prod/runs/date=2026-08-25/run-1/report.json" {
		t.Fatalf("key = %q", fake.lastPutKey)
	}
	if fake.lastContentType != "application/json" {
		t.Fatalf("content type = %q", fake.lastContentType)
	}
}

func TestPutRejectsPathTraversal(t *testing.T) {
	store, err := NewWithAPI("reports", "", &fakeAPI{})
	if err != nil {
		t.Fatalf("NewWithAPI() error = %v", err)
	}
	for _, key := range []string{"../secrets.txt", "runs/../../etc/passwd", "..", ""} {
		if _, err := store.Put(context.Background(), key, bytes.NewBufferString("x"), 1, storage.PutOptions{}); err == nil {
			t.Errorf("Put(%q) accepted invalid key", key)
		}
	}
}

func TestEnsureBucketCreatesWhenMissing(t *testing.T) {
	fake := &fakeAPI{bucketExists: false}
	store, err := NewWithAPI("reports", "", fake)
	if err != nil {
		t.Fatalf("NewWithAPI() error = %v", err)
	}
	if err := store.ensureBucket(context.Background(), "us-east-1"); err != nil {
		t.Fatalf("ensureBucket() error = %v", err)
	}
	if !fake.createBucketCalled {
		t.Fatal("expected CreateBucket to be called")
	}
}

func TestDeleteIgnoresMissingObject(t *testing.T) {
	fake := &fakeAPI{deleteErr: storage.ErrObjectNotFound}
	store, err := NewWithAPI("reports", "", fake)
	if err != nil {
		t.Fatalf("NewWithAPI() error = %v", err)
	}
	if err := store.Delete(context.Background(), "runs/run-1/report.csv"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestParseEndpoint(t *testing.T) {
	cases := []struct {
		raw        string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"https://minio.example.com", false, "minio.example.com", true},
		{"http://minio.local:9000", false, "minio.local:9000", false},
		{"minio.local:9000", true, "minio.local:9000", true},
	}
	for _, c := range cases {
		host, secure, err := parseEndpoint(c.raw, c.useSSL)
		if err != nil {
			t.Fatalf("parseEndpoint(%q) error = %v", c.raw, err)
		}
		if host != c.wantHost || secure != c.wantSecure {
			t.Errorf("parseEndpoint(%q) = %q/%v, want %q/%v", c.raw, host, secure, c.wantHost, c.wantSecure)
		}
	}
}

type fakeAPI struct {
	lastPutBucket      string
	lastPutKey         string
	lastContentType    string
	bucketExists       bool
	createBucketCalled bool
	deleteErr          error
}

func (f *fakeAPI) Put(_ context.Context, bucket, key string, body io.Reader, size int64, contentType string) (storage.ObjectInfo, error) {
	f.lastPutBucket = bucket
	f.lastPutKey = key
	f.lastContentType = contentType
	_, _ = io.Copy(io.Discard, body)
	return storage.ObjectInfo{Key: key, Size: size, ETag: "etag-1"}, nil
}

func (f *fakeAPI) Get(_ context.Context, _, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(key)), nil
}

func (f *fakeAPI) Stat(_ context.Context, _, key string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{Key: key, Size: 10, LastModified: time.Now().UTC()}, nil
}

func (f *fakeAPI) Delete(_ context.Context, _, _ string) error {
	return f.deleteErr
}

func (f *fakeAPI) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, nil
}

func (f *fakeAPI) CreateBucket(_ context.Context, _, _ string) error {
	f.createBucketCalled = true
	return nil
}
