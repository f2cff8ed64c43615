package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Enabled:      true,
		Bucket:       "product-images",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     endpoint,
		UsePathStyle: true,
	}
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{"nil config", nil, "configuration is required"},
		{"missing bucket", &config.StorageConfig{AccessKey: "k", SecretKey: "s"}, "bucket is required"},
		{"missing access key", &config.StorageConfig{Bucket: "b", SecretKey: "s"}, "access key is required"},
		{"missing secret key", &config.StorageConfig{Bucket: "b", AccessKey: "k"}, "secret key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3ObjectStorage(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("defaults", func(t *testing.T) {
		s, err := NewS3ObjectStorage(testConfig(""), WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, "product-images", s.Bucket())
		assert.Equal(t, 15*time.Minute, s.presignExpiration)
	})

	t.Run("option overrides expiration", func(t *testing.T) {
		s, err := NewS3ObjectStorage(testConfig(""), WithPresignExpiration(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, s.presignExpiration)
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		ssl      bool
		want     string
	}{
		{"", false, "http://localhost:9000"},
		{"minio:9000", false, "http://minio:9000"},
		{"s3.af-south-1.amazonaws.com", true, "https://s3.af-south-1.amazonaws.com"},
		{"https://cdn.example.com", false, "https://cdn.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := normalizeEndpoint(tt.endpoint, tt.ssl)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestS3ObjectStorage_PresignedURLs(t *testing.T) {
	ctx := context.Background()
	s, err := NewS3ObjectStorage(testConfig("http://localhost:9000"))
	require.NoError(t, err)
	key := "products/3f1c/9a8b.webp"

	t.Run("upload url uses the default expiry for zero", func(t *testing.T) {
		before := time.Now()
		raw, expiresAt, err := s.GenerateUploadURL(ctx, key, "image/webp", 0)
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "/product-images/"+key, u.Path)
		assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
		assert.WithinDuration(t, before.Add(15*time.Minute), expiresAt, 5*time.Second)
	})

	t.Run("download url honours an explicit expiry", func(t *testing.T) {
		raw, _, err := s.GenerateDownloadURL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Contains(t, raw, "X-Amz-Expires=60")
	})

	t.Run("empty keys are rejected", func(t *testing.T) {
		_, _, err := s.GenerateUploadURL(ctx, "", "image/png", 0)
		assert.ErrorIs(t, err, errMissingKey)
		_, _, err = s.GenerateDownloadURL(ctx, "", 0)
		assert.ErrorIs(t, err, errMissingKey)
		assert.ErrorIs(t, s.DeleteObject(ctx, ""), errMissingKey)
		_, err = s.ObjectExists(ctx, "")
		assert.ErrorIs(t, err, errMissingKey)
	})
}

func TestS3ObjectStorage_ObjectExists(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && strings.HasSuffix(r.URL.Path, "/uploaded.png"):
			w.Header().Set("Content-Type", "image/png")
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodHead && strings.HasSuffix(r.URL.Path, "/broken.png"):
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	s, err := NewS3ObjectStorage(testConfig(server.URL))
	require.NoError(t, err)

	exists, err := s.ObjectExists(ctx, "products/uploaded.png")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ObjectExists(ctx, "products/missing.png")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.ObjectExists(ctx, "products/broken.png")
	assert.Error(t, err)
}
