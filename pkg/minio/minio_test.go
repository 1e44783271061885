package minio

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(context.Background(), Config{Endpoint: "localhost:9000"}, zerolog.Nop())
	require.Error(t, err)

	_, err = New(context.Background(), Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}, zerolog.Nop())
	require.Error(t, err)
}

func TestPublicBaseURL(t *testing.T) {
	require.Equal(t, "http://localhost:9000/rescue", PublicBaseURL(Config{Endpoint: "localhost:9000", Bucket: "rescue"}))
	require.Equal(t, "https://files.example.com", PublicBaseURL(Config{PublicURL: "https://files.example.com/", Bucket: "rescue"}))
}

func TestObjectName(t *testing.T) {
	now := time.Unix(0, 42)
	require.Equal(t, "reports/7/42-photo.jpg", ObjectName("/reports/7/", "photo.jpg", now))
}
