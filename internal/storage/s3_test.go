package storage

import (
	"context"
	"strings"
	"testing"
)

func TestSnapshotKey(t *testing.T) {
	if got := SnapshotKey("V1StGXR8"); got != "snapshots/V1StGXR8.svg" {
		t.Fatalf("SnapshotKey = %q", got)
	}
}

func TestNewS3Client_RequiresBucket(t *testing.T) {
	if _, err := NewS3Client(context.Background(), Params{Region: "us-east-1"}); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestGenerateDownloadLink(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name           string
		publicEndpoint string
		wantPrefix     string
		wantErr        bool
	}{
		{name: "internal endpoint", wantPrefix: "http://minio:9000/outreach/snapshots/abc.svg?"},
		{name: "public endpoint with path", publicEndpoint: "https://files.example.com/s3", wantPrefix: "https://files.example.com/s3/outreach/snapshots/abc.svg?"},
		{name: "invalid public endpoint", publicEndpoint: "not a url", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o, err := NewS3Client(ctx, Params{
				Region:         "us-east-1",
				Endpoint:       "http://minio:9000",
				PublicEndpoint: tc.publicEndpoint,
				AccessKey:      "key",
				SecretKey:      "secret",
				Bucket:         "outreach",
			})
			if err != nil {
				t.Fatalf("NewS3Client: %v", err)
			}
			link, err := o.GenerateDownloadLink(ctx, SnapshotKey("abc"))
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateDownloadLink: %v", err)
			}
			if !strings.HasPrefix(link, tc.wantPrefix) {
				t.Fatalf("link = %q, want prefix %q", link, tc.wantPrefix)
			}
			if !strings.Contains(link, "X-Amz-Expires=900") {
				t.Fatalf("link %q does not carry the 15 minute expiry", link)
			}
		})
	}
}
