package storage

import (
	"errors"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestExportKeyLayout(t *testing.T) {
	id := NewExportID()
	key := ExportKey(7, 42, id)

	if !strings.HasPrefix(key, ExportPrefix(7, 42)) {
		t.Fatalf("key %q not under prefix %q", key, ExportPrefix(7, 42))
	}
	if key != "exports/7/42/"+id+".pdf" {
		t.Fatalf("unexpected key %q", key)
	}
	if got := ExportIDFromKey(key); got != id {
		t.Fatalf("ExportIDFromKey = %q, want %q", got, id)
	}
}

func TestParseExportID(t *testing.T) {
	id := NewExportID()
	if got, ok := ParseExportID("  " + strings.ToUpper(id) + " "); !ok || got != id {
		t.Fatalf("ParseExportID(upper) = %q, %v", got, ok)
	}
	for _, bad := range []string{"", "../../8/1/x", "latest", id + "/../x"} {
		if _, ok := ParseExportID(bad); ok {
			t.Fatalf("ParseExportID(%q) should fail", bad)
		}
	}
}

func TestMinioErrorClassification(t *testing.T) {
	if !IsNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Fatalf("NoSuchKey not detected")
	}
	if !IsNoSuchBucket(minio.ErrorResponse{Code: "NoSuchBucket"}) {
		t.Fatalf("NoSuchBucket not detected")
	}
	if !IsNoSuchKey(minio.ErrorResponse{StatusCode: 404}) {
		t.Fatalf("bare 404 from StatObject not detected")
	}
	if IsNoSuchKey(minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404}) {
		t.Fatalf("missing bucket classified as missing key")
	}
	if IsNoSuchKey(errors.New("connection refused")) || IsNoSuchKey(nil) {
		t.Fatalf("unrelated error classified as missing key")
	}
}
