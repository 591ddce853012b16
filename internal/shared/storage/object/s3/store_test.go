package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"portfolio-backend/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/file.pdf", want: "root/user/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "user/file.pdf", want: "root/sub/user/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestPresignPutSignsHostOnly(t *testing.T) {
	cfg := aws.Config{
		Region:      "us-east-1",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider("AKID", "SECRET", "")),
	}
	store := NewFromConfig(cfg, "bucket", "uploads", "")

	raw, err := store.PresignPut(context.Background(), "user/doc/resume.pdf", "application/pdf", 15*time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if !strings.HasSuffix(parsed.Path, "/uploads/user/doc/resume.pdf") {
		t.Fatalf("expected prefixed key in path, got %s", parsed.Path)
	}
	signed := parsed.Query().Get("X-Amz-SignedHeaders")
	if strings.Contains(signed, "content-length") || !strings.Contains(signed, "host") {
		t.Fatalf("unexpected signed headers %q", signed)
	}
	if parsed.Query().Get("X-Amz-Expires") != "900" {
		t.Fatalf("unexpected expiry %q", parsed.Query().Get("X-Amz-Expires"))
	}
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	bodies  map[string][]byte
	missing bool
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	if f.bodies == nil {
		f.bodies = map[string][]byte{}
	}
	f.bodies[aws.ToString(params.Key)] = data
	f.puts = append(f.puts, params)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.bodies[aws.ToString(params.Key)]
	if !ok || f.missing {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestSaveSniffsAndEncrypts(t *testing.T) {
	fake := &fakeS3{}
	store := NewWithAPI(fake, "bucket", "uploads", "")

	pdf := []byte("%PDF-1.7\n1 0 obj\n")
	key, size, mime, err := store.Save(context.Background(), "google:1", "My Resume.pdf", bytes.NewReader(pdf))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if size != int64(len(pdf)) || mime != "application/pdf" {
		t.Fatalf("unexpected size/mime %d %s", size, mime)
	}
	if !strings.HasPrefix(key, object.UserKey("google:1")+"/") || !strings.HasSuffix(key, "_My_Resume.pdf") {
		t.Fatalf("unexpected key %s", key)
	}
	put := fake.puts[0]
	if aws.ToString(put.Key) != "uploads/"+key {
		t.Fatalf("expected prefixed key, got %s", aws.ToString(put.Key))
	}
	if put.ServerSideEncryption != s3types.ServerSideEncryptionAes256 || put.CacheControl != nil {
		t.Fatalf("unexpected put options %+v", put)
	}
}

func TestSaveSitePageUsesKMSAndCacheControl(t *testing.T) {
	fake := &fakeS3{}
	store := NewWithAPI(fake, "bucket", "", "kms-key")

	if _, err := store.SaveWithKey(context.Background(), "sites/jane/index.html", "text/html; charset=utf-8", strings.NewReader("<html></html>")); err != nil {
		t.Fatalf("save: %v", err)
	}
	put := fake.puts[0]
	if put.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(put.SSEKMSKeyId) != "kms-key" {
		t.Fatalf("expected kms encryption, got %+v", put)
	}
	if aws.ToString(put.CacheControl) != sitesCacheControl {
		t.Fatalf("unexpected cache control %q", aws.ToString(put.CacheControl))
	}
}

func TestOpenMissingIsNotFound(t *testing.T) {
	store := NewWithAPI(&fakeS3{}, "bucket", "", "")
	if _, err := store.Open(context.Background(), "nope"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.PresignPut(context.Background(), "k", "application/pdf", time.Minute); !errors.Is(err, object.ErrPresignUnsupported) {
		t.Fatalf("expected presign unsupported, got %v", err)
	}
}
