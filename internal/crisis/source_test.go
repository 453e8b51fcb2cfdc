package crisis

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	lastKey string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastKey = aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	data, ok := f.objects[f.lastKey]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestSourceFromLocation(t *testing.T) {
	cases := []struct {
		location string
		want     string
	}{
		{"", "embedded"},
		{"Embedded", "embedded"},
		{"https://cdn.example.org/keywords.json", "https://cdn.example.org/keywords.json"},
		{"s3://config-bucket/crisis/keywords.json", "s3://config-bucket/crisis/keywords.json"},
		{"file:///etc/whisperbox/keywords.yaml", "file:/etc/whisperbox/keywords.yaml"},
		{"./config/keywords.yml", "file:./config/keywords.yml"},
	}
	for _, tc := range cases {
		src, err := SourceFromLocation(tc.location, nil, time.Second)
		require.NoError(t, err, tc.location)
		assert.Equal(t, tc.want, src.String())
	}

	for _, bad := range []string{"s3://bucket-only", "ftp://x/y", "keywords.txt"} {
		_, err := SourceFromLocation(bad, nil, time.Second)
		assert.ErrorIs(t, err, ErrUnsupportedSource, bad)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a:\n  keywords: [x]\n  level: low\n"), 0o600))

	data, err := FileSource{Path: path}.Fetch(context.Background())
	require.NoError(t, err)
	db, err := ParseDatabase(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, db.Keys())

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.Fetch(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(twoCategories))
	}))
	defer srv.Close()

	data, err := NewHTTPSource(srv.URL+"/keywords.json", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, twoCategories, string(data))

	_, err = NewHTTPSource(srv.URL+"/missing", time.Second).Fetch(context.Background())
	assert.Error(t, err)
}

func TestS3Source(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{"cfg/crisis.json": []byte(twoCategories)}}
	src, err := SourceFromLocation("s3://cfg/crisis.json", client, time.Second)
	require.NoError(t, err)

	data, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cfg/crisis.json", client.lastKey)
	assert.JSONEq(t, twoCategories, string(data))

	_, err = (&S3Source{Bucket: "cfg", Key: "nope"}).Fetch(context.Background())
	assert.Error(t, err)
}

func TestCachedSource(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := &stubSource{data: []byte(twoCategories)}
	cached := NewCachedSource(inner, client, time.Minute, nil)

	for i := 0; i < 3; i++ {
		data, err := cached.Fetch(context.Background())
		require.NoError(t, err)
		assert.JSONEq(t, twoCategories, string(data))
	}
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.True(t, mr.Exists(defaultCacheKey))

	mr.FastForward(2 * time.Minute)
	_, err := cached.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())

	require.NoError(t, cached.Invalidate(context.Background()))
	assert.False(t, mr.Exists(defaultCacheKey))
}

func TestCachedSource_SkipsUnparseableDocuments(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := &stubSource{data: []byte("<html>bad gateway</html>")}
	cached := NewCachedSource(inner, client, time.Minute, nil)

	data, err := cached.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<html>bad gateway</html>", string(data))
	assert.False(t, mr.Exists(defaultCacheKey))

	inner.set([]byte(twoCategories), nil)
	data, err = cached.Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, twoCategories, string(data))
	assert.True(t, mr.Exists(defaultCacheKey))
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedSource_RedisDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	inner := &stubSource{data: []byte(twoCategories)}
	data, err := NewCachedSource(inner, client, time.Minute, nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, twoCategories, string(data))
}

func TestLoader_ReloadInvalidatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := &stubSource{data: []byte(twoCategories)}
	l := NewLoader(NewCachedSource(inner, client, time.Hour, nil), nil)
	require.Equal(t, 2, l.Load(context.Background()).Len())

	inner.set([]byte(`{"only": {"keywords": ["x"], "level": "low"}}`), nil)
	assert.Equal(t, []string{"only"}, l.Reload(context.Background()).Keys())
}
