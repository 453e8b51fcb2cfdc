package crisis

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

//go:embed default_keywords.json
var defaultKeywords []byte

// maxDocumentBytes caps remote keyword documents.
const maxDocumentBytes = 4 << 20

// Source fetches the raw keyword document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// EmbeddedSource serves the keyword database compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Fetch(context.Context) ([]byte, error) {
	return append([]byte(nil), defaultKeywords...), nil
}

func (EmbeddedSource) String() string { return "embedded" }

// FileSource reads a local JSON or YAML document.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("crisis: read %s: %w", s.Path, err)
	}
	return data, nil
}

func (s FileSource) String() string { return "file:" + s.Path }

// HTTPSource fetches the document over HTTP(S).
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource creates an HTTP source whose requests time out after timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("crisis: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9")
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crisis: fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crisis: fetch %s: unexpected status %d", s.URL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("crisis: read %s: %w", s.URL, err)
	}
	return data, nil
}

func (s *HTTPSource) String() string { return s.URL }

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the document from an S3 object.
type S3Source struct {
	Bucket string
	Key    string
	Client S3API
}

func (s *S3Source) Fetch(ctx context.Context) ([]byte, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("crisis: s3 client not configured for %s", s)
	}
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("crisis: s3 get %s: %w", s, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(io.LimitReader(out.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("crisis: s3 read %s: %w", s, err)
	}
	return data, nil
}

func (s *S3Source) String() string { return "s3://" + s.Bucket + "/" + s.Key }

// SourceFromLocation picks a source for a configured location:
// "" or "embedded", an http(s) URL, an s3://bucket/key URI, or a file path.
func SourceFromLocation(location string, s3Client S3API, timeout time.Duration) (Source, error) {
	loc := strings.TrimSpace(location)
	lower := strings.ToLower(loc)
	switch {
	case loc == "" || lower == "embedded":
		return EmbeddedSource{}, nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return NewHTTPSource(loc, timeout), nil
	case strings.HasPrefix(lower, "s3://"):
		rest := loc[len("s3://"):]
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || key == "" {
			return nil, fmt.Errorf("%w: %q needs s3://bucket/key", ErrUnsupportedSource, loc)
		}
		return &S3Source{Bucket: bucket, Key: key, Client: s3Client}, nil
	case strings.HasPrefix(lower, "file://"):
		return FileSource{Path: loc[len("file://"):]}, nil
	case strings.HasSuffix(lower, ".json"), strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FileSource{Path: loc}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, loc)
	}
}
