// Package source resolves a table identifier into its raw bytes. Identifiers
// are gs:// object paths, http(s) URLs or local paths.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/carbocation/hmmdash"
	"github.com/carbocation/pfx"
	"google.golang.org/api/option"
)

var (
	ErrNoStorageClient = errors.New("gs:// path given but no storage client was configured")
	ErrNotFound        = errors.New("source not found")
)

// DefaultTimeout bounds one HTTP fetch when the Opener has no client of its
// own.
const DefaultTimeout = 60 * time.Second

// Fetcher returns the raw bytes behind a path. Implementations do not retry.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Opener fetches from Cloud Storage, HTTP or the local filesystem, depending
// on the path.
type Opener struct {
	Storage *storage.Client
	HTTP    *http.Client
}

// NewStorageClient creates a Cloud Storage client. Anonymous clients can read
// public buckets without credentials.
func NewStorageClient(ctx context.Context, anonymous bool) (*storage.Client, error) {
	var opts []option.ClientOption
	if anonymous {
		opts = append(opts, option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return client, nil
}

// NeedsStorage reports whether any of paths is a gs:// path.
func NeedsStorage(paths ...string) bool {
	for _, p := range paths {
		if strings.HasPrefix(p, "gs://") {
			return true
		}
	}
	return false
}

func (o *Opener) Fetch(ctx context.Context, path string) ([]byte, error) {
	switch {
	case strings.HasPrefix(path, "gs://"):
		return o.fetchGS(ctx, path)
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return o.fetchHTTP(ctx, path)
	}

	return fetchLocal(strings.TrimPrefix(path, "file://"))
}

// SplitGSPath splits gs://bucket/object into its bucket and object names.
func SplitGSPath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

func (o *Opener) fetchGS(ctx context.Context, path string) ([]byte, error) {
	if o.Storage == nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, ErrNoStorageClient))
	}

	bucketName, pathName, err := SplitGSPath(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	rdr, err := o.Storage.Bucket(bucketName).Object(pathName).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, ErrNotFound))
	} else if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
	}
	defer rdr.Close()

	out, err := ioutil.ReadAll(rdr)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
	}

	return out, nil
}

func (o *Opener) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	client := o.HTTP
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pfx.Err(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, pfx.Err(fmt.Errorf("%s: %w", url, ErrNotFound))
	} else if resp.StatusCode != http.StatusOK {
		return nil, pfx.Err(fmt.Errorf("%s: unexpected status %s", url, resp.Status))
	}

	out, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}

func fetchLocal(path string) ([]byte, error) {
	path, err := hmmdash.ExpandHome(path)
	if err != nil {
		return nil, err
	}

	out, err := ioutil.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, ErrNotFound))
	} else if err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}

// Memory serves fixed contents by path. It is useful for tests and for
// tables embedded in a binary.
type Memory map[string][]byte

func (m Memory) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}

	return out, nil
}
