// Package artwork resolves channel logo URLs and optionally mirrors the images locally.
package artwork

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	m3u "pandatv/src/internal/m3u-parser"

	"github.com/avfs/avfs"
)

// MaxFileSize caps a single downloaded image.
const MaxFileSize = 5 * 1024 * 1024

// ErrInvalidName is returned by ReadFile for names that are not plain cache file names.
var ErrInvalidName = errors.New("artwork: invalid file name")

// Cache maps remote artwork to local copies below dir, served under baseURL.
type Cache struct {
	vfs     avfs.VFS
	dir     string
	baseURL string
	caching bool
	client  *http.Client

	mu     sync.Mutex
	images map[string]string // file name -> served URL
	used   map[string]bool
	queue  []string
}

// New opens the cache. With caching disabled URL only applies the default logo and nothing is
// written to vfs.
func New(vfs avfs.VFS, dir, baseURL string, caching bool, client *http.Client) (*Cache, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var c = &Cache{
		vfs:     vfs,
		dir:     dir,
		baseURL: baseURL,
		caching: caching,
		client:  client,
		images:  make(map[string]string),
		used:    make(map[string]bool),
	}

	if !caching {
		return c, nil
	}

	if err := vfs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create artwork folder: %w", err)
	}

	entries, err := vfs.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			c.images[entry.Name()] = baseURL + entry.Name()
		}
	}

	return c, nil
}

// URL returns the address the browser should load for src. An empty src gets the default
// logo. A remote image that is not cached yet is queued for Fetch and returned unchanged.
// The image counts as in use until the next Resolve.
func (c *Cache) URL(src string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resolve(src, c.used)
}

// Resolve maps a whole playlist's logos like URL and replaces the set of images in use, so
// Prune keeps only what this playlist references.
func (c *Cache) Resolve(srcs []string) []string {
	var used = make(map[string]bool)
	var urls = make([]string, len(srcs))

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, src := range srcs {
		urls[i] = c.resolve(src, used)
	}
	c.used = used

	return urls
}

func (c *Cache) resolve(src string, used map[string]bool) string {
	src = strings.TrimSpace(src)
	if len(src) == 0 {
		return m3u.DefaultLogo
	}

	if !c.caching {
		return src
	}

	var name, ok = fileName(src)
	if !ok {
		return src
	}

	used[name] = true
	if cached, ok := c.images[name]; ok {
		return cached
	}

	if !slices.Contains(c.queue, src) {
		c.queue = append(c.queue, src)
	}
	return src
}

// Queued returns the number of images waiting for Fetch.
func (c *Cache) Queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.queue)
}

// Fetch downloads the queued images. Failed downloads are dropped from the queue and reported
// together in the returned error.
func (c *Cache) Fetch(ctx context.Context) (int, error) {
	c.mu.Lock()
	var queue = c.queue
	c.queue = nil
	c.mu.Unlock()

	var fetched int
	var errs []error

	for _, src := range queue {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		name, _ := fileName(src)
		if err := c.download(ctx, src, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src, err))
			continue
		}

		c.mu.Lock()
		c.images[name] = c.baseURL + name
		c.mu.Unlock()
		fetched++
	}

	return fetched, errors.Join(errs...)
}

func (c *Cache) download(ctx context.Context, src, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
	if err != nil {
		return err
	}
	if len(content) > MaxFileSize {
		return fmt.Errorf("image larger than %d bytes", MaxFileSize)
	}

	return c.vfs.WriteFile(filepath.Join(c.dir, name), content, 0644)
}

// ReadFile returns a cached image by its file name.
func (c *Cache) ReadFile(name string) ([]byte, error) {
	if len(name) == 0 || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, ErrInvalidName
	}

	return c.vfs.ReadFile(filepath.Join(c.dir, name))
}

// Prune deletes cached files that the last Resolve (or a later URL call) did not ask for. With caching disabled every file in
// dir is removed.
func (c *Cache) Prune() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.vfs.ReadDir(c.dir)
	if err != nil {
		return err
	}

	var errs []error
	for _, entry := range entries {
		if c.caching && c.used[entry.Name()] {
			continue
		}
		if err := c.vfs.RemoveAll(filepath.Join(c.dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		delete(c.images, entry.Name())
	}

	return errors.Join(errs...)
}

// fileName is the cache file name for src: the MD5 of the URL plus the extension of its path.
// Only http(s) URLs with an extension can be cached.
func fileName(src string) (string, bool) {
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}

	var ext = filepath.Ext(u.Path)
	if len(ext) == 0 {
		return "", false
	}

	var hash = md5.Sum([]byte(src))
	return hex.EncodeToString(hash[:]) + ext, true
}
