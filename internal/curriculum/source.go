package curriculum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxSourceBytes caps a single HTTP source body.
const maxSourceBytes = 32 << 20

// Source is one named unit of curriculum content.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// Catalog lists the sources that make up the curriculum. It is consulted on
// every retrieval so files added to a manifest are picked up by Reload.
type Catalog interface {
	Sources(ctx context.Context) ([]Source, error)
}

// FileSource reads a source from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return filepath.Base(s.Path) }

func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return data, nil
}

// HTTPSource fetches a source with a GET request.
type HTTPSource struct {
	name   string
	url    string
	client *http.Client
	header http.Header
}

// HTTPOption configures an HTTPSource or HTTPCatalog.
type HTTPOption func(*httpSettings)

type httpSettings struct {
	client *http.Client
	header http.Header
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *httpSettings) {
		s.client = client
	}
}

// WithHeader adds a request header, e.g. an authorization token for a private bucket.
func WithHeader(key, value string) HTTPOption {
	return func(s *httpSettings) {
		s.header.Add(key, value)
	}
}

func newHTTPSettings(opts []HTTPOption) httpSettings {
	s := httpSettings{client: http.DefaultClient, header: http.Header{}}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewHTTPSource creates a source fetching rawURL. The name is used for
// logging and for the id namespace code.
func NewHTTPSource(name, rawURL string, opts ...HTTPOption) *HTTPSource {
	s := newHTTPSettings(opts)
	return &HTTPSource{name: name, url: rawURL, client: s.client, header: s.header}
}

func (s *HTTPSource) Name() string { return s.name }

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	return httpGet(ctx, s.client, s.header, s.url)
}

func httpGet(ctx context.Context, client *http.Client, header http.Header, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return data, nil
}

// HTTPSources builds one HTTPSource per file name relative to baseURL.
func HTTPSources(baseURL string, files []string, opts ...HTTPOption) []Source {
	base := strings.TrimSuffix(baseURL, "/") + "/"
	sources := make([]Source, 0, len(files))
	for _, f := range files {
		sources = append(sources, NewHTTPSource(f, base+url.PathEscape(f), opts...))
	}
	return sources
}

// Manifest enumerates source files in load order.
type Manifest struct {
	Version string   `json:"version" yaml:"version"`
	Files   []string `json:"files" yaml:"files"`
}

// ParseManifest decodes a JSON or YAML manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	// YAML is a superset of JSON, so one decoder serves both.
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// SourcesFromManifest returns file sources for every entry in the manifest at
// path. Entries are resolved relative to the manifest's directory.
func SourcesFromManifest(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	sources := make([]Source, 0, len(m.Files))
	for _, f := range m.Files {
		sources = append(sources, FileSource{Path: filepath.Join(dir, f)})
	}
	return sources, nil
}

// SourcesFromDir lists JSON and YAML files in dir in lexical order, skipping
// the file named exclude.
func SourcesFromDir(dir, exclude string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var sources []Source
	for _, e := range entries {
		if e.IsDir() || e.Name() == exclude || !IsContentFile(e.Name()) {
			continue
		}
		sources = append(sources, FileSource{Path: filepath.Join(dir, e.Name())})
	}
	slices.SortFunc(sources, func(a, b Source) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return sources, nil
}

// IsContentFile reports whether name has a supported source extension.
func IsContentFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// StaticCatalog is a fixed list of sources.
type StaticCatalog []Source

func (c StaticCatalog) Sources(context.Context) ([]Source, error) {
	return c, nil
}

// DirCatalog reads the manifest inside Dir, or scans Dir when there is no manifest.
type DirCatalog struct {
	Dir      string
	Manifest string
}

func (c DirCatalog) Sources(ctx context.Context) ([]Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Manifest != "" {
		path := filepath.Join(c.Dir, c.Manifest)
		sources, err := SourcesFromManifest(path)
		if err == nil {
			return sources, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("ignoring unreadable manifest", "path", path, "error", err)
		}
	}
	return SourcesFromDir(c.Dir, c.Manifest)
}

// HTTPCatalog fetches a manifest from BaseURL and serves its files over HTTP.
// When the manifest cannot be fetched, Fallback names the files instead.
type HTTPCatalog struct {
	BaseURL  string
	Manifest string
	Fallback []string
	opts     []HTTPOption
}

// NewHTTPCatalog creates a catalog rooted at baseURL.
func NewHTTPCatalog(baseURL, manifest string, fallback []string, opts ...HTTPOption) *HTTPCatalog {
	return &HTTPCatalog{BaseURL: baseURL, Manifest: manifest, Fallback: fallback, opts: opts}
}

func (c *HTTPCatalog) Sources(ctx context.Context) ([]Source, error) {
	files := c.Fallback
	if c.Manifest != "" {
		s := newHTTPSettings(c.opts)
		manifestURL := strings.TrimSuffix(c.BaseURL, "/") + "/" + url.PathEscape(c.Manifest)
		data, err := httpGet(ctx, s.client, s.header, manifestURL)
		if err == nil {
			var m Manifest
			if m, err = ParseManifest(data); err == nil {
				files = m.Files
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("could not load manifest, using fallback list", "url", manifestURL, "error", err, "fallback", len(c.Fallback))
		}
	}
	return HTTPSources(c.BaseURL, files, c.opts...), nil
}
