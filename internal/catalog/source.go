// Package catalog loads the category definitions (name, quota, accepted
// types) that size every upload widget.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/file-loader/backend/internal/models"
	"github.com/file-loader/backend/internal/resilience"
	"gopkg.in/yaml.v3"
)

// ErrCatalogLoadFailed wraps every fetch, status or decode failure.
var ErrCatalogLoadFailed = errors.New("catalog load failed")

// Source fetches raw category definitions.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.CategoryDef, error)
}

// StatusError reports a non-2xx catalog response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, e.Status)
}

// HTTPSource GETs a JSON array of definitions from a fixed URL.
type HTTPSource struct {
	url    string
	client *http.Client
	guard  *resilience.Guard
}

// NewHTTPSource creates an HTTP catalog source. guard may be nil, in which
// case every fetch is a single attempt.
func NewHTTPSource(url string, timeout time.Duration, guard *resilience.Guard) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
		guard:  guard,
	}
}

func (s *HTTPSource) Name() string {
	return s.url
}

// Fetch performs the GET, checking the status before decoding.
func (s *HTTPSource) Fetch(ctx context.Context) ([]models.CategoryDef, error) {
	var defs []models.CategoryDef
	fetch := func(ctx context.Context) error {
		var err error
		defs, err = s.fetchOnce(ctx)
		return err
	}

	var err error
	if s.guard != nil {
		err = s.guard.Do(ctx, fetch)
	} else {
		err = fetch(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogLoadFailed, s.url, err)
	}
	return defs, nil
}

// BreakerState reports the guard's breaker state, or "" without a guard.
func (s *HTTPSource) BreakerState() string {
	if s.guard == nil {
		return ""
	}
	return s.guard.State()
}

func (s *HTTPSource) fetchOnce(ctx context.Context) ([]models.CategoryDef, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	return DecodeJSON(resp.Body)
}

// IsRetryable reports whether a failed fetch may succeed on a later try:
// transport errors and 5xx responses. A 4xx or an undecodable body will not.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// FileSource reads definitions from a local JSON or YAML file.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed source. The format follows the
// extension: .yaml/.yml is YAML, anything else JSON.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return s.path
}

func (s *FileSource) Fetch(ctx context.Context) ([]models.CategoryDef, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogLoadFailed, err)
	}
	defer f.Close()

	return decodeByExt(s.path, f)
}

// FSSource reads definitions from a file inside an fs.FS, such as the
// catalog embedded in the binary.
type FSSource struct {
	fsys fs.FS
	path string
}

// NewFSSource creates a source reading path from fsys.
func NewFSSource(fsys fs.FS, path string) *FSSource {
	return &FSSource{fsys: fsys, path: path}
}

func (s *FSSource) Name() string {
	return "embedded:" + s.path
}

func (s *FSSource) Fetch(ctx context.Context) ([]models.CategoryDef, error) {
	f, err := s.fsys.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogLoadFailed, err)
	}
	defer f.Close()

	return decodeByExt(s.path, f)
}

func decodeByExt(path string, r io.Reader) ([]models.CategoryDef, error) {
	var defs []models.CategoryDef
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		defs, err = DecodeYAML(r)
	default:
		defs, err = DecodeJSON(r)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogLoadFailed, path, err)
	}
	return defs, nil
}

// DecodeJSON decodes a JSON array of definitions.
func DecodeJSON(r io.Reader) ([]models.CategoryDef, error) {
	var defs []models.CategoryDef
	if err := json.NewDecoder(r).Decode(&defs); err != nil {
		return nil, fmt.Errorf("decoding catalog JSON: %w", err)
	}
	return defs, nil
}

// DecodeYAML decodes a YAML sequence of definitions.
func DecodeYAML(r io.Reader) ([]models.CategoryDef, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var defs []models.CategoryDef
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("decoding catalog YAML: %w", err)
	}
	return defs, nil
}
