package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/file-loader/backend/internal/models"
	"github.com/labstack/gommon/log"
)

// Catalog is the immutable set of category templates loaded at startup.
// Each widget gets its own copies via Categories.
type Catalog struct {
	templates []*models.Category
}

// New builds a catalog from definitions. Blank names and repeated names are
// dropped so that category names stay unique; order is preserved.
func New(defs []models.CategoryDef) *Catalog {
	seen := make(map[string]struct{}, len(defs))
	templates := make([]*models.Category, 0, len(defs))
	for _, d := range defs {
		c := d.ToCategory()
		if c.Name == "" {
			continue
		}
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		templates = append(templates, c)
	}
	return &Catalog{templates: templates}
}

// Categories returns fresh Category records with full quotas.
func (c *Catalog) Categories() []*models.Category {
	out := make([]*models.Category, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t.Clone())
	}
	return out
}

// Len returns the number of categories.
func (c *Catalog) Len() int {
	return len(c.templates)
}

// TotalSlots returns the sum of all quotas.
func (c *Catalog) TotalSlots() int {
	n := 0
	for _, t := range c.templates {
		n += t.TotalQuota
	}
	return n
}

// Status describes the most recent load.
type Status struct {
	Source     string    `json:"source,omitempty"`
	LoadedAt   time.Time `json:"loadedAt"`
	Categories int       `json:"categories"`
	Slots      int       `json:"slots"`
	Error      string    `json:"error,omitempty"`
	Breaker    string    `json:"breaker,omitempty"`
}

// breakerReporter is implemented by sources guarded by a circuit breaker.
type breakerReporter interface {
	BreakerState() string
}

// Loader produces catalogs. A remote source, when configured, is the only
// authority: if it fails the result is an empty catalog. Local sources are
// tried in order only when there is no remote source.
type Loader struct {
	remote Source
	local  []Source
	logger *log.Logger

	mu     sync.Mutex
	status Status
}

// NewLoader creates a loader. remote may be nil.
func NewLoader(logger *log.Logger, remote Source, local ...Source) *Loader {
	return &Loader{remote: remote, local: local, logger: logger}
}

// Load never fails: when no source succeeds it logs the failures and
// returns an empty catalog so the widget degrades to "no categories".
func (l *Loader) Load(ctx context.Context) *Catalog {
	sources := l.local
	if l.remote != nil {
		sources = []Source{l.remote}
	}

	var lastErr error
	for _, src := range sources {
		defs, err := src.Fetch(ctx)
		if err != nil {
			l.logger.Warnf("[Catalog] source %s failed: %v", src.Name(), err)
			lastErr = err
			continue
		}
		cat := New(defs)
		l.logger.Infof("[Catalog] loaded %d categories (%d slots) from %s", cat.Len(), cat.TotalSlots(), src.Name())
		l.record(src.Name(), cat, nil)
		return cat
	}

	l.logger.Errorf("[Catalog] no source available, continuing with an empty catalog")
	cat := New(nil)
	l.record("", cat, lastErr)
	return cat
}

// Watch reloads the catalog every interval until ctx is done and hands each
// result to apply. Widgets created after a reload use the new catalog;
// existing widgets keep the categories they started with.
func (l *Loader) Watch(ctx context.Context, interval time.Duration, apply func(*Catalog)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			apply(l.Load(ctx))
		}
	}
}

// Status returns the outcome of the last load and the remote breaker state.
func (l *Loader) Status() Status {
	l.mu.Lock()
	st := l.status
	l.mu.Unlock()

	if b, ok := l.remote.(breakerReporter); ok {
		st.Breaker = b.BreakerState()
	}
	return st
}

func (l *Loader) record(source string, cat *Catalog, err error) {
	st := Status{
		Source:     source,
		LoadedAt:   time.Now(),
		Categories: cat.Len(),
		Slots:      cat.TotalSlots(),
	}
	if err != nil {
		st.Error = err.Error()
	}
	l.mu.Lock()
	l.status = st
	l.mu.Unlock()
}
