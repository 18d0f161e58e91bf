package templating

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"text/template"

	"github.com/CTAG07/rsg/pkg/markov"
)

// Renderer parses and executes templates against a markov.Model.
// All methods are concurrent-safe.
type Renderer struct {
	logger    *slog.Logger
	config    *TemplateConfig
	model     *markov.Model
	rng       *rand.Rand
	templates *template.Template
	funcMap   template.FuncMap
	mu        sync.Mutex
}

// NewRenderer creates a Renderer drawing text from model. A nil logger
// discards all logs and a nil config uses DefaultConfig.
func NewRenderer(logger *slog.Logger, model *markov.Model, config *TemplateConfig) *Renderer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config == nil {
		config = DefaultConfig()
	}
	r := &Renderer{
		logger: logger,
		config: config,
		model:  model,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	r.funcMap = r.makeFuncMap()
	r.templates = template.New("").Funcs(r.funcMap)
	return r
}

func (r *Renderer) makeFuncMap() template.FuncMap {
	return template.FuncMap{
		// Content Generation (from funcs_content.go)
		"text":       r.text,
		"paragraphs": r.paragraphs,
		"randomInt":  r.randomInt,

		// Simple (from funcs_simple.go)
		"add":    add,
		"sub":    sub,
		"repeat": r.repeat,
		"upper":  upper,
		"lower":  lower,
		"join":   join,
	}
}

// SetRand replaces the random source used by every template function.
func (r *Renderer) SetRand(rng *rand.Rand) {
	if rng == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng = rng
}

// ParseFiles parses the named files. Each file becomes a template named after
// its base name.
func (r *Renderer) ParseFiles(paths ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template %q: %w", path, err)
		}
		name := filepath.Base(path)
		if _, err = r.templates.New(name).Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse template %q: %w", path, err)
		}
		r.logger.Debug("Template parsed", "name", name, "path", path)
	}
	return nil
}

// Parse parses content as the template called name.
func (r *Renderer) Parse(name, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.templates.New(name).Parse(content); err != nil {
		return fmt.Errorf("failed to parse template %q: %w", name, err)
	}
	return nil
}

// TemplateNames returns the sorted names of every parsed template.
func (r *Renderer) TemplateNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for _, t := range r.templates.Templates() {
		// The root template has no name and is never executed.
		if t.Name() != "" {
			names = append(names, t.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Execute renders the named template to w. Executions are serialized because
// they share one random source.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		r.logger.Error("Failed to execute template", "template", name, "error", err)
		return err
	}
	return nil
}
