// Package codegen turns a class diagram snapshot into layered Go source.
// The pipeline runs in two modes: a single combined entity-layer blob, or
// a full four-layer file set (entity, access, logic, interface) with one
// file per class per layer, suitable for packaging.
package codegen

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"github.com/classflow/classflow/diagram"
)

// defaultPackageBase is the module path generated files import each other
// through when the caller does not provide one.
const defaultPackageBase = "app"

// Generator renders Go source from diagram snapshots.
type Generator struct {
	logger  *slog.Logger
	pkgBase string
	workers int
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithPackageBase sets the module path the generated layers import each
// other through.
func WithPackageBase(base string) Option {
	return func(g *Generator) {
		if base != "" {
			g.pkgBase = strings.TrimSuffix(base, "/")
		}
	}
}

// WithWorkers caps the number of classes rendered in parallel.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// New returns a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		logger:  slog.Default(),
		pkgBase: defaultPackageBase,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateEntities renders every class into one combined entity-layer
// blob, formatted with goimports. The returned warnings list the members
// and classes that were skipped.
func (g *Generator) GenerateEntities(s *diagram.Snapshot) (string, []string, error) {
	model, err := Build(s, g.logger)
	if err != nil {
		return "", nil, err
	}

	f := jen.NewFile("entity")
	f.HeaderComment(generatedHeader)
	for _, c := range model.Classes {
		writeEntity(f, c)
	}
	src, err := render(f)
	if err != nil {
		return "", model.Warnings, err
	}
	formatted, err := imports.Process("entity.go", src, nil)
	if err != nil {
		return "", model.Warnings, fmt.Errorf("codegen: format entities: %w", err)
	}
	return string(formatted), model.Warnings, nil
}

// Generate renders the full four-layer file set, one file per class per
// layer. Classes render in parallel.
func (g *Generator) Generate(ctx context.Context, s *diagram.Snapshot) (*FileSet, []string, error) {
	model, err := Build(s, g.logger)
	if err != nil {
		return nil, nil, err
	}

	entityPkg := g.pkgBase + "/entity"
	accessPkg := g.pkgBase + "/access"
	logicPkg := g.pkgBase + "/logic"

	fs := NewFileSet()
	grp, _ := errgroup.WithContext(ctx)
	if g.workers > 0 {
		grp.SetLimit(g.workers)
	}
	for _, c := range model.Classes {
		grp.Go(func() error {
			files := map[string]*jen.File{
				filepath.Join("entity", c.Name+".go"):                 entityFile(c),
				filepath.Join("access", c.Name+".Repository.go"):      accessFile(c, entityPkg),
				filepath.Join("logic", c.Name+".Service.go"):          logicFile(c, entityPkg, accessPkg),
				filepath.Join("interface", c.Name+".Handler.go"):      interfaceFile(c, entityPkg, logicPkg),
			}
			for path, f := range files {
				src, err := render(f)
				if err != nil {
					return fmt.Errorf("codegen: class %s: %w", c.Name, err)
				}
				fs.Add(path, src)
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, model.Warnings, err
	}
	return fs, model.Warnings, nil
}

// FileSet is a named set of generated files keyed by relative path.
type FileSet struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewFileSet returns an empty file set.
func NewFileSet() *FileSet {
	return &FileSet{files: map[string][]byte{}}
}

// Add stores one file, replacing an existing entry at the same path.
func (fs *FileSet) Add(path string, contents []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = contents
}

// Paths returns the stored paths in sorted order.
func (fs *FileSet) Paths() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]string, 0, len(fs.files))
	for p := range fs.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// File returns the contents stored at path.
func (fs *FileSet) File(path string) ([]byte, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	b, ok := fs.files[path]
	return b, ok
}

// Len returns the number of files.
func (fs *FileSet) Len() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.files)
}

// Zip writes the file set as a zip archive with deterministic entry order.
func (fs *FileSet) Zip(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, path := range fs.Paths() {
		contents, _ := fs.File(path)
		entry, err := zw.Create(filepath.ToSlash(path))
		if err != nil {
			return fmt.Errorf("codegen: zip entry %s: %w", path, err)
		}
		if _, err := entry.Write(contents); err != nil {
			return fmt.Errorf("codegen: zip write %s: %w", path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("codegen: close zip: %w", err)
	}
	return nil
}

// WriteDir materializes the file set under dir.
func (fs *FileSet) WriteDir(dir string) error {
	for _, path := range fs.Paths() {
		contents, _ := fs.File(path)
		target := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("codegen: mkdir for %s: %w", path, err)
		}
		if err := os.WriteFile(target, contents, 0o644); err != nil {
			return fmt.Errorf("codegen: write %s: %w", path, err)
		}
	}
	return nil
}
