package apps

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thuhak/pbs-cache/pkg/errors"
	"github.com/thuhak/pbs-cache/pkg/store"
	"github.com/thuhak/pbs-cache/pkg/version"
)

// App describes one installed application and its scheduling defaults.
type App struct {
	Name                string   `yaml:"name" json:"name"`
	Versions            []string `yaml:"versions" json:"versions"`
	DefaultVersion      string   `yaml:"default_version,omitempty" json:"default_version,omitempty"`
	DefaultMinCores     int      `yaml:"default_min_cores,omitempty" json:"default_min_cores,omitempty"`
	MaxCores            int      `yaml:"max_cores,omitempty" json:"max_cores,omitempty"`
	MPI                 bool     `yaml:"mpi,omitempty" json:"mpi,omitempty"`
	OpenMP              bool     `yaml:"openmp,omitempty" json:"openmp,omitempty"`
	MaxGPU              int      `yaml:"max_gpu,omitempty" json:"max_gpu,omitempty"`
	DefaultGPU          int      `yaml:"default_gpu,omitempty" json:"default_gpu,omitempty"`
	DefaultCoreWithGPU  int      `yaml:"default_core_with_gpu,omitempty" json:"default_core_with_gpu,omitempty"`
}

// Validate reports whether the descriptor is publishable.
func (a *App) Validate() error {
	if a.Name == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "app descriptor missing name")
	}
	if a.DefaultVersion != "" && len(a.Versions) > 0 {
		for _, v := range a.Versions {
			if v == a.DefaultVersion {
				return nil
			}
		}
		return errors.NewWithContext(errors.ErrCodeInvalidRequest,
			"default version not listed", map[string]any{
				"app": a.Name, "default_version": a.DefaultVersion})
	}
	return nil
}

// Registry is the application document published under the app key.
type Registry map[string]App

// LoadDir reads every yaml descriptor in dir into a Registry. Broken
// descriptors are logged and skipped; one bad file must not take the
// whole registry down. A missing directory yields an empty registry.
func LoadDir(dir string) (Registry, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		slog.Warn("app descriptor directory missing", "dir", dir)
		return Registry{}, nil
	}
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeInternal,
			"app descriptor directory unreadable", err, map[string]any{"dir": dir})
	}

	reg := make(Registry, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isDescriptor(name) {
			continue
		}
		path := filepath.Join(dir, name)
		app, err := loadFile(path)
		if err != nil {
			slog.Error("skipping broken app descriptor", "path", path, "error", err)
			continue
		}
		if prev, dup := reg[app.Name]; dup {
			slog.Warn("duplicate app descriptor, keeping first",
				"app", app.Name, "kept_versions", prev.Versions, "path", path)
			continue
		}
		reg[app.Name] = app
	}
	return reg, nil
}

func isDescriptor(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func loadFile(path string) (App, error) {
	var app App
	data, err := os.ReadFile(path)
	if err != nil {
		return app, err
	}
	if err := yaml.Unmarshal(data, &app); err != nil {
		return app, err
	}
	if app.Name == "" {
		base := filepath.Base(path)
		app.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if app.DefaultVersion == "" && len(app.Versions) > 0 {
		app.DefaultVersion = version.Latest(app.Versions)
	}
	if err := app.Validate(); err != nil {
		return app, err
	}
	return app, nil
}

// Publish writes the registry to every configured destination under
// the shared app key.
func Publish(ctx context.Context, p *store.Publisher, reg Registry) error {
	return p.Publish(ctx, store.AppKey, reg)
}
