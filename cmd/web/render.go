package main

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/gift-registry/internal/i18n"
	"finitefield.org/gift-registry/internal/observability"
)

// renderer executes the page layout and fragments. In dev mode templates are reparsed from
// dir on every render; otherwise the embedded set is parsed once.
type renderer struct {
	dev   bool
	dir   string
	fsys  fs.FS
	funcs template.FuncMap
	cache *template.Template
}

func newRenderer(fsys fs.FS, dir string, dev bool, bundle *i18n.Bundle) (*renderer, error) {
	r := &renderer{dev: dev, dir: dir, fsys: fsys, funcs: templateFuncs(bundle)}
	if dev {
		return r, nil
	}
	t, err := r.parse()
	if err != nil {
		return nil, err
	}
	r.cache = t
	return r, nil
}

func templateFuncs(bundle *i18n.Bundle) template.FuncMap {
	return template.FuncMap{
		"t":     bundle.T,
		"tf":    bundle.Tf,
		"upper": strings.ToUpper,
		"dict": func(values ...any) (map[string]any, error) {
			if len(values)%2 != 0 {
				return nil, errors.New("dict: odd number of arguments")
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", values[i])
				}
				m[key] = values[i+1]
			}
			return m, nil
		},
	}
}

func (r *renderer) parse() (*template.Template, error) {
	root := template.New("_root").Funcs(r.funcs)
	if !r.dev {
		return root.ParseFS(r.fsys, "*.tmpl", "partials/*.tmpl")
	}
	// ParseGlob has no ** so walk the tree.
	var files []string
	if err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found under %s", r.dir)
	}
	return root.ParseFiles(files...)
}

func (r *renderer) templates() (*template.Template, error) {
	if r.dev {
		return r.parse()
	}
	return r.cache, nil
}

// page renders the full layout.
func (r *renderer) page(w http.ResponseWriter, req *http.Request, data any) {
	r.execute(w, req, "base", data)
}

// fragment renders a single named partial for htmx swaps.
func (r *renderer) fragment(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.execute(w, req, name, data)
}

func (r *renderer) execute(w http.ResponseWriter, req *http.Request, name string, data any) {
	logger := observability.FromContext(req.Context())
	t, err := r.templates()
	if err != nil {
		logger.Error("template parse failed", zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("template execute failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
