package views

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

//go:embed *.html partials/*.html
var templatesFS embed.FS

var funcs = template.FuncMap{
	"joinFields": func(fields []string) string {
		return strings.Join(fields, ", ")
	},
	"shortDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
	"millis": func(d time.Duration) int64 {
		return d.Milliseconds()
	},
}

type Engine struct {
	templates map[string]*template.Template
}

func New() (*Engine, error) {
	e := &Engine{
		templates: make(map[string]*template.Template),
	}

	// Parse layout
	layoutTmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "layout.html")
	if err != nil {
		return nil, err
	}

	// Parse each page template on top of a layout clone
	entries, err := fs.ReadDir(templatesFS, ".")
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == "layout.html" {
			continue
		}

		name := entry.Name()
		baseName := name[:len(name)-len(filepath.Ext(name))]

		tmpl, err := layoutTmpl.Clone()
		if err != nil {
			return nil, err
		}

		_, err = tmpl.ParseFS(templatesFS, name, "partials/*.html")
		if err != nil {
			return nil, err
		}

		e.templates[baseName] = tmpl
	}

	return e, nil
}

func (e *Engine) Render(w io.Writer, name string, data any) error {
	tmpl, ok := e.templates[name]
	if !ok {
		// Standalone page without layout
		tmpl, err := template.New(name + ".html").Funcs(funcs).ParseFS(templatesFS, name+".html")
		if err != nil {
			return err
		}
		return tmpl.Execute(w, data)
	}
	return tmpl.Execute(w, data)
}

// RenderPartial renders a fragment without the layout, for in-page updates.
func (e *Engine) RenderPartial(w io.Writer, name string, data any) error {
	file := "partials/" + name + ".html"
	tmpl, err := template.New(filepath.Base(file)).Funcs(funcs).ParseFS(templatesFS, file)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, name, data)
}
