package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"kasir/internal/models"
	"kasir/internal/money"

	"github.com/gin-gonic/gin/render"
)

// Pages, every template rendered by the dashboard. Each one is parsed
// together with base.html into its own set.
var Pages = []string{
	"login.html",
	"dashboard.html",
	"products.html",
	"product_form.html",
	"invoices.html",
	"invoice_create.html",
	"invoice_detail.html",
	"store.html",
	"not_found.html",
	"error.html",
}

// displayZone, timezone used for dates shown to the user (WIB).
var displayZone = time.FixedZone("WIB", 7*3600)

// TemplateFuncs, helpers available to every template.
var TemplateFuncs = template.FuncMap{
	"rupiah": money.Format,
	"plain":  money.Plain,
	"date": func(t time.Time) string {
		return t.In(displayZone).Format("02 Jan 2006 15:04")
	},
	"day": func(t time.Time) string {
		return t.In(displayZone).Format("02-01-2006")
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
	"fieldError": func(state any, field string) string {
		s, _ := state.(models.FormState)
		if msgs := s.Errors[field]; len(msgs) > 0 {
			return msgs[0]
		}
		return ""
	},
	"pageURL": func(base, query string, page int) string {
		v := url.Values{}
		if query != "" {
			v.Set("query", query)
		}
		v.Set("page", strconv.Itoa(page))
		return base + "?" + v.Encode()
	},
}

// HTMLRenderer, holds a separate template set per page.
type HTMLRenderer struct {
	Templates map[string]*template.Template
}

// LoadTemplates parses every page from fsys.
func LoadTemplates(fsys fs.FS) (*HTMLRenderer, error) {
	templates := make(map[string]*template.Template, len(Pages))
	for _, name := range Pages {
		tmpl, err := template.New(name).Funcs(TemplateFuncs).ParseFS(fsys, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return &HTMLRenderer{Templates: templates}, nil
}

// Instance implements render.HTMLRender.
func (r *HTMLRenderer) Instance(name string, data any) render.Render {
	tmpl, ok := r.Templates[name]
	if !ok {
		return missingTemplate{name: name}
	}
	return render.HTML{
		Template: tmpl,
		Data:     data,
	}
}

type missingTemplate struct {
	name string
}

func (m missingTemplate) Render(w http.ResponseWriter) error {
	return fmt.Errorf("template %s not loaded", m.name)
}

func (m missingTemplate) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}
