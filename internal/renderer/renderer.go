package renderer

import (
	"html/template"
	"io"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/damacus/wedding-album/internal/models"
	"github.com/damacus/wedding-album/internal/utils"
)

// TemplateRenderer implements echo.Renderer
type TemplateRenderer struct {
	Templates map[string]*template.Template
}

// New creates a new TemplateRenderer with templates parsed from viewsDir
func New(viewsDir string) *TemplateRenderer {
	r := &TemplateRenderer{
		Templates: make(map[string]*template.Template),
	}
	r.parseTemplates(viewsDir)
	return r
}

// Funcs are available to every template
var Funcs = template.FuncMap{
	"isVideo": func(kind models.MediaKind) bool { return kind == models.KindVideo },
	"fileSize": utils.FormatFileSize,
}

func (t *TemplateRenderer) parseTemplates(dir string) {
	file := func(parts ...string) string {
		return filepath.Join(append([]string{dir}, parts...)...)
	}

	// The page embeds the grid so the first paint needs no extra request
	t.Templates["gallery"] = template.Must(template.New("gallery").Funcs(Funcs).ParseFiles(
		file("layouts", "base.html"),
		file("partials", "media_grid.html"),
		file("pages", "gallery.html"),
	))
	t.Templates["media_grid"] = template.Must(template.New("media_grid").Funcs(Funcs).ParseFiles(
		file("partials", "media_grid.html"),
	))
}

// selfExecutingTemplates lists templates that execute their own named block instead of "base"
var selfExecutingTemplates = map[string]bool{
	"media_grid": true,
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.Templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Template not found: "+name)
	}

	// Templates that define their own named block execute that block directly
	if selfExecutingTemplates[name] {
		return tmpl.ExecuteTemplate(w, name, data)
	}
	// All other templates (pages with layout) execute the "base" block
	return tmpl.ExecuteTemplate(w, "base", data)
}
