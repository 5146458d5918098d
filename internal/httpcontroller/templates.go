package httpcontroller

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/dashboard"
	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/logger"
)

//go:embed views/*.html
var ViewsFs embed.FS

// PageData is the data the dashboard template renders.
type PageData struct {
	Title      string
	Tabs       []dashboard.Tab
	Facets     dashboard.Facets
	Map        conf.MapSettings
	Records    int
	PreviewMax int
	APIPrefix  string
}

// TemplateRenderer is a custom HTML template renderer for Echo framework.
type TemplateRenderer struct {
	templates *template.Template
	log       logger.Logger
}

// Render executes the template into a buffer first so a failing template
// never leaves a half-written page.
func (t *TemplateRenderer) Render(w io.Writer, name string, data any, c echo.Context) error {
	var buf bytes.Buffer
	if err := t.templates.ExecuteTemplate(&buf, name, data); err != nil {
		t.log.Error("template execution failed",
			logger.String("template", name),
			logger.Error(err))
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func templateFunctions() template.FuncMap {
	return template.FuncMap{
		"title": cases.Title(language.English).String,
		"json": func(v any) (template.JS, error) {
			b, err := json.Marshal(v)
			return template.JS(b), err
		},
	}
}

func (s *Server) setupTemplateRenderer() error {
	tmpl, err := template.New("").Funcs(templateFunctions()).ParseFS(ViewsFs, "views/*.html")
	if err != nil {
		return errors.New(err).
			Component("http-controller").
			Category(errors.CategoryConfiguration).
			Context("operation", "parse_templates").
			Build()
	}
	s.Echo.Renderer = &TemplateRenderer{templates: tmpl, log: s.log}
	return nil
}

// DashboardPage renders the dashboard shell. Tab content is loaded from the API.
func (s *Server) DashboardPage(c echo.Context) error {
	sess := currentSession(c)
	coll := sess.Collection()
	q := s.query(c, sess)

	title := s.Settings.Dashboard.Title
	if title == "" {
		title = s.Settings.Main.Name
	}

	return c.Render(http.StatusOK, "index", PageData{
		Title:      title,
		Tabs:       s.tabs,
		Facets:     dashboard.BuildFacets(coll, dashboard.Filtered(coll, q)),
		Map:        s.Settings.Dashboard.Map,
		Records:    coll.Len(),
		PreviewMax: s.Settings.Dashboard.PreviewRows,
		APIPrefix:  apiPrefix,
	})
}
