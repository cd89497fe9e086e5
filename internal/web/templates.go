package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/url"
	"path"
	"time"

	"hasker/backend/internal/media"

	"github.com/gin-contrib/multitemplate"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the embedded CSS and images rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var views = []string{
	"list.html",
	"question.html",
	"ask.html",
	"login.html",
	"signup.html",
	"settings.html",
	"profile.html",
	"error.html",
}

// LoadTemplates parses every page as the base layout plus its view.
func LoadTemplates(store *media.Store) (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()
	funcs := funcMap(store)

	includes, err := fs.Glob(templateFS, "templates/includes/*.html")
	if err != nil {
		return nil, err
	}

	for _, view := range views {
		files := append([]string{"templates/layouts/base.html"}, includes...)
		files = append(files, path.Join("templates/views", view))

		tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", view, err)
		}
		r.Add(view, tmpl)
	}
	return r, nil
}

func funcMap(store *media.Store) template.FuncMap {
	return template.FuncMap{
		"markdown": Markdown,
		"avatar":   store.URL,
		"add": func(a, b int) int {
			return a + b
		},
		"pathEscape": url.PathEscape,
		"date": func(t time.Time) string {
			return t.Format("Jan 2, 2006 15:04")
		},
		"timeAgo": func(t time.Time) string {
			d := time.Since(t)
			switch {
			case d < time.Minute:
				return "just now"
			case d < time.Hour:
				return plural(int(d.Minutes()), "minute") + " ago"
			case d < 24*time.Hour:
				return plural(int(d.Hours()), "hour") + " ago"
			case d < 30*24*time.Hour:
				return plural(int(d.Hours()/24), "day") + " ago"
			}
			return t.Format("Jan 2, 2006")
		},
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
