// Package web serves the HTML pages of the site.
package web

import (
	"errors"
	"net/http"

	"hasker/backend/internal/auth"
	"hasker/backend/internal/service"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Render injects the values every page needs: the current user, the
// trending sidebar, pending flash messages and the search box content.
func (p *Pages) Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	obj["CurrentUser"] = auth.CurrentUser(c)
	obj["CurrentPath"] = c.Request.URL.Path
	if _, ok := obj["Query"]; !ok {
		obj["Query"] = ""
	}
	if _, ok := obj["Title"]; !ok {
		obj["Title"] = ""
	}
	for _, key := range []string{"Errors", "Form"} {
		if _, ok := obj[key]; !ok {
			obj[key] = map[string]string{}
		}
	}

	trending, err := p.questions.TopTrending(service.TrendingSize)
	if err != nil {
		p.log.WithError(err).Error("Failed to load trending questions")
	}
	obj["Trending"] = trending

	session := sessions.Default(c)
	var flashes []string
	for _, f := range session.Flashes() {
		if s, ok := f.(string); ok {
			flashes = append(flashes, s)
		}
	}
	if len(flashes) > 0 {
		if err := session.Save(); err != nil {
			p.log.WithError(err).Warn("Failed to clear flash messages")
		}
	}
	obj["Flashes"] = flashes

	c.HTML(code, name, obj)
}

// RenderError shows the error page.
func (p *Pages) RenderError(c *gin.Context, code int, message string) {
	p.Render(c, code, "error.html", gin.H{
		"Title":   http.StatusText(code),
		"Status":  code,
		"Message": message,
	})
}

// fail renders the error page matching err.
func (p *Pages) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		p.RenderError(c, http.StatusNotFound, "The page you are looking for does not exist.")
	case errors.Is(err, service.ErrForbidden):
		p.RenderError(c, http.StatusForbidden, "You are not allowed to do that.")
	default:
		_ = c.Error(err)
		p.RenderError(c, http.StatusInternalServerError, "Something went wrong. Please try again later.")
	}
}

func flash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	_ = session.Save()
}

// formErrors turns a validation error into a field to message map. Other
// errors are returned unchanged.
func formErrors(err error) (map[string]string, error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return map[string]string{verr.Field: verr.Message}, nil
	}
	return nil, err
}
