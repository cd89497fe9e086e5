package web

import (
	"errors"
	"net/http"

	"hasker/backend/internal/auth"
	"hasker/backend/internal/media"
	"hasker/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginForm shows the login page.
func (p *Pages) LoginForm(c *gin.Context) {
	if auth.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	p.Render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in", "Next": auth.SafeNext(c.Query("next"))})
}

// Login checks the credentials and starts a session.
func (p *Pages) Login(c *gin.Context) {
	next := auth.SafeNext(c.PostForm("next"))
	login := c.PostForm("login")

	user, err := p.users.Authenticate(login, c.PostForm("password"))
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			p.fail(c, err)
			return
		}
		p.Render(c, http.StatusBadRequest, "login.html", gin.H{
			"Title":  "Log in",
			"Next":   next,
			"Form":   map[string]string{"login": login},
			"Errors": map[string]string{"login": "Please enter a correct username and password."},
		})
		return
	}
	if err := auth.Login(c, user); err != nil {
		p.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, next)
}

// Logout ends the session.
func (p *Pages) Logout(c *gin.Context) {
	if err := auth.Logout(c); err != nil {
		p.log.WithError(err).Warn("Failed to clear session")
	}
	c.Redirect(http.StatusFound, "/")
}

// SignupForm shows the registration page.
func (p *Pages) SignupForm(c *gin.Context) {
	p.Render(c, http.StatusOK, "signup.html", gin.H{"Title": "Sign up"})
}

// Signup registers an account, stores the optional avatar and logs the new
// user in.
func (p *Pages) Signup(c *gin.Context) {
	form := map[string]string{
		"username": c.PostForm("username"),
		"email":    c.PostForm("email"),
	}
	renderForm := func(errs map[string]string) {
		p.Render(c, http.StatusBadRequest, "signup.html", gin.H{"Title": "Sign up", "Form": form, "Errors": errs})
	}

	avatar, err := p.saveAvatar(c)
	if err != nil {
		if msg, ok := avatarError(err); ok {
			renderForm(map[string]string{"avatar": msg})
			return
		}
		p.fail(c, err)
		return
	}

	user, err := p.users.Register(service.RegisterInput{
		Username:     form["username"],
		Email:        form["email"],
		Password:     c.PostForm("password"),
		Confirmation: c.PostForm("password_confirmation"),
	})
	if err != nil {
		p.discardAvatar(avatar)
		errs, err := formErrors(err)
		if err != nil {
			p.fail(c, err)
			return
		}
		renderForm(errs)
		return
	}

	if avatar != "" {
		if user, err = p.users.UpdateSettings(user.ID, user.Email, avatar); err != nil {
			p.fail(c, err)
			return
		}
	}
	if err := auth.Login(c, user); err != nil {
		p.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// SettingsForm shows the current user's settings.
func (p *Pages) SettingsForm(c *gin.Context) {
	user := auth.CurrentUser(c)
	p.Render(c, http.StatusOK, "settings.html", gin.H{
		"Title": "Settings",
		"Form":  map[string]string{"email": user.Email},
	})
}

// Settings updates the e-mail and avatar.
func (p *Pages) Settings(c *gin.Context) {
	user := auth.CurrentUser(c)
	form := map[string]string{"email": c.PostForm("email")}
	renderForm := func(errs map[string]string) {
		p.Render(c, http.StatusBadRequest, "settings.html", gin.H{"Title": "Settings", "Form": form, "Errors": errs})
	}

	avatar, err := p.saveAvatar(c)
	if err != nil {
		if msg, ok := avatarError(err); ok {
			renderForm(map[string]string{"avatar": msg})
			return
		}
		p.fail(c, err)
		return
	}

	previous := user.Avatar
	updated, err := p.users.UpdateSettings(user.ID, form["email"], avatar)
	if err != nil {
		p.discardAvatar(avatar)
		errs, err := formErrors(err)
		if err != nil {
			p.fail(c, err)
			return
		}
		renderForm(errs)
		return
	}
	if avatar != "" {
		p.discardAvatar(previous)
	}
	c.Set(auth.UserKey, updated)

	flash(c, "Your settings have been saved")
	c.Redirect(http.StatusFound, "/settings")
}

// Profile shows a user's public profile.
func (p *Pages) Profile(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		p.fail(c, service.ErrNotFound)
		return
	}
	profile, err := p.users.Profile(id)
	if err != nil {
		p.fail(c, err)
		return
	}
	p.Render(c, http.StatusOK, "profile.html", gin.H{"Title": profile.User.Username, "Profile": profile})
}

// saveAvatar stores the "avatar" upload if one was sent.
func (p *Pages) saveAvatar(c *gin.Context) (string, error) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}
	if fh.Size == 0 {
		return "", nil
	}
	return p.media.SaveAvatar(fh)
}

func (p *Pages) discardAvatar(rel string) {
	if err := p.media.Remove(rel); err != nil {
		p.log.WithError(err).Warn("Failed to remove avatar")
	}
}

func avatarError(err error) (string, bool) {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return "The image is too large.", true
	case errors.Is(err, media.ErrUnsupported):
		return "Upload a valid image. The file you uploaded was either not an image or a corrupted image.", true
	}
	return "", false
}
