package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"hasker/backend/internal/config"
	"hasker/backend/internal/handler"
	"hasker/backend/internal/models"
	"hasker/backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	t       *testing.T
	engine  *gin.Engine
	db      *gorm.DB
	cookies []*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	cfg := &config.Config{
		AppEnv:         config.EnvDev,
		JWTSecret:      "test-jwt-secret",
		JWTTTL:         time.Hour,
		SessionSecret:  "test-session-secret",
		AuthRateLimit:  100,
		AuthRateBurst:  100,
		CORSOrigins:    []string{"*"},
		MediaRoot:      t.TempDir(),
		MediaURL:       "/media",
		MaxAvatarBytes: 1 << 20,
	}
	engine, err := New(Deps{Config: cfg, DB: db, Log: testutil.Logger()})
	require.NoError(t, err)
	return &testServer{t: t, engine: engine, db: db}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if set := w.Result().Cookies(); len(set) > 0 {
		s.cookies = set
	}
	return w
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *testServer) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *testServer) api(method, path, token string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) token(username string) string {
	s.t.Helper()
	w := s.api(http.MethodPost, "/api/auth/register", "", handler.RegisterInput{
		Username:             username,
		Email:                username + "@example.org",
		Password:             testutil.Password,
		PasswordConfirmation: testutil.Password,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	var resp handler.TokenResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(s.t, resp.Token)
	return resp.Token
}

func (s *testServer) signup(username string) {
	s.t.Helper()
	w := s.postForm("/signup", url.Values{
		"username":              {username},
		"email":                 {username + "@example.org"},
		"password":              {testutil.Password},
		"password_confirmation": {testutil.Password},
	})
	require.Equal(s.t, http.StatusFound, w.Code, w.Body.String())
	require.Equal(s.t, "/", w.Header().Get("Location"))
}

func TestAPIRequiresCredentials(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/questions", "/api/users/me", "/api/tags", "/api/questions/1"} {
		w := s.api(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := s.api(http.MethodGet, "/api/questions", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIPagination(t *testing.T) {
	s := newTestServer(t)
	token := s.token("alice")

	author := testutil.CreateUser(t, s.db, "bob")
	for i := 0; i < 50; i++ {
		testutil.CreateQuestion(t, s.db, author, fmt.Sprintf("Question %d", i))
	}

	for page, want := range map[int]int{1: 20, 2: 20, 3: 10} {
		w := s.api(http.MethodGet, fmt.Sprintf("/api/questions?page=%d", page), token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp handler.PaginatedQuestionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Data, want, "page %d", page)
		assert.Equal(t, int64(50), resp.Meta.TotalItems)
		assert.Equal(t, 3, resp.Meta.TotalPages)
		assert.Equal(t, page, resp.Meta.CurrentPage)
	}

	w := s.api(http.MethodGet, "/api/questions?page=4", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPagePagination(t *testing.T) {
	s := newTestServer(t)
	author := testutil.CreateUser(t, s.db, "bob")
	for i := 0; i < 50; i++ {
		testutil.CreateQuestion(t, s.db, author, fmt.Sprintf("Question %d", i))
	}

	w := s.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Page 1 of 3")

	w = s.get("/?page=3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Page 3 of 3")

	assert.Equal(t, http.StatusNotFound, s.get("/?page=4").Code)
	assert.Equal(t, http.StatusNotFound, s.get("/trending?page=4").Code)
}

func TestQuestionTagsVisibleInPagesAndAPI(t *testing.T) {
	s := newTestServer(t)
	token := s.token("alice")

	w := s.api(http.MethodPost, "/api/questions", token, handler.CreateQuestionInput{
		Title: "How do channels work?",
		Body:  "I want to **fan out** work.",
		Tags:  "go, concurrency",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created handler.QuestionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.ElementsMatch(t, []string{"go", "concurrency"}, created.Tags)

	w = s.api(http.MethodGet, fmt.Sprintf("/api/questions/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched handler.QuestionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.ElementsMatch(t, []string{"go", "concurrency"}, fetched.Tags)

	w = s.get(fmt.Sprintf("/questions/%d", created.ID))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `href="/tag/go"`)
	assert.Contains(t, body, `href="/tag/concurrency"`)
	assert.Contains(t, body, "<strong>fan out</strong>")

	w = s.get("/tag/go")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "How do channels work?")

	w = s.get("/search?q=tag:go")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/tag/go", w.Header().Get("Location"))
}

func TestTagWithSlash(t *testing.T) {
	s := newTestServer(t)
	token := s.token("alice")

	w := s.api(http.MethodPost, "/api/questions", token, handler.CreateQuestionInput{
		Title: "Which runner for pipelines?",
		Body:  "Comparing hosted runners.",
		Tags:  "ci/cd",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created handler.QuestionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	w = s.get(fmt.Sprintf("/questions/%d", created.ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/tag/ci%2Fcd"`)

	w = s.get("/search?q=tag%3Aci%2Fcd")
	require.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	assert.Equal(t, "/tag/ci%2Fcd", location)

	w = s.get(location)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Which runner for pipelines?")
	assert.Contains(t, w.Body.String(), "Tagged ci/cd")
}

func TestAskRequiresLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.get("/ask")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fask", w.Header().Get("Location"))
}

func TestPageFlow(t *testing.T) {
	s := newTestServer(t)
	s.signup("alice")

	w := s.postForm("/ask", url.Values{"title": {""}, "body": {"text"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.postForm("/ask", url.Values{
		"title": {"What is a goroutine?"},
		"body":  {"Explain please."},
		"tags":  {"go"},
	})
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	location := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/questions/"))

	w = s.get(location)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "What is a goroutine?")
	assert.Contains(t, w.Body.String(), "Ask question")

	w = s.postForm(location, url.Values{"body": {"A lightweight thread."}})
	require.Equal(t, http.StatusFound, w.Code)

	w = s.get(location)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "A lightweight thread.")
	assert.Contains(t, w.Body.String(), "Your answer has been added")

	w = s.postForm(location+"/upvote", nil)
	require.Equal(t, http.StatusFound, w.Code)

	var q models.Question
	require.NoError(t, s.db.First(&q).Error)
	assert.Equal(t, 1, q.Rating)

	w = s.postForm("/logout", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, http.StatusFound, s.get("/settings").Code)
}

func TestNonAuthorCannotAccept(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner")
	q := testutil.CreateQuestion(t, s.db, owner, "Owned question")
	a := testutil.CreateAnswer(t, s.db, q, owner, "An answer")

	s.signup("mallory")
	w := s.postForm(fmt.Sprintf("/questions/%d/answers/%d/accept", q.ID, a.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var reloaded models.Answer
	require.NoError(t, s.db.First(&reloaded, a.ID).Error)
	assert.False(t, reloaded.IsAccepted)
}

func TestLoginPage(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "alice")

	w := s.postForm("/login", url.Values{"login": {"alice"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter a correct username and password.")

	w = s.postForm("/login", url.Values{
		"login":    {"alice"},
		"password": {testutil.Password},
		"next":     {"/settings"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/settings", w.Header().Get("Location"))

	w = s.get("/settings")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice@example.com")
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.get("/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"up"`)

	s.get("/")
	w = s.get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hasker_http_requests_total")
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "does not exist")
}

func multipartSignup(t *testing.T, username string, avatar []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"username":              username,
		"email":                 username + "@example.org",
		"password":              testutil.Password,
		"password_confirmation": testutil.Password,
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = fw.Write(avatar)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/signup", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSignupWithAvatar(t *testing.T) {
	s := newTestServer(t)
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

	w := s.do(multipartSignup(t, "pat", []byte("just some text")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Upload a valid image")

	w = s.do(multipartSignup(t, "pat", png))
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	var user models.User
	require.NoError(t, s.db.Where("username = ?", "pat").First(&user).Error)
	require.True(t, strings.HasPrefix(user.Avatar, "avatars/"))
	assert.True(t, strings.HasSuffix(user.Avatar, ".png"))

	w = s.get("/settings")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `src="/media/`+user.Avatar+`"`)

	w = s.get("/media/" + user.Avatar)
	assert.Equal(t, http.StatusOK, w.Code)
}
