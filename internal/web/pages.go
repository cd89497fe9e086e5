package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"hasker/backend/internal/auth"
	"hasker/backend/internal/media"
	"hasker/backend/internal/models"
	"hasker/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Pages holds the dependencies of the HTML handlers.
type Pages struct {
	questions *service.QuestionService
	users     *service.UserService
	media     *media.Store
	log       *logrus.Logger
}

func NewPages(questions *service.QuestionService, users *service.UserService, store *media.Store, log *logrus.Logger) *Pages {
	return &Pages{questions: questions, users: users, media: store, log: log}
}

type voteBox struct {
	Action  string
	Rating  int
	Mine    int
	Enabled bool
}

type answerView struct {
	*models.Answer
	Votes voteBox
}

func pageNumber(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// region --- Listings ---

// Index lists the newest questions.
func (p *Pages) Index(c *gin.Context) {
	page, err := p.questions.Recent(pageNumber(c), service.QuestionsPerPage)
	p.list(c, page, err, gin.H{"SortType": "recent", "PageURL": "/?"})
}

// Trending lists the best rated questions.
func (p *Pages) Trending(c *gin.Context) {
	page, err := p.questions.Trending(pageNumber(c), service.QuestionsPerPage)
	p.list(c, page, err, gin.H{"Title": "Hot questions", "SortType": "trending", "PageURL": "/trending?"})
}

// Search runs a text search. Tag queries redirect to the tag page.
func (p *Pages) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	if tag, ok := service.TagFromQuery(q); ok {
		c.Redirect(http.StatusFound, "/tag/"+url.PathEscape(tag))
		return
	}

	page, err := p.questions.Search(q, pageNumber(c), service.QuestionsPerPage)
	p.list(c, page, err, gin.H{
		"Title":   fmt.Sprintf("Search results for %q", q),
		"Query":   q,
		"PageURL": "/search?q=" + url.QueryEscape(q) + "&",
	})
}

// Tag lists the questions carrying a tag.
func (p *Pages) Tag(c *gin.Context) {
	name := c.Param("name")
	page, err := p.questions.ByTag(name, pageNumber(c), service.QuestionsPerPage)
	p.list(c, page, err, gin.H{
		"Title":   "Tagged " + name,
		"Query":   service.TagQueryPrefix + name,
		"PageURL": "/tag/" + url.PathEscape(name) + "?",
	})
}

func (p *Pages) list(c *gin.Context, page *service.Page[models.Question], err error, obj gin.H) {
	if err != nil {
		p.fail(c, err)
		return
	}
	obj["Page"] = page
	p.Render(c, http.StatusOK, "list.html", obj)
}

// endregion

// region --- Questions ---

// AskForm shows the new question form.
func (p *Pages) AskForm(c *gin.Context) {
	p.Render(c, http.StatusOK, "ask.html", gin.H{"Title": "Ask a question"})
}

// Ask creates a question and redirects to it.
func (p *Pages) Ask(c *gin.Context) {
	form := map[string]string{
		"title": c.PostForm("title"),
		"body":  c.PostForm("body"),
		"tags":  c.PostForm("tags"),
	}
	user := auth.CurrentUser(c)

	q, err := p.questions.Create(user.ID, form["title"], form["body"], form["tags"])
	if err != nil {
		errs, err := formErrors(err)
		if err != nil {
			p.fail(c, err)
			return
		}
		p.Render(c, http.StatusBadRequest, "ask.html", gin.H{"Title": "Ask a question", "Form": form, "Errors": errs})
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/questions/%d", q.ID))
}

// Question shows a question with a page of its answers.
func (p *Pages) Question(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		p.fail(c, service.ErrNotFound)
		return
	}
	p.renderQuestion(c, id, http.StatusOK, nil, nil)
}

func (p *Pages) renderQuestion(c *gin.Context, id uint, code int, form, errs map[string]string) {
	q, err := p.questions.Get(id)
	if err != nil {
		p.fail(c, err)
		return
	}
	page, err := p.questions.AnswersClamped(id, pageNumber(c))
	if err != nil {
		p.fail(c, err)
		return
	}

	user := auth.CurrentUser(c)
	var userID uint
	if user != nil {
		userID = user.ID
	}

	questionVotes, err := p.questions.CurrentVotes(userID, models.TargetQuestion, []uint{q.ID})
	if err != nil {
		p.fail(c, err)
		return
	}
	answerIDs := make([]uint, 0, len(page.Items))
	for _, a := range page.Items {
		answerIDs = append(answerIDs, a.ID)
	}
	answerVotes, err := p.questions.CurrentVotes(userID, models.TargetAnswer, answerIDs)
	if err != nil {
		p.fail(c, err)
		return
	}

	answers := make([]answerView, 0, len(page.Items))
	for i := range page.Items {
		a := &page.Items[i]
		answers = append(answers, answerView{
			Answer: a,
			Votes: voteBox{
				Action:  fmt.Sprintf("/questions/%d/answers/%d", q.ID, a.ID),
				Rating:  a.Rating,
				Mine:    answerVotes[a.ID],
				Enabled: user != nil,
			},
		})
	}

	p.Render(c, code, "question.html", gin.H{
		"Title":    q.Title,
		"Question": q,
		"QuestionVotes": voteBox{
			Action:  fmt.Sprintf("/questions/%d", q.ID),
			Rating:  q.Rating,
			Mine:    questionVotes[q.ID],
			Enabled: user != nil,
		},
		"Answers":  answers,
		"Page":     page,
		"PageURL":  fmt.Sprintf("/questions/%d?", q.ID),
		"IsAuthor": user != nil && user.ID == q.AuthorID,
		"Form":     form,
		"Errors":   errs,
	})
}

// Answer adds an answer to the question.
func (p *Pages) Answer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		p.fail(c, service.ErrNotFound)
		return
	}
	body := c.PostForm("body")
	user := auth.CurrentUser(c)

	if _, err := p.questions.AddAnswer(id, user.ID, body); err != nil {
		errs, err := formErrors(err)
		if err != nil {
			p.fail(c, err)
			return
		}
		p.renderQuestion(c, id, http.StatusBadRequest, map[string]string{"body": body}, errs)
		return
	}
	flash(c, "Your answer has been added")
	c.Redirect(http.StatusFound, fmt.Sprintf("/questions/%d", id))
}

// endregion

// region --- Votes ---

func (p *Pages) VoteQuestionUp(c *gin.Context)   { p.voteQuestion(c, models.VoteUp) }
func (p *Pages) VoteQuestionDown(c *gin.Context) { p.voteQuestion(c, models.VoteDown) }
func (p *Pages) VoteAnswerUp(c *gin.Context)     { p.voteAnswer(c, models.VoteUp) }
func (p *Pages) VoteAnswerDown(c *gin.Context)   { p.voteAnswer(c, models.VoteDown) }

func (p *Pages) voteQuestion(c *gin.Context, value int) {
	id, ok := idParam(c, "id")
	if !ok {
		p.fail(c, service.ErrNotFound)
		return
	}
	user := auth.CurrentUser(c)
	if _, err := p.questions.Vote(models.TargetQuestion, id, user.ID, value); err != nil {
		p.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/questions/%d", id))
}

func (p *Pages) voteAnswer(c *gin.Context, value int) {
	qid, ok := idParam(c, "id")
	if !ok {
		p.fail(c, service.ErrNotFound)
		return
	}
	aid, ok := idParam(c, "aid")
	if !ok {
		p.fail(c, service.ErrNotFound)
		return
	}
	user := auth.CurrentUser(c)
	if _, err := p.questions.Vote(models.TargetAnswer, aid, user.ID, value); err != nil {
		p.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/questions/%d#answer-%d", qid, aid))
}

// Accept marks an answer as accepted. Only the question author may do it.
func (p *Pages) Accept(c *gin.Context) {
	qid, ok := idParam(c, "id")
	if !ok {
		p.fail(c, service.ErrNotFound)
		return
	}
	aid, ok := idParam(c, "aid")
	if !ok {
		p.fail(c, service.ErrNotFound)
		return
	}
	user := auth.CurrentUser(c)
	if _, err := p.questions.AcceptAnswer(qid, aid, user.ID); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			p.RenderError(c, http.StatusForbidden, "Only the author can choose the best answer.")
			return
		}
		p.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/questions/%d#answer-%d", qid, aid))
}

// endregion

// NotFound renders the 404 page for unmatched routes.
func (p *Pages) NotFound(c *gin.Context) {
	p.fail(c, service.ErrNotFound)
}
