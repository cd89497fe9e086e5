// Package testutil provides helpers shared by package tests.
package testutil

import (
	"fmt"
	"io"
	"testing"

	"hasker/backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plain-text password of users created by CreateUser.
const Password = "correct-horse-42"

// NewDB returns an isolated in-memory database with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Each connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// Logger returns a logger that discards its output.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// CreateUser inserts a user whose password is Password.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateQuestion inserts a question without going through the service.
func CreateQuestion(t *testing.T, db *gorm.DB, author *models.User, title string) *models.Question {
	t.Helper()

	q := &models.Question{AuthorID: author.ID, Title: title, Body: "Body of " + title}
	require.NoError(t, db.Create(q).Error)
	return q
}

// CreateAnswer inserts an answer without going through the service.
func CreateAnswer(t *testing.T, db *gorm.DB, q *models.Question, author *models.User, body string) *models.Answer {
	t.Helper()

	a := &models.Answer{QuestionID: q.ID, AuthorID: author.ID, Body: body}
	require.NoError(t, db.Create(a).Error)
	return a
}
