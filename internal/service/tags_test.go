package service_test

import (
	"errors"
	"testing"

	"hasker/backend/internal/service"
	"hasker/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	cases := []struct {
		raw     string
		want    []string
		wantErr bool
	}{
		{"", nil, false},
		{"   ", nil, false},
		{"a,b,c", []string{"a", "b", "c"}, false},
		{" go , sql ,go", []string{"go", "sql"}, false},
		{"tag 1", []string{"tag 1"}, false},
		{"a,b,c,d", nil, true},
		{"a,,b", nil, true},
		{"a,", nil, true},
		{"abcdefghijklmnopqrstu", nil, true},
		{"abcdefghijklmnopqrst", []string{"abcdefghijklmnopqrst"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := service.ParseTags(tc.raw)
			if tc.wantErr {
				var verr *service.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, "tags", verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTagMaintenance(t *testing.T) {
	db := testutil.NewDB(t)
	tags := service.NewTagService(db)
	questions := service.NewQuestionService(db, nil, testutil.Logger())
	alice := testutil.CreateUser(t, db, "alice")

	_, err := questions.Create(alice.ID, "One", "body", "go,sql")
	require.NoError(t, err)
	_, err = questions.Create(alice.ID, "Two", "body", "go")
	require.NoError(t, err)
	created, err := tags.Create("rust")
	require.NoError(t, err)

	list, err := tags.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	counts := map[string]int64{}
	for _, tc := range list {
		counts[tc.Name] = tc.Questions
	}
	assert.Equal(t, map[string]int64{"go": 2, "sql": 1, "rust": 0}, counts)

	_, err = tags.Create("go")
	assert.ErrorIs(t, err, service.ErrConflict)
	_, err = tags.Rename(created.ID, "sql")
	assert.ErrorIs(t, err, service.ErrConflict)

	renamed, err := tags.Rename(created.ID, "rustlang")
	require.NoError(t, err)
	assert.Equal(t, "rustlang", renamed.Name)

	var goID uint
	for _, tc := range list {
		if tc.Name == "go" {
			goID = tc.ID
		}
	}
	require.NoError(t, tags.Delete(goID))
	assert.ErrorIs(t, tags.Delete(goID), service.ErrNotFound)

	page, err := questions.ByTag("go", 1, service.QuestionsPerPage)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	// The name can be reused after deletion.
	_, err = tags.Create("go")
	require.NoError(t, err)
}
