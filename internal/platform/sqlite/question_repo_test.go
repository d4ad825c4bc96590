package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examstack/grading-api/internal/domain"
)

func newTestBank(t *testing.T) *QuestionRepo {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE questions (
			id INTEGER PRIMARY KEY,
			content TEXT NOT NULL,
			answer TEXT NOT NULL,
			score INTEGER NOT NULL,
			image TEXT,
			category TEXT
		)
	`)
	require.NoError(t, err)

	return NewQuestionRepo(db, nil)
}

func seedQuestion(t *testing.T, repo *QuestionRepo, id int64, content, answer string, score int, image, category string) {
	t.Helper()

	_, err := repo.db.Exec(
		`INSERT INTO questions (id, content, answer, score, image, category) VALUES (?, ?, ?, ?, ?, ?)`,
		id, content, answer, score, image, category,
	)
	require.NoError(t, err)
}

func TestQuestionRepo_LoadQuestions(t *testing.T) {
	repo := newTestBank(t)

	seedQuestion(t, repo, 2, "法国的首都是？", "巴黎;Paris", 15, "", "地理")
	seedQuestion(t, repo, 1, "第一行[NEWLINE]第二行", "答案", 5, "maps/q1.png", "")

	questions, err := repo.LoadQuestions(context.Background())
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, int64(1), questions[0].ID, "questions come back in identifier order")
	assert.Equal(t, "第一行\n第二行", questions[0].Content, "legacy newline placeholder is decoded")
	assert.Equal(t, domain.DefaultCategory, questions[0].Category, "blank category falls back to the default")
	assert.Equal(t, "maps/q1.png", questions[0].Image)

	assert.Equal(t, int64(2), questions[1].ID)
	assert.Equal(t, "巴黎;Paris", questions[1].Answer)
	assert.Equal(t, 15, questions[1].Score)
	assert.Equal(t, "地理", questions[1].Category)
}

func TestQuestionRepo_LoadQuestions_EmptyBank(t *testing.T) {
	repo := newTestBank(t)

	questions, err := repo.LoadQuestions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestQuestionRepo_Categories(t *testing.T) {
	repo := newTestBank(t)

	seedQuestion(t, repo, 1, "q1", "a1", 5, "", "历史")
	seedQuestion(t, repo, 2, "q2", "a2", 5, "", "地理")
	seedQuestion(t, repo, 3, "q3", "a3", 5, "", "地理")
	seedQuestion(t, repo, 4, "q4", "a4", 5, "", "")

	categories, err := repo.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"历史", "地理", domain.DefaultCategory}, categories)
}
