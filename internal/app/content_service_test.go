package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
	"quiz-competition-service/internal/infra/memory"
)

var (
	admin       = domain.User{ID: "admin", Username: "admin", Role: domain.RoleAdmin}
	participant = domain.User{ID: "u1", Username: "alice", Role: domain.RoleParticipant}
)

type contentHarness struct {
	*harness
	service *app.ContentService
}

// newContentHarness wires the content service and the engine to one caching quiz repository.
func newContentHarness(t *testing.T) *contentHarness {
	t.Helper()
	h := newHarness(t)
	h.quizzes = memory.NewQuizRepository(h.content, time.Hour)
	h.engine = app.NewAttemptServiceWithClock(h.attempts, h.quizzes, zaptest.NewLogger(t), h.clock.Now)
	return &contentHarness{
		harness: h,
		service: app.NewContentService(h.content, h.attempts, h.quizzes, zaptest.NewLogger(t)),
	}
}

func twoOptions() []app.OptionInput {
	return []app.OptionInput{{Text: "yes", Correct: true}, {Text: "no"}}
}

func (h *contentHarness) authorQuiz(t *testing.T, questions int) (domain.Quiz, []domain.Question) {
	t.Helper()
	ctx := context.Background()
	var created []domain.Question
	var ids []string
	for i := 0; i < questions; i++ {
		q, err := h.service.CreateQuestion(ctx, admin.ID, app.QuestionInput{Text: "Is it?", Options: twoOptions()})
		if err != nil {
			t.Fatalf("create question: %v", err)
		}
		created = append(created, q)
		ids = append(ids, q.ID)
	}
	quiz, err := h.service.CreateQuiz(ctx, admin.ID, app.QuizInput{
		Title:          "Authored",
		PassPercentage: 50,
		IsActive:       true,
		QuestionIDs:    ids,
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz, created
}

func TestCreateQuestionValidation(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()

	cases := map[string]app.QuestionInput{
		"blank text":     {Text: " ", Options: twoOptions()},
		"one option":     {Text: "?", Options: []app.OptionInput{{Text: "yes", Correct: true}}},
		"no correct":     {Text: "?", Options: []app.OptionInput{{Text: "a"}, {Text: "b"}}},
		"bad difficulty": {Text: "?", Difficulty: 9, Options: twoOptions()},
		"blank option":   {Text: "?", Options: []app.OptionInput{{Text: "yes", Correct: true}, {Text: ""}}},
	}
	for name, in := range cases {
		if _, err := h.service.CreateQuestion(ctx, admin.ID, in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}

	in := app.QuestionInput{Text: "?", CategoryID: "missing", Options: twoOptions()}
	if _, err := h.service.CreateQuestion(ctx, admin.ID, in); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}

	q, err := h.service.CreateQuestion(ctx, admin.ID, app.QuestionInput{Text: "Is it?", Options: twoOptions()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if q.Difficulty != 1 || len(q.Options) != 2 || q.Options[1].Position != 1 || q.Options[0].QuestionID != q.ID {
		t.Fatalf("unexpected question: %+v", q)
	}
}

func TestCategoriesAreUnique(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()

	category, err := h.service.CreateCategory(ctx, "Science", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.service.CreateCategory(ctx, "Science", "again"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	name := "Physics"
	updated, err := h.service.UpdateCategory(ctx, category.ID, app.CategoryUpdate{Name: &name})
	if err != nil || updated.Name != "Physics" {
		t.Fatalf("update: %+v %v", updated, err)
	}
	list, err := h.service.ListCategories(ctx, 0, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %+v %v", list, err)
	}
}

func TestCreateQuizRequiresKnownQuestions(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()

	_, err := h.service.CreateQuiz(ctx, admin.ID, app.QuizInput{Title: "T", PassPercentage: 50, QuestionIDs: []string{"missing"}})
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	q, _ := h.service.CreateQuestion(ctx, admin.ID, app.QuestionInput{Text: "?", Options: twoOptions()})
	_, err = h.service.CreateQuiz(ctx, admin.ID, app.QuizInput{Title: "T", PassPercentage: 50, QuestionIDs: []string{q.ID, q.ID}})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate question, got %v", err)
	}
	_, err = h.service.CreateQuiz(ctx, admin.ID, app.QuizInput{Title: "T", PassPercentage: 150})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for threshold, got %v", err)
	}
}

func TestParticipantsNeverSeeCorrectOptions(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()
	quiz, _ := h.authorQuiz(t, 2)

	view, err := h.service.GetQuiz(ctx, quiz.ID, participant)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	for _, q := range view.Questions {
		for _, opt := range q.Options {
			if opt.Correct {
				t.Fatalf("participant view leaks correct option %+v", opt)
			}
		}
	}

	full, err := h.service.GetQuiz(ctx, quiz.ID, admin)
	if err != nil {
		t.Fatalf("admin get quiz: %v", err)
	}
	if !full.Questions[0].Options[0].Correct {
		t.Fatalf("admin view should include correctness")
	}

	// the cached definition used for scoring is untouched by redaction
	result := h.complete(t, quiz.ID, participant.ID, time.Minute, domain.AnswerSubmission{OptionID: full.Questions[0].Options[0].ID})
	if result.CorrectCount != 1 {
		t.Fatalf("expected correct answer to score, got %+v", result)
	}
}

func TestQuestionListFrozenOnceAttempted(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()
	quiz, questions := h.authorQuiz(t, 2)

	if _, err := h.engine.BeginAttempt(ctx, quiz.ID, participant.ID); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_, err := h.service.UpdateQuiz(ctx, quiz.ID, app.QuizUpdate{QuestionIDs: []string{questions[0].ID}})
	if !errors.Is(err, domain.ErrContentLocked) {
		t.Fatalf("expected ErrContentLocked, got %v", err)
	}
	if err := h.service.DeleteQuestion(ctx, questions[1].ID); !errors.Is(err, domain.ErrContentLocked) {
		t.Fatalf("expected delete of linked question to be locked, got %v", err)
	}

	title := "Renamed"
	if _, err := h.service.UpdateQuiz(ctx, quiz.ID, app.QuizUpdate{Title: &title}); err != nil {
		t.Fatalf("header edits stay allowed: %v", err)
	}
	view, _ := h.service.GetQuiz(ctx, quiz.ID, admin)
	if view.Title != "Renamed" || len(view.Questions) != 2 {
		t.Fatalf("expected cached quiz invalidated after update, got %+v", view)
	}
}

func TestUpdateQuizKeepsStoredHeaderFields(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()
	quiz, _ := h.authorQuiz(t, 1)

	// prime the definition cache, then change the stored header behind it
	if _, err := h.quizzes.GetQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	header, err := h.content.GetQuizHeader(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get header: %v", err)
	}
	header.Description = "written elsewhere"
	header.PassPercentage = 90
	if err := h.content.UpdateQuiz(ctx, header, false); err != nil {
		t.Fatalf("store update: %v", err)
	}

	title := "Renamed"
	updated, err := h.service.UpdateQuiz(ctx, quiz.ID, app.QuizUpdate{Title: &title})
	if err != nil {
		t.Fatalf("update quiz: %v", err)
	}
	if updated.Description != "written elsewhere" || updated.PassPercentage != 90 || updated.Title != title {
		t.Fatalf("stale header fields written back: %+v", updated)
	}
	if len(updated.Questions) != 1 {
		t.Fatalf("expected questions in the returned quiz, got %d", len(updated.Questions))
	}
	stored, _ := h.content.GetQuizHeader(ctx, quiz.ID)
	if stored.Description != "written elsewhere" || stored.PassPercentage != 90 {
		t.Fatalf("store lost header fields: %+v", stored)
	}
}

func TestAnsweredQuestionOptionsFrozen(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()
	quiz, questions := h.authorQuiz(t, 1)

	h.complete(t, quiz.ID, participant.ID, time.Minute, domain.AnswerSubmission{OptionID: questions[0].Options[1].ID})

	_, err := h.service.UpdateQuestion(ctx, questions[0].ID, app.QuestionUpdate{Options: twoOptions()})
	if !errors.Is(err, domain.ErrContentLocked) {
		t.Fatalf("expected ErrContentLocked, got %v", err)
	}
	if err := h.service.DeleteQuestion(ctx, questions[0].ID); !errors.Is(err, domain.ErrContentLocked) {
		t.Fatalf("expected ErrContentLocked on delete, got %v", err)
	}

	text := "Is it really?"
	updated, err := h.service.UpdateQuestion(ctx, questions[0].ID, app.QuestionUpdate{Text: &text})
	if err != nil {
		t.Fatalf("text edit: %v", err)
	}
	if updated.Options[0].ID != questions[0].Options[0].ID {
		t.Fatalf("options must survive a text edit")
	}
	view, _ := h.service.GetQuiz(ctx, quiz.ID, admin)
	if view.Questions[0].Text != text {
		t.Fatalf("expected cached quiz to show edited text, got %q", view.Questions[0].Text)
	}
}

func TestUpdateQuestionOptionsBeforeAnswers(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()
	quiz, questions := h.authorQuiz(t, 1)
	_, _ = h.service.GetQuiz(ctx, quiz.ID, admin)

	options := []app.OptionInput{{Text: "a"}, {Text: "b"}, {Text: "c", Correct: true}}
	updated, err := h.service.UpdateQuestion(ctx, questions[0].ID, app.QuestionUpdate{Options: options})
	if err != nil {
		t.Fatalf("update options: %v", err)
	}
	if len(updated.Options) != 3 {
		t.Fatalf("expected three options, got %+v", updated.Options)
	}
	view, _ := h.service.GetQuiz(ctx, quiz.ID, admin)
	if len(view.Questions[0].Options) != 3 {
		t.Fatalf("expected cached quiz invalidated after option change")
	}
}

func TestDeleteQuizDeactivates(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()
	quiz, _ := h.authorQuiz(t, 1)

	if err := h.service.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := h.service.GetQuiz(ctx, quiz.ID, participant); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected participants to lose sight of the quiz, got %v", err)
	}
	kept, err := h.service.GetQuiz(ctx, quiz.ID, admin)
	if err != nil || kept.IsActive {
		t.Fatalf("expected inactive quiz kept for admins, got %+v %v", kept, err)
	}
	if _, err := h.engine.BeginAttempt(ctx, quiz.ID, participant.ID); !errors.Is(err, domain.ErrQuizInactive) {
		t.Fatalf("expected ErrQuizInactive, got %v", err)
	}

	listed, err := h.service.ListQuizzes(ctx, app.QuizFilter{}, participant)
	if err != nil || len(listed) != 0 {
		t.Fatalf("expected no active quizzes for participants, got %+v %v", listed, err)
	}
	listed, _ = h.service.ListQuizzes(ctx, app.QuizFilter{}, admin)
	if len(listed) != 1 {
		t.Fatalf("expected admins to list inactive quizzes, got %d", len(listed))
	}
}

func TestRandomQuestionsFilters(t *testing.T) {
	h := newContentHarness(t)
	ctx := context.Background()
	category, _ := h.service.CreateCategory(ctx, "Math", "")
	for i := 0; i < 4; i++ {
		in := app.QuestionInput{Text: "?", Difficulty: 2, Options: twoOptions()}
		if i%2 == 0 {
			in.CategoryID = category.ID
		}
		if _, err := h.service.CreateQuestion(ctx, admin.ID, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	picked, err := h.service.RandomQuestions(ctx, app.QuestionFilter{CategoryID: category.ID, Limit: 5})
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if len(picked) != 2 {
		t.Fatalf("expected the two questions of the category, got %d", len(picked))
	}
	for _, q := range picked {
		if q.CategoryID != category.ID {
			t.Fatalf("unexpected category %q", q.CategoryID)
		}
	}
}
