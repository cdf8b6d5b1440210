package app

import (
	"fmt"

	"quiz-competition-service/internal/domain"
)

// gradedSubmission is the outcome of scoring a full submission against a quiz snapshot.
type gradedSubmission struct {
	answers      []domain.UserAnswer
	correctCount int
	totalCount   int
	score        float64
	passed       bool
}

// scoreSubmission validates the answers against quiz content and grades them.
// Nothing about the attempt is mutated here; the caller persists the result.
func scoreSubmission(quiz domain.Quiz, submissions []domain.AnswerSubmission) (gradedSubmission, error) {
	optionOwner := make(map[string]string)
	inQuiz := make(map[string]struct{}, len(quiz.Questions))
	for _, question := range quiz.Questions {
		inQuiz[question.ID] = struct{}{}
		for _, opt := range question.Options {
			optionOwner[opt.ID] = question.ID
		}
	}

	selected := make(map[string]string, len(submissions))
	answers := make([]domain.UserAnswer, 0, len(submissions))
	for _, sub := range submissions {
		questionID := sub.QuestionID
		if sub.OptionID == "" {
			if _, ok := inQuiz[questionID]; !ok {
				return gradedSubmission{}, &domain.InvalidReferenceError{
					QuestionID: questionID,
					Reason:     "question is not part of the quiz",
				}
			}
		} else {
			owner, ok := optionOwner[sub.OptionID]
			if !ok {
				return gradedSubmission{}, &domain.InvalidReferenceError{
					OptionID: sub.OptionID,
					Reason:   "option is not part of the quiz",
				}
			}
			if questionID != "" && questionID != owner {
				return gradedSubmission{}, &domain.InvalidReferenceError{
					OptionID: sub.OptionID,
					Reason:   fmt.Sprintf("option does not belong to question %q", questionID),
				}
			}
			questionID = owner
		}
		if _, dup := selected[questionID]; dup {
			return gradedSubmission{}, &domain.InvalidReferenceError{
				QuestionID: questionID,
				Reason:     "question answered more than once",
			}
		}
		selected[questionID] = sub.OptionID
		answers = append(answers, domain.UserAnswer{
			QuestionID:       questionID,
			OptionID:         sub.OptionID,
			TimeTakenSeconds: sub.TimeTakenSeconds,
		})
	}

	correctSets := make(map[string]map[string]struct{}, len(quiz.Questions))
	for _, question := range quiz.Questions {
		correct := question.CorrectOptions()
		if len(correct) == 0 {
			return gradedSubmission{}, &domain.DataIntegrityError{QuizID: quiz.ID, QuestionID: question.ID}
		}
		correctSets[question.ID] = correct
	}

	// Unanswered questions stay in the denominator.
	graded := gradedSubmission{totalCount: len(quiz.Questions)}
	for i := range answers {
		if answers[i].OptionID == "" {
			continue
		}
		if _, ok := correctSets[answers[i].QuestionID][answers[i].OptionID]; ok {
			answers[i].Correct = true
			graded.correctCount++
		}
	}
	graded.answers = answers
	graded.score = scorePercentage(graded.correctCount, graded.totalCount)
	graded.passed = graded.score >= quiz.PassPercentage
	return graded, nil
}

func scorePercentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}
