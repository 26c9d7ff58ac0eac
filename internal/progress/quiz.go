package progress

import "math"

// EvaluateQuiz maps a raw submission to pass/fail against a threshold.
// passingScore <= 0 falls back to DefaultPassingScore.
func EvaluateQuiz(score, totalQuestions, passingScore int) (QuizResult, error) {
	if totalQuestions <= 0 {
		return QuizResult{}, Validationf("total_questions must be positive, got %d", totalQuestions)
	}
	if score < 0 {
		return QuizResult{}, Validationf("quiz_score must not be negative, got %d", score)
	}
	if score > totalQuestions {
		return QuizResult{}, Validationf("quiz_score %d exceeds total_questions %d", score, totalQuestions)
	}
	if passingScore <= 0 {
		passingScore = DefaultPassingScore
	}
	pct := int(math.Round(float64(score) / float64(totalQuestions) * 100))
	return QuizResult{
		Percentage:   pct,
		PassingScore: passingScore,
		Passed:       pct >= passingScore,
	}, nil
}

// coursePercent rounds completed/total to an integer percentage. A course
// with no published lessons is pinned to 0 so it can never auto-complete.
func coursePercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
