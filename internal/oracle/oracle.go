// Define interfaces for the scoring and answer oracles
// Keep the apply/scan engine independent of AI providers

package oracle

import (
	"context"

	"go-easyapply-automation/internal/models"
)

// Score is the verdict for one (user, job) pair.
type Score struct {
	Similarity  float64 `json:"similarity"`
	Blacklisted bool    `json:"blacklisted"`
	Confidence  float64 `json:"confidence"`
}

// ScoringOracle rates a job against the user's resume segments.
type ScoringOracle interface {
	ScoreJob(ctx context.Context, user *models.User, job *models.JobListing) (Score, error)
}

// AnswerOracle produces one Answer per question. Entries that fail
// generation come back with NeedsReview set instead of an error.
type AnswerOracle interface {
	GenerateAnswers(ctx context.Context, user *models.User, job *models.JobListing, questions []string) ([]models.Answer, error)

	//Ready reports whether the backing model is usable at all.
	//The scheduler refuses to start when this is false.
	Ready() bool
}
