package models

import (
	"time"
)

type ApplicationStatus string

const (
	StatusFresh         ApplicationStatus = "FRESH"
	StatusPendingReview ApplicationStatus = "PENDING_REVIEW"
	StatusQueued        ApplicationStatus = "QUEUED"
	StatusSkipped       ApplicationStatus = "SKIPPED"
	StatusApplied       ApplicationStatus = "APPLIED"
	StatusError         ApplicationStatus = "ERROR"
)

type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	ResumePath      string    `json:"resume_path"`
	CoverLetterPath string    `json:"cover_letter_path,omitempty"`
	ProfileJSON     []byte    `json:"profile_json"` // Raw JSONB
	ResumeSegments  []string  `json:"resume_segments"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// JobListing is immutable once discovered by the scanner.
type JobListing struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Answer is one entry of the pre-computed answer table for a job.
// NeedsReview is set when generation failed or confidence fell below
// the configured threshold; such answers must never be auto-submitted.
type Answer struct {
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Refs        []string `json:"refs,omitempty"`
	Confidence  float64  `json:"confidence"`
	NeedsReview bool     `json:"needs_review"`
}

// ApplicationRecord tracks one (user, job) pair through the apply flow.
// Status only moves forward: FRESH -> {PENDING_REVIEW|SKIPPED|QUEUED} ->
// {APPLIED|ERROR}, except a manual review action re-queuing PENDING_REVIEW.
type ApplicationRecord struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	JobID     string            `json:"job_id"`
	Status    ApplicationStatus `json:"status"`
	Reason    *string           `json:"reason,omitempty"`
	AppliedAt *time.Time        `json:"applied_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
