package database

import (
	"context"
	"fmt"
	"time"

	"go-easyapply-automation/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func ConnectDB(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// IMPORTANT: Supabase connection pooler (PgBouncer in Transaction mode)
	// does not support prepared statements easily. We MUST disable the statement cache.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Ping to ensure connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Repository{db: pool}, nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// ---------------- USER OPERATIONS ----------------

// GetUser resolves the single configured user. A missing user is not an
// error; cycles just skip.
func (r *Repository) GetUser(ctx context.Context) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, resume_path, COALESCE(cover_letter_path, ''), profile_json, resume_segments, created_at, updated_at
		FROM users ORDER BY created_at LIMIT 1`

	err := r.db.QueryRow(ctx, query).
		Scan(&user.ID, &user.Email, &user.ResumePath, &user.CoverLetterPath, &user.ProfileJSON, &user.ResumeSegments, &user.CreatedAt, &user.UpdatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// ---------------- JOB OPERATIONS ----------------

// SaveJob inserts a new listing or refreshes an existing one (keyed by external_id)
func (r *Repository) SaveJob(ctx context.Context, job *models.JobListing) (*models.JobListing, error) {
	query := `
		INSERT INTO jobs (external_id, title, company, location, url, description, keywords)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_id)
		DO UPDATE SET title = EXCLUDED.title, company = EXCLUDED.company, location = EXCLUDED.location, description = EXCLUDED.description
		RETURNING id, external_id, title, company, location, url, description, keywords, created_at`

	err := r.db.QueryRow(ctx, query, job.ExternalID, job.Title, job.Company, job.Location, job.URL, job.Description, job.Keywords).
		Scan(&job.ID, &job.ExternalID, &job.Title, &job.Company, &job.Location, &job.URL, &job.Description, &job.Keywords, &job.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	return job, nil
}

// FetchFreshJobs returns up to limit listings whose application record
// is FRESH (or re-queued from review) for this user, newest first.
func (r *Repository) FetchFreshJobs(ctx context.Context, userID string, limit int) ([]models.JobListing, error) {
	query := `
		SELECT j.id, j.external_id, j.title, j.company, j.location, j.url, j.description, j.keywords, j.created_at
		FROM jobs j
		JOIN applications a ON a.job_id = j.id
		WHERE a.user_id = $1 AND a.status = ANY($2)
		ORDER BY j.created_at DESC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, userID, []string{string(models.StatusFresh), string(models.StatusQueued)}, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fresh jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.JobListing
	for rows.Next() {
		var job models.JobListing
		if err := rows.Scan(&job.ID, &job.ExternalID, &job.Title, &job.Company, &job.Location, &job.URL, &job.Description, &job.Keywords, &job.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// ---------------- APPLICATION OPERATIONS ----------------

// UpsertApplicationRecord writes the terminal (or intermediate) state
// for a (user, job) pair. applied_at is stamped once on APPLIED.
func (r *Repository) UpsertApplicationRecord(ctx context.Context, userID, jobID string, status models.ApplicationStatus, reason *string) error {
	query := `
		INSERT INTO applications (user_id, job_id, status, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, job_id)
		DO UPDATE SET status = EXCLUDED.status, reason = EXCLUDED.reason, updated_at = now(),
			applied_at = CASE WHEN EXCLUDED.status = $5 THEN now() ELSE applications.applied_at END`

	_, err := r.db.Exec(ctx, query, userID, jobID, status, reason, models.StatusApplied)
	if err != nil {
		return fmt.Errorf("failed to upsert application record: %w", err)
	}
	return nil
}

// RequeuePendingReview is the manual review action: a record moves back
// to QUEUED only from PENDING_REVIEW, every other transition stays
// forward-only.
func (r *Repository) RequeuePendingReview(ctx context.Context, userID, jobID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE applications SET status = $1, reason = NULL, updated_at = now()
		 WHERE user_id = $2 AND job_id = $3 AND status = $4`,
		models.StatusQueued, userID, jobID, models.StatusPendingReview)
	if err != nil {
		return fmt.Errorf("failed to requeue application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("application is not pending review")
	}
	return nil
}

// CountPendingReview feeds the operator notification.
func (r *Repository) CountPendingReview(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM applications WHERE user_id = $1 AND status = $2`,
		userID, models.StatusPendingReview).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending reviews: %w", err)
	}
	return count, nil
}
