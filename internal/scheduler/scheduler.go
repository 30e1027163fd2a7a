package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"go-easyapply-automation/internal/apply"
	"go-easyapply-automation/internal/config"
	"go-easyapply-automation/internal/models"
	"go-easyapply-automation/internal/oracle"
)

// ErrSetupRequired is returned by Start when the answer model is not
// usable; the caller should surface a setup step, not crash.
var ErrSetupRequired = errors.New("answer model unavailable: finish setup before starting the scheduler")

// State holds the rate-limit counters. Counters reset when the
// wall-clock hour/day advances; nothing is persisted across restarts.
type State struct {
	Paused      bool
	AppliedHour int
	AppliedDay  int
	LastHour    time.Time
	LastDay     time.Time
}

// Status is the read-only snapshot exposed to UI consumers.
type Status struct {
	Paused      bool `json:"paused"`
	AppliedHour int  `json:"applied_hour"`
	AppliedDay  int  `json:"applied_day"`
}

// Tick rolls the counters over wall-clock boundaries. Pure function of
// (now, state) so the pacing logic stays independent of the timer.
func Tick(now time.Time, st State) State {
	hour := now.Truncate(time.Hour)
	if !hour.Equal(st.LastHour) {
		st.AppliedHour = 0
		st.LastHour = hour
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !day.Equal(st.LastDay) {
		st.AppliedDay = 0
		st.LastDay = day
	}

	return st
}

// Repository is the persistence surface the scheduler needs.
type Repository interface {
	GetUser(ctx context.Context) (*models.User, error)
	FetchFreshJobs(ctx context.Context, userID string, limit int) ([]models.JobListing, error)
	UpsertApplicationRecord(ctx context.Context, userID, jobID string, status models.ApplicationStatus, reason *string) error
}

// SessionProvider supplies the authenticated browser session.
type SessionProvider interface {
	EnsureSession(ctx context.Context) error
}

// Applier executes one application to a terminal outcome.
type Applier interface {
	Apply(ctx context.Context, user *models.User, job *models.JobListing, answers []models.Answer) apply.Result
}

// Notifier is the optional operator channel.
type Notifier interface {
	SendStatus(message string) error
	SendError(err error) error
	SendReviewRequest(job *models.JobListing, question string) error
}

type Scheduler struct {
	cfg      *config.Config
	repo     Repository
	answers  oracle.AnswerOracle
	sessions SessionProvider
	applier  Applier
	notifier Notifier

	mu      sync.Mutex
	state   State
	running bool
	stop    chan struct{}

	//cycleMu serializes cycles: jobs are strictly sequential even when
	//a manual trigger lands while the timer's cycle is still in flight
	cycleMu sync.Mutex
}

func New(cfg *config.Config, repo Repository, answers oracle.AnswerOracle, sessions SessionProvider, applier Applier, notifier Notifier) *Scheduler {
	now := time.Now()
	return &Scheduler{
		cfg:      cfg,
		repo:     repo,
		answers:  answers,
		sessions: sessions,
		applier:  applier,
		notifier: notifier,
		state: State{
			LastHour: now.Truncate(time.Hour),
			LastDay:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		},
	}
}

// Start begins the recurring cycle. Idempotent; returns ErrSetupRequired
// when the answer model is unavailable.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.answers.Ready() {
		return ErrSetupRequired
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	interval := time.Duration(s.cfg.CycleIntervalSec) * time.Second
	log.Printf("⏰ Scheduler started (interval %s, caps %d/hour %d/day)", interval, s.cfg.HourlyCap, s.cfg.DailyCap)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunCycleNow(ctx)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (s *Scheduler) StopTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stop)
		s.running = false
	}
}

func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Paused = true
	log.Println("⏸️ Scheduler paused")
}

func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Paused = false
	log.Println("▶️ Scheduler resumed")
}

func (s *Scheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Paused:      s.state.Paused,
		AppliedHour: s.state.AppliedHour,
		AppliedDay:  s.state.AppliedDay,
	}
}

// capReached must be called with the lock held, after Tick rolled the
// counters for the current wall clock.
func (s *Scheduler) capReached() bool {
	return s.state.AppliedHour >= s.cfg.HourlyCap || s.state.AppliedDay >= s.cfg.DailyCap
}

// RunCycleNow executes one cycle, bypassing the timer but honoring
// pause state and caps. A panic or per-job failure never stops future
// cycles.
func (s *Scheduler) RunCycleNow(ctx context.Context) {
	if !s.cycleMu.TryLock() {
		log.Println("ℹ️ Cycle already running, skipping trigger")
		return
	}
	defer s.cycleMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Cycle panic recovered: %v", r)
		}
	}()

	s.mu.Lock()
	s.state = Tick(time.Now(), s.state)
	if s.state.Paused {
		s.mu.Unlock()
		return
	}
	if s.capReached() {
		log.Printf("🧢 Cap reached (%d/hour, %d/day), skipping cycle", s.state.AppliedHour, s.state.AppliedDay)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	user, err := s.repo.GetUser(ctx)
	if err != nil || user == nil {
		log.Printf("ℹ️ No user context, skipping cycle: %v", err)
		return
	}

	if err := s.sessions.EnsureSession(ctx); err != nil {
		log.Printf("⚠️ Could not acquire browser session: %v", err)
		if s.notifier != nil {
			if nerr := s.notifier.SendError(fmt.Errorf("browser session unavailable: %w", err)); nerr != nil {
				log.Printf("⚠️ Failed to send session alert: %v", nerr)
			}
		}
		return
	}

	jobs, err := s.repo.FetchFreshJobs(ctx, user.ID, s.cfg.JobsPerCycle)
	if err != nil {
		log.Printf("⚠️ Failed to fetch fresh jobs: %v", err)
		return
	}
	if len(jobs) == 0 {
		return
	}
	log.Printf("🔄 Cycle: %d fresh jobs queued", len(jobs))

	applied, errored, review := 0, 0, 0
	for i := range jobs {
		//pause and caps are re-checked at every job boundary; an
		//in-flight application always runs to completion or timeout
		s.mu.Lock()
		s.state = Tick(time.Now(), s.state)
		stop := s.state.Paused || s.capReached()
		s.mu.Unlock()
		if stop {
			break
		}

		switch s.processJob(ctx, user, &jobs[i]) {
		case models.StatusApplied:
			applied++
		case models.StatusError:
			errored++
		case models.StatusPendingReview:
			review++
		}

		if i < len(jobs)-1 {
			s.interJobDelay(ctx)
		}
	}

	if applied+errored+review > 0 {
		summary := fmt.Sprintf("Cycle done: %d applied, %d errors, %d pending review", applied, errored, review)
		log.Println("📊 " + summary)
		if s.notifier != nil {
			if err := s.notifier.SendStatus(summary); err != nil {
				log.Printf("⚠️ Failed to send cycle summary: %v", err)
			}
		}
	}
}

// processJob takes one record to a terminal state and performs exactly
// one persistence update for it, whatever exit path is taken.
func (s *Scheduler) processJob(ctx context.Context, user *models.User, job *models.JobListing) (status models.ApplicationStatus) {
	var reason *string

	defer func() {
		if r := recover(); r != nil {
			status = models.StatusError
			msg := fmt.Sprintf("panic during application: %v", r)
			reason = &msg
		}
		if status == "" {
			return
		}
		if err := s.repo.UpsertApplicationRecord(ctx, user.ID, job.ID, status, reason); err != nil {
			log.Printf("  ⚠️ Failed to persist outcome for %q: %v", job.Title, err)
		}
	}()

	questions := QuestionsFor(user)
	answers, err := s.answers.GenerateAnswers(ctx, user, job, questions)
	if err != nil {
		msg := "answer generation failed: " + err.Error()
		reason = &msg
		return models.StatusError
	}

	for _, a := range answers {
		if a.NeedsReview {
			log.Printf("  ⏳ %q needs review before applying (question: %s)", job.Title, a.Question)
			if s.notifier != nil {
				if nerr := s.notifier.SendReviewRequest(job, a.Question); nerr != nil {
					log.Printf("  ⚠️ Failed to send review request: %v", nerr)
				}
			}
			msg := "answer needs review: " + a.Question
			reason = &msg
			return models.StatusPendingReview
		}
	}

	result := s.applier.Apply(ctx, user, job, answers)
	switch result.Outcome {
	case apply.OutcomeSubmitted:
		s.mu.Lock()
		s.state.AppliedHour++
		s.state.AppliedDay++
		s.mu.Unlock()
		log.Printf("  ✅ Applied: %s @ %s", job.Title, job.Company)
		return models.StatusApplied
	case apply.OutcomeDryRun:
		log.Printf("  🧪 Dry run complete: %s @ %s", job.Title, job.Company)
		msg := "dry run: submission skipped"
		reason = &msg
		return models.StatusFresh
	default:
		log.Printf("  ❌ Apply failed: %s (%s)", job.Title, result.Reason)
		reason = &result.Reason
		return models.StatusError
	}
}

// interJobDelay inserts the randomized pause between applications so
// submissions do not land on a detectable uniform clock.
func (s *Scheduler) interJobDelay(ctx context.Context) {
	select {
	case <-time.After(jobDelay(s.cfg.MinJobDelaySec, s.cfg.MaxJobDelaySec)):
	case <-ctx.Done():
	}
}

// jobDelay draws uniformly from [minSec, maxSec], both ends inclusive.
func jobDelay(minSec, maxSec int) time.Duration {
	if maxSec <= minSec {
		return time.Duration(minSec) * time.Second
	}
	return time.Duration(minSec+rand.Intn(maxSec-minSec+1)) * time.Second
}

// defaultQuestions is the pre-known Easy Apply question set answers are
// generated for ahead of navigation.
var defaultQuestions = []string{
	"First name",
	"Last name",
	"Email address",
	"Phone number",
	"City",
	"How many years of work experience do you have?",
	"Are you legally authorized to work in this country?",
	"Will you now or in the future require sponsorship?",
	"Are you willing to relocate?",
	"What is your expected salary?",
	"When can you start?",
}

// QuestionsFor combines the pre-known set with the user's curated FAQ
// questions so the oracle covers everything the dialog is likely to ask.
func QuestionsFor(user *models.User) []string {
	questions := append([]string{}, defaultQuestions...)

	var profile models.Profile
	if len(user.ProfileJSON) > 0 {
		if err := json.Unmarshal(user.ProfileJSON, &profile); err == nil {
			for _, f := range profile.FAQ {
				if f.Question != "" {
					questions = append(questions, f.Question)
				}
			}
		}
	}
	return questions
}
