package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-easyapply-automation/internal/apply"
	"go-easyapply-automation/internal/config"
	"go-easyapply-automation/internal/models"
)

type upsertCall struct {
	jobID  string
	status models.ApplicationStatus
	reason *string
}

type fakeRepo struct {
	user    *models.User
	jobs    []models.JobListing
	upserts []upsertCall
}

func (r *fakeRepo) GetUser(ctx context.Context) (*models.User, error) {
	return r.user, nil
}

func (r *fakeRepo) FetchFreshJobs(ctx context.Context, userID string, limit int) ([]models.JobListing, error) {
	if len(r.jobs) > limit {
		return r.jobs[:limit], nil
	}
	return r.jobs, nil
}

func (r *fakeRepo) UpsertApplicationRecord(ctx context.Context, userID, jobID string, status models.ApplicationStatus, reason *string) error {
	r.upserts = append(r.upserts, upsertCall{jobID: jobID, status: status, reason: reason})
	return nil
}

type fakeAnswers struct {
	ready   bool
	answers []models.Answer
}

func (a *fakeAnswers) Ready() bool { return a.ready }

func (a *fakeAnswers) GenerateAnswers(ctx context.Context, user *models.User, job *models.JobListing, questions []string) ([]models.Answer, error) {
	return a.answers, nil
}

type fakeSessions struct{ err error }

func (s *fakeSessions) EnsureSession(ctx context.Context) error { return s.err }

type fakeApplier struct {
	result apply.Result
	calls  int
	delay  time.Duration
}

func (a *fakeApplier) Apply(ctx context.Context, user *models.User, job *models.JobListing, answers []models.Answer) apply.Result {
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	a.calls++
	return a.result
}

type fakeNotifier struct {
	statuses []string
	errors   []error
	reviews  []string
}

func (n *fakeNotifier) SendStatus(message string) error {
	n.statuses = append(n.statuses, message)
	return nil
}

func (n *fakeNotifier) SendError(err error) error {
	n.errors = append(n.errors, err)
	return nil
}

func (n *fakeNotifier) SendReviewRequest(job *models.JobListing, question string) error {
	n.reviews = append(n.reviews, question)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		HourlyCap:    25,
		DailyCap:     45,
		JobsPerCycle: 10,
	}
}

func testSetup(jobs []models.JobListing, result apply.Result) (*Scheduler, *fakeRepo, *fakeApplier) {
	repo := &fakeRepo{
		user: &models.User{ID: "u1"},
		jobs: jobs,
	}
	applier := &fakeApplier{result: result}
	answers := &fakeAnswers{
		ready:   true,
		answers: []models.Answer{{Question: "First name", Answer: "Ada", Confidence: 1}},
	}
	s := New(testConfig(), repo, answers, &fakeSessions{}, applier, nil)
	return s, repo, applier
}

func TestTick_HourRollover(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 59, 0, 0, time.UTC)
	st := State{
		AppliedHour: 7,
		AppliedDay:  12,
		LastHour:    base.Truncate(time.Hour),
		LastDay:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}

	//same hour: nothing resets
	st = Tick(base.Add(30*time.Second), st)
	assert.Equal(t, 7, st.AppliedHour)
	assert.Equal(t, 12, st.AppliedDay)

	//crossing the hour resets the hourly counter only
	st = Tick(base.Add(2*time.Minute), st)
	assert.Equal(t, 0, st.AppliedHour)
	assert.Equal(t, 12, st.AppliedDay)

	//a second tick in the new hour must not reset again
	st.AppliedHour = 3
	st = Tick(base.Add(3*time.Minute), st)
	assert.Equal(t, 3, st.AppliedHour)
}

func TestTick_DayRollover(t *testing.T) {
	st := State{
		AppliedHour: 5,
		AppliedDay:  30,
		LastHour:    time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC),
		LastDay:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}

	st = Tick(time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC), st)
	assert.Equal(t, 0, st.AppliedHour)
	assert.Equal(t, 0, st.AppliedDay)
}

func TestRunCycle_CapReachedProcessesNothing(t *testing.T) {
	s, repo, applier := testSetup([]models.JobListing{{ID: "j1"}}, apply.Result{Outcome: apply.OutcomeSubmitted})
	s.state.AppliedHour = s.cfg.HourlyCap

	s.RunCycleNow(context.Background())

	assert.Zero(t, applier.calls)
	assert.Empty(t, repo.upserts)
}

func TestRunCycle_DailyCapReachedProcessesNothing(t *testing.T) {
	s, _, applier := testSetup([]models.JobListing{{ID: "j1"}}, apply.Result{Outcome: apply.OutcomeSubmitted})
	s.state.AppliedDay = s.cfg.DailyCap

	s.RunCycleNow(context.Background())

	assert.Zero(t, applier.calls)
}

func TestRunCycle_PausedProcessesNothing(t *testing.T) {
	s, _, applier := testSetup([]models.JobListing{{ID: "j1"}}, apply.Result{Outcome: apply.OutcomeSubmitted})
	s.Pause()

	s.RunCycleNow(context.Background())

	assert.Zero(t, applier.calls)
}

func TestRunCycle_SubmittedIncrementsCountersAndPersistsApplied(t *testing.T) {
	s, repo, applier := testSetup([]models.JobListing{{ID: "j1", Title: "Backend Engineer"}}, apply.Result{Outcome: apply.OutcomeSubmitted})

	s.RunCycleNow(context.Background())

	assert.Equal(t, 1, applier.calls)
	status := s.GetStatus()
	assert.Equal(t, 1, status.AppliedHour)
	assert.Equal(t, 1, status.AppliedDay)

	assert.Len(t, repo.upserts, 1)
	assert.Equal(t, "j1", repo.upserts[0].jobID)
	assert.Equal(t, models.StatusApplied, repo.upserts[0].status)
}

func TestRunCycle_NeedsReviewSkipsApplyPath(t *testing.T) {
	repo := &fakeRepo{
		user: &models.User{ID: "u1"},
		jobs: []models.JobListing{{ID: "j1"}},
	}
	applier := &fakeApplier{result: apply.Result{Outcome: apply.OutcomeSubmitted}}
	answers := &fakeAnswers{
		ready: true,
		answers: []models.Answer{
			{Question: "First name", Answer: "Ada", Confidence: 1},
			{Question: "Expected salary", NeedsReview: true},
		},
	}
	notifier := &fakeNotifier{}
	s := New(testConfig(), repo, answers, &fakeSessions{}, applier, notifier)

	s.RunCycleNow(context.Background())

	assert.Zero(t, applier.calls, "submit path must not run for reviewable answers")
	assert.Len(t, repo.upserts, 1)
	assert.Equal(t, models.StatusPendingReview, repo.upserts[0].status)
	assert.Contains(t, *repo.upserts[0].reason, "Expected salary")
	assert.Equal(t, []string{"Expected salary"}, notifier.reviews, "operator must be asked to review the answer")

	status := s.GetStatus()
	assert.Zero(t, status.AppliedHour)
}

func TestRunCycle_ConcurrentTriggersProcessOnce(t *testing.T) {
	repo := &fakeRepo{
		user: &models.User{ID: "u1"},
		jobs: []models.JobListing{{ID: "j1"}},
	}
	//slow applier keeps the first cycle in flight while the second fires
	applier := &fakeApplier{
		result: apply.Result{Outcome: apply.OutcomeSubmitted},
		delay:  100 * time.Millisecond,
	}
	answers := &fakeAnswers{
		ready:   true,
		answers: []models.Answer{{Question: "First name", Answer: "Ada", Confidence: 1}},
	}
	cfg := testConfig()
	cfg.HourlyCap = 1
	s := New(cfg, repo, answers, &fakeSessions{}, applier, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RunCycleNow(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applier.calls, "overlapping triggers must not apply the same job twice")
	assert.Len(t, repo.upserts, 1)

	status := s.GetStatus()
	assert.Equal(t, 1, status.AppliedHour, "counters must stay within the hourly cap")
}

func TestRunCycle_SessionFailureAlertsOperator(t *testing.T) {
	repo := &fakeRepo{
		user: &models.User{ID: "u1"},
		jobs: []models.JobListing{{ID: "j1"}},
	}
	notifier := &fakeNotifier{}
	s := New(testConfig(), repo, &fakeAnswers{ready: true}, &fakeSessions{err: assert.AnError}, &fakeApplier{}, notifier)

	s.RunCycleNow(context.Background())

	assert.Len(t, notifier.errors, 1)
}

func TestRunCycle_ErrorOutcomePersistsReason(t *testing.T) {
	s, repo, _ := testSetup(
		[]models.JobListing{{ID: "j1"}},
		apply.Result{Outcome: apply.OutcomeError, Reason: "no answer for required question: Desired salary"},
	)

	s.RunCycleNow(context.Background())

	assert.Len(t, repo.upserts, 1)
	assert.Equal(t, models.StatusError, repo.upserts[0].status)
	assert.Contains(t, *repo.upserts[0].reason, "Desired salary")

	status := s.GetStatus()
	assert.Zero(t, status.AppliedHour, "counters only move on confirmed submission")
}

func TestRunCycle_DryRunKeepsRecordFresh(t *testing.T) {
	s, repo, _ := testSetup([]models.JobListing{{ID: "j1"}}, apply.Result{Outcome: apply.OutcomeDryRun})

	s.RunCycleNow(context.Background())

	assert.Len(t, repo.upserts, 1)
	assert.Equal(t, models.StatusFresh, repo.upserts[0].status)
	assert.Contains(t, *repo.upserts[0].reason, "dry run")

	status := s.GetStatus()
	assert.Zero(t, status.AppliedHour)
}

func TestRunCycle_SessionFailureAbortsCleanly(t *testing.T) {
	repo := &fakeRepo{
		user: &models.User{ID: "u1"},
		jobs: []models.JobListing{{ID: "j1"}},
	}
	applier := &fakeApplier{}
	answers := &fakeAnswers{ready: true}
	s := New(testConfig(), repo, answers, &fakeSessions{err: assert.AnError}, applier, nil)

	s.RunCycleNow(context.Background())

	assert.Zero(t, applier.calls)
	assert.Empty(t, repo.upserts)
}

func TestStart_RefusesWithoutReadyModel(t *testing.T) {
	s := New(testConfig(), &fakeRepo{}, &fakeAnswers{ready: false}, &fakeSessions{}, &fakeApplier{}, nil)

	err := s.Start(context.Background())

	assert.ErrorIs(t, err, ErrSetupRequired)
}

func TestJobDelay_BothEndsInclusive(t *testing.T) {
	sawMin, sawMax := false, false
	for i := 0; i < 5000; i++ {
		d := jobDelay(30, 60)
		assert.GreaterOrEqual(t, d, 30*time.Second)
		assert.LessOrEqual(t, d, 60*time.Second)
		if d == 30*time.Second {
			sawMin = true
		}
		if d == 60*time.Second {
			sawMax = true
		}
	}
	assert.True(t, sawMin, "lower bound must be drawable")
	assert.True(t, sawMax, "upper bound must be drawable")

	assert.Equal(t, 30*time.Second, jobDelay(30, 30))
	assert.Equal(t, 30*time.Second, jobDelay(30, 10))
}

func TestQuestionsFor_IncludesProfileFAQ(t *testing.T) {
	user := &models.User{
		ProfileJSON: []byte(`{"faq":[{"question":"Do you have a driver's license?","answer":"Yes"}]}`),
	}

	questions := QuestionsFor(user)

	assert.Contains(t, questions, "Do you have a driver's license?")
	assert.Contains(t, questions, "Phone number")
}
