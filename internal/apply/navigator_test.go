package apply

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-easyapply-automation/internal/models"
)

// fakeDriver scripts one dialog flow without a browser.
type fakeDriver struct {
	mu        sync.Mutex
	fields    []Field
	action    Action
	submitted bool
	modal     bool
	openDelay time.Duration
	noModal   bool
	closed    bool
	clicked   []Action
	uploads   []string
}

func (d *fakeDriver) Open(ctx context.Context, jobURL string) error {
	if d.openDelay > 0 {
		time.Sleep(d.openDelay)
	}
	d.mu.Lock()
	d.modal = !d.noModal
	d.mu.Unlock()
	return nil
}

func (d *fakeDriver) Submitted() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitted, nil
}

func (d *fakeDriver) ModalVisible() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.modal, nil
}

func (d *fakeDriver) Fields() ([]Field, error) { return d.fields, nil }

func (d *fakeDriver) UploadResume(path string) error {
	d.uploads = append(d.uploads, path)
	return nil
}

func (d *fakeDriver) UploadCoverLetter(path string) error { return nil }

func (d *fakeDriver) NextAction() (Action, error) { return d.action, nil }

func (d *fakeDriver) Click(a Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicked = append(d.clicked, a)
	if a == ActionSubmit {
		d.submitted = true
		d.modal = false
	}
	return nil
}

func (d *fakeDriver) UncheckFollowCompany() error { return nil }
func (d *fakeDriver) WaitSettle()                 {}
func (d *fakeDriver) CaptureFailure(name string)  {}

func (d *fakeDriver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *fakeDriver) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func standardField(question string, required bool, sink *map[string]string) Field {
	return Field{
		Question: question,
		Kind:     FieldStandard,
		Required: required,
		fill: func(value string) error {
			(*sink)[question] = value
			return nil
		},
	}
}

func testJob() *models.JobListing {
	return &models.JobListing{
		ID:      "job-1",
		Title:   "Backend Engineer",
		Company: "Acme",
		URL:     "https://example.com/jobs/1",
	}
}

func TestNavigator_SubmitsWhenAllRequiredFieldsMatched(t *testing.T) {
	filled := map[string]string{}
	driver := &fakeDriver{
		fields: []Field{
			standardField("First name", true, &filled),
			standardField("Phone", true, &filled),
			standardField("How many years of experience with Go?", true, &filled),
		},
		action: ActionSubmit,
	}

	answers := []models.Answer{
		{Question: "First name", Answer: "Ada"},
		{Question: "Phone number", Answer: "555-0100"},
		{Question: "years of experience with Go", Answer: "3"},
	}

	nav := NewNavigator(Options{ResumePath: "resume.pdf"})
	res := nav.Apply(context.Background(), driver, testJob(), answers)

	assert.Equal(t, OutcomeSubmitted, res.Outcome)
	assert.Equal(t, "Ada", filled["First name"])
	assert.Equal(t, "555-0100", filled["Phone"])
	assert.Equal(t, "3", filled["How many years of experience with Go?"])
	assert.Equal(t, []string{"resume.pdf"}, driver.uploads)
	assert.Contains(t, driver.clicked, ActionSubmit)
	assert.True(t, driver.isClosed(), "page must be closed after submission")
}

func TestNavigator_RequiredFieldWithoutAnswerIsTerminalError(t *testing.T) {
	filled := map[string]string{}
	driver := &fakeDriver{
		fields: []Field{
			standardField("Desired salary", true, &filled),
		},
		action: ActionSubmit,
	}

	nav := NewNavigator(Options{ResumePath: "resume.pdf"})
	res := nav.Apply(context.Background(), driver, testJob(), nil)

	assert.Equal(t, OutcomeError, res.Outcome)
	assert.Contains(t, res.Reason, "Desired salary")
	assert.NotContains(t, driver.clicked, ActionSubmit)
	assert.True(t, driver.isClosed())
}

func TestNavigator_PrefilledRequiredFieldIsAccepted(t *testing.T) {
	driver := &fakeDriver{
		fields: []Field{
			{Question: "Email", Kind: FieldStandard, Required: true, Current: "ada@example.com"},
		},
		action: ActionSubmit,
	}

	nav := NewNavigator(Options{ResumePath: "resume.pdf"})
	res := nav.Apply(context.Background(), driver, testJob(), nil)

	assert.Equal(t, OutcomeSubmitted, res.Outcome)
}

func TestNavigator_DryRunStopsBeforeSubmitAndKeepsPageOpen(t *testing.T) {
	driver := &fakeDriver{
		action: ActionSubmit,
	}

	nav := NewNavigator(Options{DryRun: true, ResumePath: "resume.pdf"})
	res := nav.Apply(context.Background(), driver, testJob(), nil)

	assert.Equal(t, OutcomeDryRun, res.Outcome)
	assert.NotContains(t, driver.clicked, ActionSubmit)
	assert.False(t, driver.isClosed(), "dry run must leave the page open for inspection")
}

func TestNavigator_GlobalTimeoutForcesErrorOutcome(t *testing.T) {
	driver := &fakeDriver{
		action:    ActionSubmit,
		openDelay: 500 * time.Millisecond,
	}

	nav := NewNavigator(Options{Timeout: 50 * time.Millisecond, ResumePath: "resume.pdf"})
	res := nav.Apply(context.Background(), driver, testJob(), nil)

	assert.Equal(t, OutcomeError, res.Outcome)
	assert.Contains(t, res.Reason, "timed out")
	assert.True(t, driver.isClosed())
}

func TestNavigator_NoActionableControlIsTerminalError(t *testing.T) {
	driver := &fakeDriver{
		action: ActionNone,
	}

	nav := NewNavigator(Options{ResumePath: "resume.pdf"})
	res := nav.Apply(context.Background(), driver, testJob(), nil)

	assert.Equal(t, OutcomeError, res.Outcome)
	assert.Contains(t, res.Reason, "no actionable control")
}

func TestNavigator_VanishedModalCountsAsSuccess(t *testing.T) {
	//the dialog disappears without ever showing a success indicator
	driver := &fakeDriver{
		action:  ActionNext,
		noModal: true,
	}

	//exhaust the step budget so the terminal phase runs the inference
	nav := NewNavigator(Options{ResumePath: "resume.pdf", MaxSteps: 1})
	res := nav.Apply(context.Background(), driver, testJob(), nil)

	assert.Equal(t, OutcomeSubmitted, res.Outcome)
}

func TestNavigator_ChoiceGroupSelectsMatchingOption(t *testing.T) {
	yes := &fakeOption{group: "Are you authorized to work?", label: "Yes", failing: map[string]bool{}}
	no := &fakeOption{group: "Are you authorized to work?", label: "No", failing: map[string]bool{}}

	driver := &fakeDriver{
		fields: []Field{
			{
				Question: "Are you authorized to work?",
				Kind:     FieldChoiceGroup,
				Required: true,
				Options:  []OptionTarget{yes, no},
			},
		},
		action: ActionSubmit,
	}

	answers := []models.Answer{
		{Question: "Are you authorized to work?", Answer: "Yes"},
	}

	nav := NewNavigator(Options{ResumePath: "resume.pdf"})
	res := nav.Apply(context.Background(), driver, testJob(), answers)

	assert.Equal(t, OutcomeSubmitted, res.Outcome)
	assert.Equal(t, []string{"role"}, yes.attempts)
	assert.Empty(t, no.attempts)
}
