package apply

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go-easyapply-automation/internal/models"
)

type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeError     Outcome = "error"
	OutcomeDryRun    Outcome = "dry_run_complete"
)

type Result struct {
	Outcome Outcome
	Reason  string
}

type Options struct {
	DryRun          bool
	Timeout         time.Duration
	MaxSteps        int
	ResumePath      string
	CoverLetterPath string
	Strategies      []Strategy
}

// Navigator drives a multi-step Easy Apply dialog to a terminal outcome.
type Navigator struct {
	opts Options
}

func NewNavigator(opts Options) *Navigator {
	if opts.Timeout == 0 {
		opts.Timeout = 45 * time.Second
	}
	if opts.MaxSteps == 0 {
		opts.MaxSteps = 10
	}
	if opts.Strategies == nil {
		opts.Strategies = DefaultStrategies
	}
	return &Navigator{opts: opts}
}

// Apply races the full flow against the global timeout. On timeout the
// in-flight goroutine is abandoned (the browser driver cannot cancel a
// blocked operation mid-flight); the page is still closed here so the
// leak is bounded.
func (n *Navigator) Apply(ctx context.Context, d Driver, job *models.JobListing, answers []models.Answer) Result {
	ctx, cancel := context.WithTimeout(ctx, n.opts.Timeout)
	defer cancel()

	resCh := make(chan Result, 1)
	go func() {
		resCh <- n.run(ctx, d, job, answers)
	}()

	select {
	case res := <-resCh:
		return res
	case <-ctx.Done():
		d.Close()
		return Result{
			Outcome: OutcomeError,
			Reason:  fmt.Sprintf("operation timed out after %s", n.opts.Timeout),
		}
	}
}

func (n *Navigator) run(ctx context.Context, d Driver, job *models.JobListing, answers []models.Answer) (res Result) {
	//the page stays open only for dry-run inspection
	defer func() {
		if res.Outcome == OutcomeError {
			d.CaptureFailure("apply-error")
		}
		if res.Outcome != OutcomeDryRun {
			d.Close()
		}
	}()

	log.Printf("  📝 Applying: %s @ %s", job.Title, job.Company)

	if err := d.Open(ctx, job.URL); err != nil {
		return errorResult("could not open application dialog: %v", err)
	}

	for step := 0; step < n.opts.MaxSteps; step++ {
		//success can appear mid-processing, check before anything else
		if done, _ := d.Submitted(); done {
			return Result{Outcome: OutcomeSubmitted}
		}

		fields, err := d.Fields()
		if err != nil {
			return errorResult("step %d: %v", step+1, err)
		}

		for i := range fields {
			if res, fatal := n.processField(&fields[i], answers); fatal {
				return res
			}
		}

		if err := d.UploadResume(n.opts.ResumePath); err != nil {
			return errorResult("resume upload failed: %v", err)
		}
		if n.opts.CoverLetterPath != "" {
			if err := d.UploadCoverLetter(n.opts.CoverLetterPath); err != nil {
				log.Printf("    ⚠️ Cover letter upload failed: %v", err)
			}
		}

		if done, _ := d.Submitted(); done {
			return Result{Outcome: OutcomeSubmitted}
		}

		action, err := d.NextAction()
		if err != nil {
			return errorResult("step %d: %v", step+1, err)
		}

		switch action {
		case ActionNone:
			//unrecognized dialog shape is not silently retried
			if done, _ := d.Submitted(); done {
				return Result{Outcome: OutcomeSubmitted}
			}
			return errorResult("no actionable control found on step %d", step+1)
		case ActionSubmit:
			return n.finish(d)
		default:
			log.Printf("    ▶️ Step %d done, clicking %s", step+1, action)
			if err := d.Click(action); err != nil {
				return errorResult("failed to click %s on step %d: %v", action, step+1, err)
			}
			d.WaitSettle()
		}
	}

	//max step count reached: one final pass over the terminal checks
	return n.finish(d)
}

// processField handles one question slot. The bool result reports a
// fatal per-field error that ends the whole application.
func (n *Navigator) processField(f *Field, answers []models.Answer) (Result, bool) {
	ans := MatchAnswer(answers, f.Question)

	switch f.Kind {
	case FieldStandard, FieldSelect:
		if ans == nil || strings.TrimSpace(ans.Answer) == "" {
			if f.Required && f.Current == "" {
				return errorResult("no answer for required question: %s", f.Question), true
			}
			return Result{}, false
		}

		//an existing pre-fill is kept as-is
		if f.Current != "" {
			return Result{}, false
		}

		if err := f.Fill(ans.Answer); err != nil {
			if f.Required {
				return errorResult("failed to fill required question %q: %v", f.Question, err), true
			}
			log.Printf("    ⚠️ Could not fill optional question %q: %v", f.Question, err)
		}

	case FieldChoiceGroup:
		if ans == nil || strings.TrimSpace(ans.Answer) == "" {
			return Result{}, false
		}
		for _, opt := range f.Options {
			if !MatchOption(ans.Answer, opt.Label()) {
				continue
			}
			//a failed strategy chain skips the group, it does not abort
			if err := SelectOption(n.opts.Strategies, opt); err != nil {
				log.Printf("    ⚠️ %v", err)
			}
			break
		}
	}

	return Result{}, false
}

// finish runs the terminal phase once a submit control is reachable (or
// the step budget ran out).
func (n *Navigator) finish(d Driver) Result {
	if err := d.UncheckFollowCompany(); err != nil {
		log.Printf("    ℹ️ Follow-company checkbox: %v", err)
	}

	if done, _ := d.Submitted(); done {
		return Result{Outcome: OutcomeSubmitted}
	}

	action, _ := d.NextAction()
	if action != ActionSubmit {
		//last-resort inference: a vanished modal means the flow ended
		if visible, _ := d.ModalVisible(); !visible {
			return Result{Outcome: OutcomeSubmitted}
		}
		return errorResult("no submit control visible at terminal step")
	}

	if n.opts.DryRun {
		log.Println("    🧪 Dry run: stopping before submit, leaving page open")
		return Result{Outcome: OutcomeDryRun}
	}

	if err := d.Click(ActionSubmit); err != nil {
		return errorResult("failed to click submit: %v", err)
	}

	//bounded wait for the success indicator
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if done, _ := d.Submitted(); done {
			return Result{Outcome: OutcomeSubmitted}
		}
		time.Sleep(500 * time.Millisecond)
	}

	//absence of the modal is the secondary proof of submission
	if visible, _ := d.ModalVisible(); !visible {
		return Result{Outcome: OutcomeSubmitted}
	}

	return errorResult("submit clicked but no success indicator appeared")
}

func errorResult(format string, args ...any) Result {
	return Result{
		Outcome: OutcomeError,
		Reason:  fmt.Sprintf(format, args...),
	}
}
