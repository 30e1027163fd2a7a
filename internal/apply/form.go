package apply

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/playwright-community/playwright-go"

	"go-easyapply-automation/utils"
)

type FieldKind int

const (
	FieldStandard FieldKind = iota
	FieldSelect
	FieldChoiceGroup
)

// Field is one question slot discovered in the current dialog step.
// Standard fields carry a fill function; choice groups carry their
// option targets instead.
type Field struct {
	Question string
	Kind     FieldKind
	Required bool
	Current  string
	Options  []OptionTarget
	fill     func(value string) error
}

func (f *Field) Fill(value string) error {
	if f.fill == nil {
		return fmt.Errorf("field %q is not fillable", f.Question)
	}
	return f.fill(value)
}

type Action int

const (
	ActionNone Action = iota
	ActionSubmit
	ActionReview
	ActionNext
)

func (a Action) String() string {
	switch a {
	case ActionSubmit:
		return "Submit"
	case ActionReview:
		return "Review"
	case ActionNext:
		return "Next"
	}
	return "None"
}

// Driver is the capability surface the navigator drives. The production
// implementation wraps a playwright page; tests script a fake.
type Driver interface {
	//Open navigates to the job posting and activates the apply dialog
	Open(ctx context.Context, jobURL string) error

	//Submitted checks the success indicator
	Submitted() (bool, error)

	//ModalVisible reports whether the application dialog is still present
	ModalVisible() (bool, error)

	//Fields enumerates the current step's question slots
	Fields() ([]Field, error)

	//UploadResume fills an empty resume file input, if one exists
	UploadResume(path string) error

	//UploadCoverLetter fills a dedicated cover-letter input when the
	//dialog has one; silently does nothing otherwise
	UploadCoverLetter(path string) error

	//NextAction finds the highest-priority advance control
	NextAction() (Action, error)

	//Click activates an advance control
	Click(a Action) error

	//UncheckFollowCompany clears the follow opt-in, best effort
	UncheckFollowCompany() error

	//WaitSettle waits for the next step's content plus a human-like pause
	WaitSettle()

	//CaptureFailure records a debug artifact for a terminal error
	CaptureFailure(name string)

	//Close releases the page
	Close()
}

// LinkedIn Easy Apply selectors, fallbacks ordered by reliability
const (
	applyButtonSelector = "button.jobs-apply-button, button:has-text(\"Easy Apply\")"
	modalSelector       = "div.jobs-easy-apply-modal, div[data-test-modal], div[role=\"dialog\"]"
	successSelector     = "h2:has-text(\"Your application was sent\"), .artdeco-modal__confirm-dialog-btn:has-text(\"Done\"), .jobs-post-apply"
	submitSelector      = "button[aria-label=\"Submit application\"], button:has-text(\"Submit application\")"
	reviewSelector      = "button[aria-label=\"Review your application\"], button:has-text(\"Review\")"
	nextSelector        = "button[aria-label=\"Continue to next step\"], button:has-text(\"Next\"), button:has-text(\"Continue\")"
	followSelector      = "label:has-text(\"Follow\"):near(input[type=\"checkbox\"]), label[for=\"follow-company-checkbox\"]"
)

type pageDriver struct {
	page       playwright.Page
	screenshot *utils.ScreenShotDebugger
	closed     bool
}

// NewPageDriver wraps an already-authenticated page.
func NewPageDriver(page playwright.Page) Driver {
	return &pageDriver{
		page:       page,
		screenshot: utils.NewScreenShotDebugger(),
	}
}

func (d *pageDriver) Open(ctx context.Context, jobURL string) error {
	if _, err := d.page.Goto(jobURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	}); err != nil {
		return fmt.Errorf("failed to load job page: %w", err)
	}

	utils.RandomDelay(800, 1600)

	applyBtn := d.page.Locator(applyButtonSelector).First()
	if err := applyBtn.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		return fmt.Errorf("apply button not found: %w", err)
	}

	if _, err := d.page.WaitForSelector(modalSelector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		return fmt.Errorf("application dialog did not appear: %w", err)
	}

	return nil
}

func (d *pageDriver) Submitted() (bool, error) {
	count, err := d.page.Locator(successSelector).Count()
	if err != nil {
		//navigation can invalidate the query mid-check; treat as not-yet
		return false, nil
	}
	return count > 0, nil
}

func (d *pageDriver) ModalVisible() (bool, error) {
	visible, err := d.page.Locator(modalSelector).First().IsVisible()
	if err != nil {
		return false, nil
	}
	return visible, nil
}

func (d *pageDriver) Fields() ([]Field, error) {
	modal := d.page.Locator(modalSelector).First()
	labels, err := modal.Locator("label").All()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate labels: %w", err)
	}

	var ordered []*Field
	groups := make(map[string]*Field)

	for _, label := range labels {
		raw, err := label.TextContent()
		if err != nil {
			continue
		}

		question := NormalizeQuestionText(raw)
		if question == "" {
			continue
		}
		required := strings.Contains(raw, "Required") || strings.Contains(raw, "*")

		input, tag, inputType := d.resolveInput(label)
		if input != nil && inputType != "radio" && inputType != "checkbox" {
			f := d.standardField(question, required, input, tag)
			ordered = append(ordered, &f)
			continue
		}

		//no directly associated input: choice-group candidate
		groupQuestion := d.groupQuestion(label, question)

		g, ok := groups[groupQuestion]
		if !ok {
			g = &Field{
				Question: groupQuestion,
				Kind:     FieldChoiceGroup,
				Required: required,
			}
			groups[groupQuestion] = g
			ordered = append(ordered, g)
		}
		g.Options = append(g.Options, &pwOption{
			page:  d.page,
			label: label,
			group: groupQuestion,
			text:  question,
			index: len(g.Options),
		})
	}

	fields := make([]Field, 0, len(ordered))
	for _, f := range ordered {
		fields = append(fields, *f)
	}
	return fields, nil
}

// resolveInput finds the input directly associated with a label, either
// by for-id reference or as a following sibling.
func (d *pageDriver) resolveInput(label playwright.Locator) (playwright.Locator, string, string) {
	if forID, err := label.GetAttribute("for"); err == nil && forID != "" {
		input := d.page.Locator(fmt.Sprintf("[id=%q]", forID)).First()
		if count, _ := input.Count(); count > 0 {
			return input, tagName(input), attrOf(input, "type")
		}
	}

	sibling := label.Locator("xpath=following-sibling::*[self::input or self::textarea or self::select][1]").First()
	if count, _ := sibling.Count(); count > 0 {
		return sibling, tagName(sibling), attrOf(sibling, "type")
	}

	return nil, "", ""
}

func (d *pageDriver) standardField(question string, required bool, input playwright.Locator, tag string) Field {
	kind := FieldStandard
	if tag == "select" {
		kind = FieldSelect
	}

	current := ""
	if tag != "select" {
		current, _ = input.InputValue(playwright.LocatorInputValueOptions{
			Timeout: playwright.Float(500),
		})
	}

	f := Field{
		Question: question,
		Kind:     kind,
		Required: required,
		Current:  strings.TrimSpace(current),
	}

	if kind == FieldSelect {
		f.fill = func(value string) error {
			_, err := input.SelectOption(playwright.SelectOptionValues{
				Labels: &[]string{value},
			})
			if err != nil {
				return fmt.Errorf("no matching option %q: %w", value, err)
			}
			return nil
		}
	} else {
		f.fill = func(value string) error {
			return input.Fill(value)
		}
	}
	return f
}

// groupQuestion inherits the group-level question from an ancestor
// fieldset/legend, falling back to the nearest preceding heading. The
// label's own text stays the option text.
func (d *pageDriver) groupQuestion(label playwright.Locator, fallback string) string {
	legend := label.Locator("xpath=ancestor::fieldset[1]//legend").First()
	if count, _ := legend.Count(); count > 0 {
		if text, err := legend.TextContent(); err == nil {
			if q := NormalizeQuestionText(text); q != "" {
				return q
			}
		}
	}

	heading := label.Locator("xpath=preceding::*[self::h3 or self::strong or self::span[@class=\"fb-form-element-label\"]][1]").First()
	if count, _ := heading.Count(); count > 0 {
		if text, err := heading.TextContent(); err == nil {
			if q := NormalizeQuestionText(text); q != "" {
				return q
			}
		}
	}

	return fallback
}

func (d *pageDriver) UploadResume(path string) error {
	return d.uploadFile(path, false)
}

func (d *pageDriver) UploadCoverLetter(path string) error {
	return d.uploadFile(path, true)
}

func (d *pageDriver) uploadFile(path string, coverLetter bool) error {
	inputs, err := d.page.Locator(modalSelector).First().Locator("input[type=\"file\"]").All()
	if err != nil {
		return fmt.Errorf("failed to enumerate file inputs: %w", err)
	}

	for _, input := range inputs {
		isCover := d.isCoverLetterInput(input)
		if isCover != coverLetter {
			continue
		}

		//upload only when the slot is still empty
		if val, _ := input.InputValue(playwright.LocatorInputValueOptions{
			Timeout: playwright.Float(500),
		}); strings.TrimSpace(val) != "" {
			return nil
		}

		if err := input.SetInputFiles(path); err != nil {
			return fmt.Errorf("file upload failed: %w", err)
		}
		utils.RandomDelay(1000, 2000)
		return nil
	}

	if coverLetter {
		//no dedicated cover letter field in this dialog
		return nil
	}
	return nil
}

func (d *pageDriver) isCoverLetterInput(input playwright.Locator) bool {
	container := input.Locator("xpath=ancestor::div[2]").First()
	text, err := container.TextContent()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(text), "cover letter")
}

// NextAction checks Submit, then Review, then Next, in that order.
func (d *pageDriver) NextAction() (Action, error) {
	checks := []struct {
		action   Action
		selector string
	}{
		{ActionSubmit, submitSelector},
		{ActionReview, reviewSelector},
		{ActionNext, nextSelector},
	}

	for _, c := range checks {
		if visible, _ := d.page.Locator(c.selector).First().IsVisible(); visible {
			return c.action, nil
		}
	}
	return ActionNone, nil
}

func (d *pageDriver) Click(a Action) error {
	var selector string
	switch a {
	case ActionSubmit:
		selector = submitSelector
	case ActionReview:
		selector = reviewSelector
	case ActionNext:
		selector = nextSelector
	default:
		return fmt.Errorf("no clickable control for action %s", a)
	}

	return d.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(5000),
	})
}

func (d *pageDriver) UncheckFollowCompany() error {
	followLabel := d.page.Locator(followSelector).First()
	visible, err := followLabel.IsVisible()
	if err != nil || !visible {
		return fmt.Errorf("follow checkbox not found")
	}

	checkbox := d.page.Locator("input#follow-company-checkbox, input[type=\"checkbox\"]:near(label:has-text(\"Follow\"))").First()
	if checked, _ := checkbox.IsChecked(); checked {
		if err := checkbox.Uncheck(playwright.LocatorUncheckOptions{
			Timeout: playwright.Float(2000),
		}); err != nil {
			//fall back to clicking the label itself
			return followLabel.Click(playwright.LocatorClickOptions{
				Timeout: playwright.Float(2000),
			})
		}
	}
	return nil
}

func (d *pageDriver) WaitSettle() {
	d.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(5000),
	})
	utils.RandomDelay(600, 1400)
}

func (d *pageDriver) CaptureFailure(name string) {
	d.screenshot.CaptureAndLog(d.page, name, "🚨 Apply flow failure: "+name)
}

func (d *pageDriver) Close() {
	if d.closed {
		return
	}
	d.closed = true
	if err := d.page.Close(); err != nil {
		log.Printf("⚠️ Failed to close page: %v", err)
	}
}

func tagName(l playwright.Locator) string {
	result, err := l.Evaluate("el => el.tagName.toLowerCase()", nil)
	if err != nil {
		return ""
	}
	if s, ok := result.(string); ok {
		return s
	}
	return ""
}

func attrOf(l playwright.Locator, name string) string {
	val, err := l.GetAttribute(name)
	if err != nil {
		return ""
	}
	return val
}

// pwOption implements OptionTarget over the live page.
type pwOption struct {
	page  playwright.Page
	label playwright.Locator
	group string
	text  string
	index int
}

func (o *pwOption) Group() string { return o.group }
func (o *pwOption) Label() string { return o.text }

func (o *pwOption) CheckByRole() error {
	input := o.page.GetByRole(*playwright.AriaRoleRadio, playwright.PageGetByRoleOptions{
		Name: o.text,
	}).Or(o.page.GetByRole(*playwright.AriaRoleCheckbox, playwright.PageGetByRoleOptions{
		Name: o.text,
	})).First()
	return input.Check(playwright.LocatorCheckOptions{
		Timeout: playwright.Float(2000),
	})
}

func (o *pwOption) CheckByFor() error {
	forID, err := o.label.GetAttribute("for")
	if err != nil || forID == "" {
		return fmt.Errorf("label has no for attribute")
	}
	return o.page.Locator(fmt.Sprintf("[id=%q]", forID)).First().Check(playwright.LocatorCheckOptions{
		Timeout: playwright.Float(2000),
	})
}

func (o *pwOption) CheckNested() error {
	nested := o.label.Locator("input[type=\"radio\"], input[type=\"checkbox\"]").First()
	if count, _ := nested.Count(); count == 0 {
		return fmt.Errorf("no input nested in label")
	}
	return nested.Check(playwright.LocatorCheckOptions{
		Timeout: playwright.Float(2000),
	})
}

func (o *pwOption) ClickLabel() error {
	return o.label.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(2000),
		Force:   playwright.Bool(true),
	})
}

func (o *pwOption) CheckByIndex(i int) error {
	group := o.label.Locator("xpath=ancestor::fieldset[1]").First()
	if count, _ := group.Count(); count == 0 {
		return fmt.Errorf("no ancestor group element")
	}
	inputs := group.Locator("input[type=\"radio\"], input[type=\"checkbox\"]")
	return inputs.Nth(i).Check(playwright.LocatorCheckOptions{
		Timeout: playwright.Float(2000),
	})
}
