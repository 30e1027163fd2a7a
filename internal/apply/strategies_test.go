package apply

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeOption scripts which interaction mechanisms succeed and records
// the order they were attempted in.
type fakeOption struct {
	group    string
	label    string
	failing  map[string]bool
	attempts []string
	indexed  []int
}

func (o *fakeOption) Group() string { return o.group }
func (o *fakeOption) Label() string { return o.label }

func (o *fakeOption) try(name string) error {
	o.attempts = append(o.attempts, name)
	if o.failing[name] {
		return fmt.Errorf("%s unavailable", name)
	}
	return nil
}

func (o *fakeOption) CheckByRole() error { return o.try("role") }
func (o *fakeOption) CheckByFor() error  { return o.try("for") }
func (o *fakeOption) CheckNested() error { return o.try("nested") }
func (o *fakeOption) ClickLabel() error  { return o.try("label") }

func (o *fakeOption) CheckByIndex(i int) error {
	o.indexed = append(o.indexed, i)
	return o.try("index")
}

func TestSelectOption_FirstStrategyWins(t *testing.T) {
	opt := &fakeOption{group: "Work authorization", label: "Yes", failing: map[string]bool{}}

	err := SelectOption(DefaultStrategies, opt)

	assert.NoError(t, err)
	assert.Equal(t, []string{"role"}, opt.attempts)
}

func TestSelectOption_FallbackOrder(t *testing.T) {
	opt := &fakeOption{
		group: "Work authorization",
		label: "Yes",
		failing: map[string]bool{
			"role":   true,
			"for":    true,
			"nested": true,
		},
	}

	err := SelectOption(DefaultStrategies, opt)

	assert.NoError(t, err)
	assert.Equal(t, []string{"role", "for", "nested", "label"}, opt.attempts)
}

func TestSelectOption_AllFail(t *testing.T) {
	opt := &fakeOption{
		group: "Work authorization",
		label: "Yes",
		failing: map[string]bool{
			"role": true, "for": true, "nested": true, "label": true,
		},
	}

	err := SelectOption(DefaultStrategies, opt)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "all interaction strategies failed")
}

func TestSelectOption_GenderOverride(t *testing.T) {
	opt := &fakeOption{
		group:   "Gender identification",
		label:   "Male",
		failing: map[string]bool{},
	}

	err := SelectOption(DefaultStrategies, opt)

	assert.NoError(t, err)
	assert.Equal(t, []string{"index"}, opt.attempts)
	assert.Equal(t, []int{0}, opt.indexed)
}

func TestSelectOption_GenderOverrideOnlyForDefaultAnswer(t *testing.T) {
	opt := &fakeOption{
		group:   "Gender identification",
		label:   "Prefer not to say",
		failing: map[string]bool{},
	}

	err := SelectOption(DefaultStrategies, opt)

	assert.NoError(t, err)
	//positional override must not trigger for other options
	assert.Equal(t, []string{"role"}, opt.attempts)
	assert.Empty(t, opt.indexed)
}
