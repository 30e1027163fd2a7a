package apply

import (
	"fmt"
	"log"
	"strings"
)

// OptionTarget is one selectable option of a choice group, as exposed by
// the DOM layer. Each method attempts one interaction mechanism and
// returns an error when that mechanism cannot reach the option.
type OptionTarget interface {
	//Group is the normalized group-level question text
	Group() string

	//Label is the option's own visible text
	Label() string

	//CheckByRole locates the input by accessible name
	CheckByRole() error

	//CheckByFor follows the label's for-attribute to its input
	CheckByFor() error

	//CheckNested clicks an input nested inside the label element
	CheckNested() error

	//ClickLabel clicks the raw label text, the least reliable fallback
	ClickLabel() error

	//CheckByIndex selects the group's n-th option by position
	CheckByIndex(i int) error
}

// Strategy is one way of interacting with a choice option. Applies
// reports whether the strategy is usable for this target at all; Try
// performs the interaction.
type Strategy struct {
	Name    string
	Applies func(t OptionTarget) bool
	Try     func(t OptionTarget) error
}

const genderDefaultOption = "Male"

func always(OptionTarget) bool { return true }

// DefaultStrategies is the ordered interaction chain. The first entry
// whose Applies passes and whose Try succeeds wins.
//
// genderPrimaryOption is a deliberate special case for one known broken
// group layout: the gender identification group renders its inputs
// without usable linkage, so the expected default answer is selected
// positionally. Kept as a named table entry so its fragility stays
// visible and removable.
var DefaultStrategies = []Strategy{
	{
		Name: "genderPrimaryOption",
		Applies: func(t OptionTarget) bool {
			return strings.Contains(foldText(t.Group()), "gender") &&
				MatchOption(genderDefaultOption, t.Label())
		},
		Try: func(t OptionTarget) error { return t.CheckByIndex(0) },
	},
	{
		Name:    "accessibleName",
		Applies: always,
		Try:     func(t OptionTarget) error { return t.CheckByRole() },
	},
	{
		Name:    "forAttribute",
		Applies: always,
		Try:     func(t OptionTarget) error { return t.CheckByFor() },
	},
	{
		Name:    "nestedInput",
		Applies: always,
		Try:     func(t OptionTarget) error { return t.CheckNested() },
	},
	{
		Name:    "labelText",
		Applies: always,
		Try:     func(t OptionTarget) error { return t.ClickLabel() },
	},
}

// SelectOption runs the strategy chain against the target. Failure of
// the whole chain is reported to the caller, who treats it as non-fatal.
func SelectOption(strategies []Strategy, t OptionTarget) error {
	for _, s := range strategies {
		if !s.Applies(t) {
			continue
		}
		if err := s.Try(t); err != nil {
			log.Printf("      ⚠️ Strategy %s failed for option %q: %v", s.Name, t.Label(), err)
			continue
		}
		return nil
	}
	return fmt.Errorf("all interaction strategies failed for option %q in group %q", t.Label(), t.Group())
}
