// Package phase maps a session's running card count onto the fixed sequence
// of therapeutic phases and decides how many cards each generation round asks for.
package phase

import (
	"errors"
	"fmt"
)

// Name identifies a phase.
type Name string

// Phase names, in session order.
const (
	Screening Name = "screening"
	Triggers  Name = "triggers"
	Cognition Name = "cognition"
	Behavior  Name = "behavior"
	Resources Name = "resources"
	Action    Name = "action"
)

// TerminalRoundSize is the number of cards requested per round once the
// open-ended terminal phase is reached.
const TerminalRoundSize = 8

const (
	insightSentences      = "1-2"
	finalSummarySentences = "3"
	summaryCategoryPrefix = "summary: "
)

// Range assigns a contiguous block of card counts to a phase.
type Range struct {
	Name Name

	// Start is the first card count of the range.
	Start int

	// End is the last card count of the range, inclusive. A negative End
	// marks the open-ended terminal range.
	End int

	// Insight closes the range with a summary card.
	Insight bool

	// Description is the short goal of the phase shown to the model.
	Description string

	// Instructions is the phase-specific guidance injected into the prompt.
	Instructions string
}

// Open reports whether the range has no upper bound.
func (r Range) Open() bool {
	return r.End < 0
}

func (r Range) contains(count int) bool {
	return count >= r.Start && (r.Open() || count <= r.End)
}

// Phase is the resolved descriptor for a single generation round.
type Phase struct {
	Name         Name
	Stage        int
	Description  string
	Instructions string

	// QuestionBudget is the number of plain question cards to request.
	QuestionBudget int

	// InsightBudget is 1 when the round ends with a summary card, else 0.
	InsightBudget int

	// FinalSummary is set on the first round of the terminal phase, where
	// the insight card becomes a longer closing summary.
	FinalSummary bool

	Start int
	End   int
}

// InsightCategory is the category tag carried by this phase's insight card.
func (p Phase) InsightCategory() string {
	return summaryCategoryPrefix + string(p.Name)
}

// InsightSentences is the requested length of the insight body.
func (p Phase) InsightSentences() string {
	if p.FinalSummary {
		return finalSummarySentences
	}
	return insightSentences
}

// TotalBudget is the number of cards requested this round.
func (p Phase) TotalBudget() int {
	return p.QuestionBudget + p.InsightBudget
}

// Table is an ordered, exhaustive partition of the non-negative integers
// into phase ranges. It is immutable once built.
type Table struct {
	ranges []Range
}

// NewTable validates ranges and builds a Table. Ranges must start at 0, be
// contiguous, and end with exactly one open range.
func NewTable(ranges []Range) (*Table, error) {
	if len(ranges) == 0 {
		return nil, errors.New("phase table is empty")
	}

	next := 0
	for i, r := range ranges {
		if r.Name == "" {
			return nil, fmt.Errorf("range %d: name is required", i)
		}
		if r.Start != next {
			return nil, fmt.Errorf("range %d (%s): starts at %d, want %d", i, r.Name, r.Start, next)
		}
		last := i == len(ranges)-1
		if r.Open() {
			if !last {
				return nil, fmt.Errorf("range %d (%s): only the last range may be open", i, r.Name)
			}
			break
		}
		if last {
			return nil, fmt.Errorf("range %d (%s): last range must be open", i, r.Name)
		}
		if r.End < r.Start {
			return nil, fmt.Errorf("range %d (%s): ends at %d before it starts at %d", i, r.Name, r.End, r.Start)
		}
		next = r.End + 1
	}

	return &Table{ranges: append([]Range(nil), ranges...)}, nil
}

// Ranges returns a copy of the table's ranges.
func (t *Table) Ranges() []Range {
	return append([]Range(nil), t.ranges...)
}

// Resolve returns the phase for the given card count. Negative counts are
// treated as 0, so Resolve always yields a phase.
func (t *Table) Resolve(count int) Phase {
	if count < 0 {
		count = 0
	}

	idx := len(t.ranges) - 1
	for i, r := range t.ranges {
		if r.contains(count) {
			idx = i
			break
		}
	}
	r := t.ranges[idx]

	p := Phase{
		Name:         r.Name,
		Stage:        idx + 1,
		Description:  r.Description,
		Instructions: r.Instructions,
		Start:        r.Start,
		End:          r.End,
	}

	slots := TerminalRoundSize
	if !r.Open() {
		slots = r.End - count + 1
	}
	if r.Insight {
		p.InsightBudget = 1
	}
	if r.Open() && count < r.Start+TerminalRoundSize {
		p.InsightBudget = 1
		p.FinalSummary = true
	}
	p.QuestionBudget = slots - p.InsightBudget
	return p
}
