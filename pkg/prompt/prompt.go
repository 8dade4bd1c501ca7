// Package prompt renders the generation request for a round of cards from
// the resolved phase and the session's answer history.
package prompt

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/swipetherapy/swipe-therapy/pkg/cards"
	"github.com/swipetherapy/swipe-therapy/pkg/phase"
)

//go:embed templates/cards.tmpl
var cardsTemplate string

// Request is a rendered generation request.
type Request struct {
	// Text is the full instruction block sent to the backend.
	Text string

	Phase          phase.Phase
	CurrentCount   int
	QuestionBudget int
	InsightBudget  int
}

// stageLine describes one phase in the session overview.
type stageLine struct {
	Stage       int
	Span        string
	Name        phase.Name
	Description string
}

// templateData is the value the cards template executes against.
type templateData struct {
	Stages       []stageLine
	Phase        phase.Phase
	History      []cards.AnswerRecord
	CurrentCount int
	FirstNumber  int
	LastNumber   int
	LastID       int
}

// Builder renders requests against a fixed phase table.
type Builder struct {
	tmpl   *template.Template
	stages []stageLine
}

// NewBuilder parses the embedded template and precomputes the session overview.
func NewBuilder(table *phase.Table) (*Builder, error) {
	tmpl, err := template.New("cards").
		Funcs(template.FuncMap{"answer": cards.AnswerLabel}).
		Parse(cardsTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing cards template: %w", err)
	}

	ranges := table.Ranges()
	stages := make([]stageLine, 0, len(ranges))
	for i, r := range ranges {
		stages = append(stages, stageLine{
			Stage:       i + 1,
			Span:        cardSpan(r),
			Name:        r.Name,
			Description: r.Description,
		})
	}

	return &Builder{tmpl: tmpl, stages: stages}, nil
}

// Build renders the request for one round. The transcript section is
// included only when history is non-empty.
func (b *Builder) Build(p phase.Phase, currentCount int, history []cards.AnswerRecord) (Request, error) {
	total := p.TotalBudget()
	data := templateData{
		Stages:       b.stages,
		Phase:        p,
		History:      history,
		CurrentCount: currentCount,
		FirstNumber:  currentCount + 1,
		LastNumber:   currentCount + total,
		LastID:       currentCount + max(total-1, 0),
	}

	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, data); err != nil {
		return Request{}, fmt.Errorf("rendering cards prompt: %w", err)
	}

	return Request{
		Text:           sb.String(),
		Phase:          p,
		CurrentCount:   currentCount,
		QuestionBudget: p.QuestionBudget,
		InsightBudget:  p.InsightBudget,
	}, nil
}

// cardSpan renders a range as 1-based card numbers, e.g. "карточки 7-12".
func cardSpan(r phase.Range) string {
	if r.Open() {
		return "карточки " + strconv.Itoa(r.Start+1) + "+"
	}
	return "карточки " + strconv.Itoa(r.Start+1) + "-" + strconv.Itoa(r.End+1)
}
