package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrMalformedOutput is returned when backend text cannot be turned into a
// valid card batch.
var ErrMalformedOutput = errors.New("malformed card output")

// minFenceTicks is the shortest run of backticks recognized as a fence.
const minFenceTicks = 3

// rawCard mirrors the loosely typed card shape produced by the backend.
// Pointers distinguish absent fields from empty ones. Backend ids are not read.
type rawCard struct {
	Type     *string `json:"type"`
	Question *string `json:"question"`
	Category *string `json:"category"`
	Insight  *string `json:"insight"`
}

type rawBatch struct {
	Cards *[]rawCard `json:"cards"`
}

// StripFences trims surrounding whitespace and removes markdown code fences
// wrapping the text, including nested ones, returning the innermost interior.
// Text without a complete fence is returned trimmed but otherwise untouched.
// StripFences(StripFences(s)) == StripFences(s).
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	for {
		inner := stripFence(text)
		if inner == text {
			return text
		}
		text = inner
	}
}

// stripFence removes one enclosing fence from trimmed text.
func stripFence(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}

	first := strings.TrimSpace(lines[0])
	last := strings.TrimSpace(lines[len(lines)-1])
	ticks := leadingTicks(first)
	if ticks < minFenceTicks || !isClosingFence(last, ticks) {
		return text
	}

	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}

// leadingTicks counts the backticks that open line. A fence may be followed
// by a language tag but the tag itself must not contain backticks.
func leadingTicks(line string) int {
	n := 0
	for n < len(line) && line[n] == '`' {
		n++
	}
	if strings.Contains(line[n:], "`") {
		return 0
	}
	return n
}

// isClosingFence reports whether line is a bare run of at least open backticks.
func isClosingFence(line string, open int) bool {
	if len(line) < open {
		return false
	}
	return strings.Trim(line, "`") == ""
}

// Parse repairs raw backend text, decodes the card batch, validates every
// card and assigns ids idOffset, idOffset+1, ... in output order. Ids sent
// by the backend are ignored.
func Parse(raw string, idOffset int) ([]Card, error) {
	text := StripFences(raw)

	var batch rawBatch
	if err := json.Unmarshal([]byte(text), &batch); err != nil {
		return nil, fmt.Errorf("%w: decoding json: %w", ErrMalformedOutput, err)
	}
	if batch.Cards == nil {
		return nil, fmt.Errorf("%w: missing cards field", ErrMalformedOutput)
	}

	out := make([]Card, 0, len(*batch.Cards))
	for i, rc := range *batch.Cards {
		card, err := rc.normalize()
		if err != nil {
			return nil, fmt.Errorf("%w: card %d: %w", ErrMalformedOutput, i, err)
		}
		out = append(out, card)
	}

	out, err := placeInsightLast(out)
	if err != nil {
		return nil, err
	}

	Renumber(out, idOffset)
	return out, nil
}

// normalize applies defaults and checks required fields.
func (rc rawCard) normalize() (Card, error) {
	card := Card{Type: TypeQuestion}
	if rc.Type != nil && strings.TrimSpace(*rc.Type) != "" {
		card.Type = Type(strings.ToLower(strings.TrimSpace(*rc.Type)))
	}
	if rc.Question != nil {
		card.Question = strings.TrimSpace(*rc.Question)
	}
	if rc.Category != nil {
		card.Category = strings.TrimSpace(*rc.Category)
	}
	if card.Type == TypeInsight && rc.Insight != nil {
		card.Insight = strings.TrimSpace(*rc.Insight)
	}
	return card, card.validate()
}

// validate checks the fields every card must carry.
func (c Card) validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("unknown card type %q", c.Type)
	}
	if c.Question == "" {
		return errors.New("question is required")
	}
	if c.Category == "" {
		return errors.New("category is required")
	}
	if c.Type == TypeInsight && c.Insight == "" {
		return errors.New("insight text is required for insight cards")
	}
	return nil
}

// placeInsightLast enforces at most one insight card per batch, placed last.
// A single misplaced insight is moved to the end; more than one rejects the batch.
func placeInsightLast(batch []Card) ([]Card, error) {
	pos := -1
	for i, c := range batch {
		if c.Type != TypeInsight {
			continue
		}
		if pos >= 0 {
			return nil, fmt.Errorf("%w: more than one insight card in batch", ErrMalformedOutput)
		}
		pos = i
	}
	if pos < 0 || pos == len(batch)-1 {
		return batch, nil
	}

	slog.Warn("cards: moving misplaced insight card to end of batch", "position", pos, "batch_size", len(batch))
	insight := batch[pos]
	reordered := make([]Card, 0, len(batch))
	reordered = append(reordered, batch[:pos]...)
	reordered = append(reordered, batch[pos+1:]...)
	return append(reordered, insight), nil
}

// Renumber assigns sequential ids starting at offset, in slice order.
func Renumber(batch []Card, offset int) {
	for i := range batch {
		batch[i].ID = offset + i
	}
}

// ValidateDeck checks cards written back by a client. Unlike Parse it keeps
// the client's ids and ordering, and an empty type is accepted as a question.
func ValidateDeck(deck []Card) error {
	for i, c := range deck {
		if c.Type != "" && !c.Type.Valid() {
			return fmt.Errorf("card %d: unknown card type %q", i, c.Type)
		}
	}
	return nil
}
