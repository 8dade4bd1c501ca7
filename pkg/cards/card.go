// Package cards defines the card and answer types shared by the generator
// and the session store, and parses card batches returned by the
// generation backend.
package cards

// Type distinguishes plain yes/no questions from summary insight cards.
type Type string

const (
	// TypeQuestion is a yes/no question card.
	TypeQuestion Type = "question"

	// TypeInsight is a supportive summary card closing a phase.
	TypeInsight Type = "insight"
)

// Valid reports whether t is a known card type.
func (t Type) Valid() bool {
	return t == TypeQuestion || t == TypeInsight
}

// Card is one unit of interaction shown to the end user.
type Card struct {
	// ID is assigned by the generator as current_count + position and is
	// unique within a session's deck.
	ID int `json:"id"`

	// Type is question or insight.
	Type Type `json:"type"`

	// Question is the display text. For insight cards it is a short headline.
	Question string `json:"question"`

	// Category is the phase tag, or "summary: <phase>" for insight cards.
	Category string `json:"category"`

	// Insight holds the body text of an insight card.
	Insight string `json:"insight,omitempty"`
}

// AnswerRecord is a single answered card. Answer is true for a right swipe (yes).
type AnswerRecord struct {
	Question string `json:"question"`
	Answer   bool   `json:"answer"`
}

// AnswerLabel renders an answer the way it appears in generation prompts.
func AnswerLabel(answer bool) string {
	if answer {
		return "ДА"
	}
	return "НЕТ"
}
