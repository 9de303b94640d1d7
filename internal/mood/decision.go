package mood

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Decision is a resolved mood ready for the UI layer. Its fields are
// unexported so a Decision cannot change after NewDecision returns it.
type Decision struct {
	id            uuid.UUID
	label         Label
	confidence    float32
	hasConfidence bool
	source        Modality
	createdAt     time.Time
}

// DecisionOption configures a Decision at construction.
type DecisionOption func(*Decision)

// WithConfidence attaches the winning class score.
func WithConfidence(c float32) DecisionOption {
	return func(d *Decision) {
		d.confidence = c
		d.hasConfidence = true
	}
}

// WithCreatedAt overrides the creation timestamp.
func WithCreatedAt(t time.Time) DecisionOption {
	return func(d *Decision) {
		d.createdAt = t
	}
}

// NewDecision creates a Decision with a fresh ID.
func NewDecision(label Label, source Modality, opts ...DecisionOption) Decision {
	d := Decision{
		id:        uuid.New(),
		label:     label,
		source:    source,
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func (d Decision) ID() uuid.UUID        { return d.id }
func (d Decision) Label() Label         { return d.label }
func (d Decision) Source() Modality     { return d.source }
func (d Decision) CreatedAt() time.Time { return d.createdAt }

// Confidence returns the winning score, if the classifier supplied one.
func (d Decision) Confidence() (float32, bool) {
	return d.confidence, d.hasConfidence
}

// IsZero reports whether d was never constructed.
func (d Decision) IsZero() bool {
	return d.id == uuid.Nil
}

type decisionJSON struct {
	ID         uuid.UUID `json:"id"`
	Label      Label     `json:"label"`
	Display    string    `json:"display"`
	Confidence *float32  `json:"confidence,omitempty"`
	Source     Modality  `json:"source"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MarshalJSON implements json.Marshaler.
func (d Decision) MarshalJSON() ([]byte, error) {
	out := decisionJSON{
		ID:        d.id,
		Label:     d.label,
		Display:   d.label.Display(),
		Source:    d.source,
		CreatedAt: d.createdAt,
	}
	if d.hasConfidence {
		c := d.confidence
		out.Confidence = &c
	}
	return json.Marshal(out)
}
