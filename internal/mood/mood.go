// Package mood defines the closed set of moods, the ordered label tables
// that classifiers index into, and the resolution of classifier output into
// a MoodDecision.
package mood

import (
	"strings"
)

// Label is a canonical mood value.
type Label string

// Canonical moods.
const (
	Happy    Label = "happy"
	Sad      Label = "sad"
	Neutral  Label = "neutral"
	Angry    Label = "angry"
	Disgust  Label = "disgust"
	Fear     Label = "fear"
	Surprise Label = "surprise"
)

// All lists every canonical mood.
var All = []Label{Happy, Sad, Neutral, Angry, Disgust, Fear, Surprise}

// String returns the lowercase wire form of the label.
func (l Label) String() string {
	return string(l)
}

// Display returns the label as shown to users ("Happy").
func (l Label) Display() string {
	if l == "" {
		return ""
	}
	return strings.ToUpper(string(l[:1])) + string(l[1:])
}

// Valid reports whether l is one of the canonical moods.
func (l Label) Valid() bool {
	for _, m := range All {
		if l == m {
			return true
		}
	}
	return false
}

// Parse matches s against the canonical moods, ignoring case and
// surrounding whitespace.
func Parse(s string) (Label, bool) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", false
	}
	return l, true
}

// Table is the ordered label sequence a model's output indexes into.
type Table []Label

// ImageTable is the FER-2013 class order used by the face image model.
var ImageTable = Table{Angry, Disgust, Fear, Happy, Sad, Surprise, Neutral}

// AudioTable is the class order used by the voice feature model.
var AudioTable = Table{Happy, Sad}

// At returns the label at index i.
func (t Table) At(i int) (Label, bool) {
	if i < 0 || i >= len(t) {
		return "", false
	}
	return t[i], true
}

// Index returns the position of l in the table, or -1.
func (t Table) Index(l Label) int {
	for i, m := range t {
		if m == l {
			return i
		}
	}
	return -1
}

// Modality is the kind of input a decision was inferred from.
type Modality string

// Input modalities.
const (
	ModalityImage Modality = "image"
	ModalityAudio Modality = "audio"
	ModalityText  Modality = "text"
)
