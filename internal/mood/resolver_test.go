package mood

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	nan := float32(math.NaN())
	r := NewResolver(Happy)

	tests := []struct {
		name   string
		scores []float32
		table  Table
		want   Label
	}{
		{
			name:   "first maximum wins on tie",
			scores: []float32{0.2, 0.9, 0.9},
			table:  Table{Angry, Sad, Fear},
			want:   Sad,
		},
		{
			name:   "single maximum",
			scores: []float32{0.1, 0.2, 0.05, 0.6, 0.05, 0, 0},
			table:  ImageTable,
			want:   Happy,
		},
		{
			name:   "empty scores use default",
			scores: nil,
			table:  ImageTable,
			want:   Happy,
		},
		{
			name:   "all NaN use default",
			scores: []float32{nan, nan},
			table:  AudioTable,
			want:   Happy,
		},
		{
			name:   "NaN is skipped",
			scores: []float32{nan, 0.4},
			table:  AudioTable,
			want:   Sad,
		},
		{
			name:   "winner outside table uses default",
			scores: []float32{0.1, 0.2, 0.7},
			table:  AudioTable,
			want:   Happy,
		},
		{
			name:   "negative scores",
			scores: []float32{-3, -1, -2},
			table:  Table{Angry, Neutral, Fear},
			want:   Neutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.scores, tt.table)
			if got != tt.want {
				t.Errorf("Resolve(%v) = %q, want %q", tt.scores, got, tt.want)
			}
		})
	}
}

func TestResolve_ConfiguredDefault(t *testing.T) {
	r := NewResolver(Neutral)
	if got := r.Resolve([]float32{}, ImageTable); got != Neutral {
		t.Errorf("Resolve([]) = %q, want %q", got, Neutral)
	}
	if got := r.ResolveText("ecstatic", ImageTable); got != Neutral {
		t.Errorf("ResolveText(unknown) = %q, want %q", got, Neutral)
	}
}

func TestNewResolver_InvalidFallback(t *testing.T) {
	r := NewResolver(Label("bogus"))
	if r.Default() != Happy {
		t.Errorf("Default() = %q, want %q", r.Default(), Happy)
	}
}

func TestResolveText(t *testing.T) {
	r := NewResolver(Happy)

	tests := []struct {
		name  string
		input string
		table Table
		want  Label
	}{
		{"lowercase", "sad", AudioTable, Sad},
		{"uppercase", "SAD", AudioTable, Sad},
		{"whitespace", "  Sad\n", AudioTable, Sad},
		{"happy", "Happy", AudioTable, Happy},
		{"in image table", "surprise", ImageTable, Surprise},
		{"not in audio table", "surprise", AudioTable, Happy},
		{"angry not in audio table", "Angry", AudioTable, Happy},
		{"unknown", "melancholy", ImageTable, Happy},
		{"empty", "", AudioTable, Happy},
		{"empty table", "sad", nil, Happy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.ResolveText(tt.input, tt.table); got != tt.want {
				t.Errorf("ResolveText(%q, %v) = %q, want %q", tt.input, tt.table, got, tt.want)
			}
		})
	}
}

func TestResolveIndex(t *testing.T) {
	r := NewResolver(Sad)
	if got := r.ResolveIndex(3, ImageTable); got != Happy {
		t.Errorf("ResolveIndex(3) = %q, want %q", got, Happy)
	}
	if got := r.ResolveIndex(-1, ImageTable); got != Sad {
		t.Errorf("ResolveIndex(-1) = %q, want %q", got, Sad)
	}
	if got := r.ResolveIndex(7, ImageTable); got != Sad {
		t.Errorf("ResolveIndex(7) = %q, want %q", got, Sad)
	}
}

func TestTables(t *testing.T) {
	wantImage := []Label{Angry, Disgust, Fear, Happy, Sad, Surprise, Neutral}
	for i, l := range wantImage {
		if ImageTable[i] != l {
			t.Errorf("ImageTable[%d] = %q, want %q", i, ImageTable[i], l)
		}
	}
	if AudioTable.Index(Happy) != 0 || AudioTable.Index(Sad) != 1 {
		t.Errorf("AudioTable = %v, want [happy sad]", AudioTable)
	}
	if AudioTable.Index(Fear) != -1 {
		t.Errorf("AudioTable.Index(fear) should be -1")
	}
}

func TestDisplay(t *testing.T) {
	if got := Surprise.Display(); got != "Surprise" {
		t.Errorf("Display() = %q, want Surprise", got)
	}
}

func TestDecision(t *testing.T) {
	d := NewDecision(Sad, ModalityAudio, WithConfidence(0.75))

	if d.IsZero() {
		t.Fatal("expected non-zero decision")
	}
	if c, ok := d.Confidence(); !ok || c != 0.75 {
		t.Errorf("Confidence() = %v, %v; want 0.75, true", c, ok)
	}

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"label":"sad"`, `"display":"Sad"`, `"confidence":0.75`, `"source":"audio"`} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON %s missing %s", s, want)
		}
	}

	noConf := NewDecision(Happy, ModalityText)
	if _, ok := noConf.Confidence(); ok {
		t.Error("expected no confidence")
	}
	b, _ = json.Marshal(noConf)
	if strings.Contains(string(b), "confidence") {
		t.Errorf("JSON %s should omit confidence", b)
	}
	if noConf.ID() == d.ID() {
		t.Error("decisions should have distinct IDs")
	}
}
