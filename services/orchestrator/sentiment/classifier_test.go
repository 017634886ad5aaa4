package sentiment

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testModel is a tiny hand-built linear model: "good"/"love" vote positive,
// "bad"/"broken" vote negative, "ok" votes neutral.
func testModel() *Model {
	return &Model{
		Vocabulary: map[string]int{"good": 0, "love": 1, "bad": 2, "broken": 3, "ok": 4},
		Idf:        []float64{1, 1, 1, 1, 1},
		Classes:    []Label{Positive, Negative, Neutral},
		Weights: [][]float64{
			{2.0, 2.5, -1.0, -1.5, 0.0},
			{-1.0, -2.0, 2.0, 2.5, 0.0},
			{0.0, 0.0, 0.0, 0.0, 1.5},
		},
		Intercepts: []float64{0, 0, 0.1},
	}
}

func TestClassify_BasicLabels(t *testing.T) {
	m := testModel()
	tests := []struct {
		text string
		want Label
	}{
		{"I love this, so good", Positive},
		{"bad product, arrived broken", Negative},
		{"it's ok", Neutral},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			label, conf := m.Classify(tt.text)
			assert.Equal(t, tt.want, label)
			assert.Greater(t, conf, 0.0)
			assert.Less(t, conf, 1.0)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	m := testModel()
	// Several active vocabulary terms, so the scores are real float sums.
	text := "I love this good product but the box arrived broken and support was ok"
	label1, conf1 := m.Classify(text)
	for i := 0; i < 5000; i++ {
		label, conf := m.Classify(text)
		if label != label1 || conf != conf1 {
			t.Fatalf("run %d diverged: (%s, %.20f) vs (%s, %.20f)", i, label, conf, label1, conf1)
		}
	}
}

func TestClassify_DegenerateInputs(t *testing.T) {
	m := testModel()
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", "   \t\n "},
		{"only punctuation", "!!! ??? ..."},
		{"only digits", "12345 67890"},
		{"out of vocabulary", "zygomorphic quux"},
		{"html only", "<div><br/></div>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, conf := m.Classify(tt.text)
			assert.Equal(t, Neutral, label)
			assert.Equal(t, 0.0, conf)
		})
	}
}

func TestClassify_StripsHTMLAndURLs(t *testing.T) {
	m := testModel()
	label, _ := m.Classify(`<p>I LOVE it</p> see https://example.com/review`)
	assert.Equal(t, Positive, label)
}

func TestClassifyBatch_MatchesSingle(t *testing.T) {
	m := testModel()
	texts := []string{"love it", "bad and broken", "", "ok"}
	preds := m.ClassifyBatch(texts)
	require.Len(t, preds, len(texts))
	for i, text := range texts {
		label, conf := m.Classify(text)
		assert.Equal(t, label, preds[i].Label)
		assert.Equal(t, conf, preds[i].Confidence)
	}
}

func TestRatingLabel(t *testing.T) {
	tests := []struct {
		rating float64
		want   Label
	}{
		{5, Positive},
		{4, Positive},
		{3, Neutral},
		{2.5, Neutral},
		{2, Negative},
		{1, Negative},
		{0, Neutral},
	}
	for _, tt := range tests {
		pred := RatingLabel(tt.rating)
		assert.Equal(t, tt.want, pred.Label, "rating %.1f", tt.rating)
		assert.Greater(t, pred.Confidence, 0.0)
	}
}

func TestLoadModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	raw, err := json.Marshal(testModel())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	m, err := LoadModel(path)
	require.NoError(t, err)
	label, _ := m.Classify("love it, so good")
	assert.Equal(t, Positive, label)
}

func TestLoadModel_Invalid(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadModel(filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		_, err := LoadModel(path)
		assert.Error(t, err)
	})

	t.Run("mismatched dimensions", func(t *testing.T) {
		m := testModel()
		m.Weights = m.Weights[:2]
		raw, err := json.Marshal(m)
		require.NoError(t, err)
		path := filepath.Join(dir, "dims.json")
		require.NoError(t, os.WriteFile(path, raw, 0o600))
		_, err = LoadModel(path)
		assert.Error(t, err)
	})
}
