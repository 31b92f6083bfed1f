package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssessmentUnmarshalBareString(t *testing.T) {
	var a Assessment
	require.NoError(t, json.Unmarshal([]byte(`"replace the gutters"`), &a))
	assert.Equal(t, "replace the gutters", a.OriginalText)
	assert.Empty(t, a.Measurements)
}

func TestAssessmentUnmarshalStructured(t *testing.T) {
	payload := `{
		"original_text": "reroof the garage",
		"measurements": {"roof_area": "450 sqft"},
		"question_answers": ["asphalt shingles"]
	}`

	var a Assessment
	require.NoError(t, json.Unmarshal([]byte(payload), &a))
	assert.Equal(t, "reroof the garage", a.OriginalText)
	assert.Equal(t, "450 sqft", a.Measurements["roof_area"])
	assert.Equal(t, []string{"asphalt shingles"}, a.QuestionAnswers)
}

func TestAssessmentIsEmpty(t *testing.T) {
	assert.True(t, (&Assessment{}).IsEmpty())
	assert.True(t, (&Assessment{OriginalText: "   "}).IsEmpty())
	assert.False(t, (&Assessment{OriginalText: "paint the fence"}).IsEmpty())
	assert.False(t, (&Assessment{Measurements: map[string]string{"wall": "30 ft"}}).IsEmpty())
}

func TestAssessmentRender(t *testing.T) {
	a := Assessment{
		OriginalText:    "reroof the garage",
		Measurements:    map[string]string{"roof_area": "450 sqft"},
		QuestionAnswers: []string{"asphalt shingles"},
	}

	rendered := a.Render()
	assert.Contains(t, rendered, "reroof the garage")
	assert.Contains(t, rendered, "roof_area: 450 sqft")
	assert.Contains(t, rendered, "asphalt shingles")
}
