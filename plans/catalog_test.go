package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKnownTopic(t *testing.T) {
	plan := Generate("Go")

	assert.Equal(t, "Go", plan.Topic)
	assert.Equal(t, "Study plan: Go", plan.Title)
	require.NotEmpty(t, plan.Steps)
	assert.Equal(t, "Read the language tour", plan.Steps[0].Title)
}

func TestGenerateSubstringMatch(t *testing.T) {
	plan := Generate("advanced SQL for analysts")

	require.NotEmpty(t, plan.Steps)
	assert.Equal(t, "Model a schema", plan.Steps[0].Title)
}

func TestGenerateUnknownTopicFallsBack(t *testing.T) {
	plan := Generate("medieval falconry")

	require.NotEmpty(t, plan.Steps)
	assert.Equal(t, "Survey the fundamentals", plan.Steps[0].Title)
}

func TestGenerateCopiesTemplateSteps(t *testing.T) {
	a := Generate("go")
	a.Steps[0].Done = true
	a.Steps[0].Title = "mutated"

	b := Generate("go")
	assert.False(t, b.Steps[0].Done)
	assert.Equal(t, "Read the language tour", b.Steps[0].Title)
}

func TestGenerateStepOrdering(t *testing.T) {
	plan := Generate("algorithms")

	for i, step := range plan.Steps {
		assert.Equal(t, i+1, step.Order)
		assert.False(t, step.Done)
	}
}
