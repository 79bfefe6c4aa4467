package llm

import (
	"context"
	"testing"

	"github.com/graphclinic/gdmrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	disease := model.EntityRef{Type: model.EntityDisease, Name: "妊娠期糖尿病"}
	evidence := &model.FusedContext{Hits: []*model.FusedHit{
		{Entity: &disease, GraphRank: 1, CombinedScore: 1.0},
		{Snippet: "风险因素包括肥胖。", SemanticRank: 1, CombinedScore: 0.8},
	}}

	prompt := BuildPrompt("妊娠期糖尿病有哪些风险因素？", evidence)

	assert.Contains(t, prompt, "参考资料")
	assert.Contains(t, prompt, "妊娠期糖尿病")
	assert.Contains(t, prompt, "风险因素包括肥胖。")
	assert.Contains(t, prompt, "问题：妊娠期糖尿病有哪些风险因素？")
}

func TestChatGeneratorEmptyEvidence(t *testing.T) {
	generator := NewChatGenerator(&Configuration{
		BaseURL: "http://localhost:1",
		Model:   DefaultModel,
		APIKey:  "test-key",
	})

	answer, err := generator.Generate(context.Background(), "任何问题", &model.FusedContext{})

	require.NoError(t, err)
	assert.Equal(t, NoContextAnswer, answer.Text)
	assert.False(t, answer.UsedContext)
	assert.Empty(t, answer.Sources)
}

func TestNewConfiguration(t *testing.T) {
	t.Run("Missing API key fails", func(t *testing.T) {
		t.Setenv("LLM_API_KEY", "")

		_, err := NewConfiguration()
		assert.Error(t, err)
	})

	t.Run("Defaults applied", func(t *testing.T) {
		t.Setenv("LLM_API_KEY", "test-key")
		t.Setenv("LLM_BASE_URL", "")
		t.Setenv("LLM_MODEL", "")

		configuration, err := NewConfiguration()
		require.NoError(t, err)
		assert.Equal(t, DefaultBaseURL, configuration.BaseURL)
		assert.Equal(t, DefaultModel, configuration.Model)
		assert.Equal(t, "test-key", configuration.APIKey)
	})
}
