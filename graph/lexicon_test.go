package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/graphclinic/gdmrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexiconClassify(t *testing.T) {
	lexicon := DefaultLexicon()

	t.Run("Classifies symptom questions", func(t *testing.T) {
		assert.Equal(t, model.CategorySymptom, lexicon.Classify("妊娠期糖尿病有什么症状"))
	})

	t.Run("Classifies risk questions", func(t *testing.T) {
		assert.Equal(t, model.CategoryRisk, lexicon.Classify("妊娠期糖尿病的风险因素有哪些"))
	})

	t.Run("Classifies diet questions", func(t *testing.T) {
		assert.Equal(t, model.CategoryDiet, lexicon.Classify("妊娠期糖尿病应该吃什么"))
	})

	t.Run("Classifies diagnosis questions", func(t *testing.T) {
		assert.Equal(t, model.CategoryDiagnosis, lexicon.Classify("如何诊断妊娠期糖尿病"))
	})

	t.Run("Falls back to general", func(t *testing.T) {
		assert.Equal(t, model.CategoryGeneral, lexicon.Classify("妊娠期糖尿病"))
	})

	t.Run("Is deterministic on multi-pattern questions", func(t *testing.T) {
		// Matches both symptom and treatment patterns; symptom wins by order.
		query := "妊娠期糖尿病有什么症状以及如何治疗"
		first := lexicon.Classify(query)
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, lexicon.Classify(query))
		}
		assert.Equal(t, model.CategorySymptom, first)
	})
}

func TestLexiconMatchKeywords(t *testing.T) {
	lexicon := DefaultLexicon()

	t.Run("Finds contained keywords", func(t *testing.T) {
		matched := lexicon.MatchKeywords("妊娠期糖尿病需要做OGTT吗")

		assert.Contains(t, matched, "妊娠期糖尿病")
		assert.Contains(t, matched, "OGTT")
	})

	t.Run("Returns stable order", func(t *testing.T) {
		query := "肥胖和高龄孕妇的血糖监测"
		first := lexicon.MatchKeywords(query)
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, lexicon.MatchKeywords(query))
		}
	})

	t.Run("No keywords yields empty", func(t *testing.T) {
		assert.Empty(t, lexicon.MatchKeywords("今天天气不错"))
	})
}

func TestLexiconExpand(t *testing.T) {
	lexicon := DefaultLexicon()

	t.Run("Expands known synonyms", func(t *testing.T) {
		assert.Contains(t, lexicon.Expand("糖尿病"), "妊娠期糖尿病")
	})

	t.Run("Unknown term expands to nothing", func(t *testing.T) {
		assert.Empty(t, lexicon.Expand("未知词"))
	})
}

func TestLoadLexicon(t *testing.T) {
	t.Run("Loads YAML lexicon", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lexicon.yaml")
		content := `
keywords:
  disease: ["糖尿病"]
synonyms:
  糖尿病: ["妊娠期糖尿病"]
patterns:
  risk: ["风险"]
stopwords: ["什么"]
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		lexicon, err := LoadLexicon(path)

		require.NoError(t, err)
		assert.Equal(t, []string{"糖尿病"}, lexicon.Keywords["disease"])
		assert.Equal(t, model.CategoryRisk, lexicon.Classify("有什么风险"))
		assert.True(t, lexicon.IsStopword("什么"))
	})

	t.Run("Missing file fails", func(t *testing.T) {
		_, err := LoadLexicon(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
