package gdmrag

import (
	"context"
	"log"
	"testing"

	"github.com/graphclinic/gdmrag/helper"
	"github.com/graphclinic/gdmrag/vector"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

// keywordEmbed is a deterministic two-dimensional test embedder: texts about
// diabetes point along the first axis, everything else along the second.
func keywordEmbed(text string) ([]float32, error) {
	for _, r := range text {
		if r == '糖' {
			return []float32{1, 0}, nil
		}
	}
	return []float32{0, 1}, nil
}

func initRag(t *testing.T) *GDMRag {
	t.Helper()
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	g, err := New(dbConfig, 2)
	require.NoError(t, err, "failed to create gdmrag")
	require.NotNil(t, g, "expected gdmrag to be non-nil")

	g.SetEmbedder(vector.NewEmbedder(keywordEmbed, "test-model"))

	t.Cleanup(func() {
		g.Close()
	})

	return g
}
