package main

import (
	"context"
	"fmt"
	"log"

	gdmrag "github.com/graphclinic/gdmrag"
	"github.com/graphclinic/gdmrag/helper"
	"github.com/graphclinic/gdmrag/ingest"
	"github.com/graphclinic/gdmrag/model"
	"github.com/graphclinic/gdmrag/vector"
)

const guidelineText = `妊娠期糖尿病是妊娠期间首次发现的糖代谢异常。
风险因素包括肥胖、高龄和糖尿病家族史。
确诊依靠口服葡萄糖耐量试验（OGTT）。
血糖控制不佳可能导致巨大儿等并发症。
治疗以饮食管理和运动为主，必要时使用胰岛素。`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	g, err := gdmrag.New(dbConfig, vector.DefaultEmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to create gdmrag: %v", err)
	}
	defer g.Close()

	// Use the real sentence transformer (downloads the model on first run)
	if err := g.UseDefaultEmbedder(); err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	g.UseDefaultPipeline()

	// Build a small knowledge graph
	entities := []*model.Entity{
		{Type: model.EntityDisease, Name: "妊娠期糖尿病", Attributes: model.Metadata{"description": "妊娠期首次发现的糖代谢异常"}},
		{Type: model.EntityRiskFactor, Name: "肥胖", Attributes: model.Metadata{"description": "BMI过高", "modifiable": true}},
		{Type: model.EntityRiskFactor, Name: "高龄", Attributes: model.Metadata{"description": "35岁以上妊娠", "modifiable": false}},
		{Type: model.EntityDiagnosticMethod, Name: "OGTT", Attributes: model.Metadata{"description": "口服葡萄糖耐量试验"}},
		{Type: model.EntityComplication, Name: "巨大儿", Attributes: model.Metadata{"description": "出生体重超过4000克", "target": "胎儿"}},
	}
	for _, entity := range entities {
		if err := g.Entities.InsertEntity(entity); err != nil {
			log.Fatalf("Failed to insert entity %s: %v", entity.Name, err)
		}
	}

	relations := []*model.Relation{
		{Type: model.RelationHasRiskFactor, SourceID: entities[0].ID, TargetID: entities[1].ID},
		{Type: model.RelationHasRiskFactor, SourceID: entities[0].ID, TargetID: entities[2].ID},
		{Type: model.RelationDiagnosedBy, SourceID: entities[0].ID, TargetID: entities[3].ID},
		{Type: model.RelationCanCause, SourceID: entities[0].ID, TargetID: entities[4].ID},
	}
	for _, relation := range relations {
		if err := g.Relations.InsertRelation(relation); err != nil {
			log.Fatalf("Failed to insert relation %s: %v", relation.Type, err)
		}
	}

	// Ingest the guideline text
	doc := &ingest.Document{
		Title:  "妊娠期糖尿病诊治指南",
		Source: "guideline.md",
		Text:   guidelineText,
	}
	fmt.Println("Ingesting document...")
	numChunks, candidates, err := g.IngestDocument(doc)
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Inserted %d chunks, found %d entity candidates\n", numChunks, len(candidates))

	// Run a hybrid retrieval
	queryText := "妊娠期糖尿病有哪些风险因素？"
	fmt.Printf("\nQuerying: %s\n", queryText)

	config := model.DefaultQueryConfig()
	result, err := g.Retrieve(context.Background(), queryText, &config)
	if err != nil {
		log.Fatalf("Failed to retrieve: %v", err)
	}

	fmt.Printf("\nCategory: %s, confidence: %.2f\n", result.Query.Category, result.Confidence)
	for i, hit := range result.Context.Hits {
		fmt.Printf("\n--- Hit %d ---\n", i+1)
		fmt.Printf("Score: %.4f\n", hit.CombinedScore)
		fmt.Printf("Content: %s\n", hit.ContextText())
	}

	// Show the disease neighborhood
	summary, err := g.DiseaseContext(context.Background(), "妊娠期糖尿病")
	if err != nil {
		log.Fatalf("Failed to load disease context: %v", err)
	}
	fmt.Printf("\nRisk factors: %d, diagnostics: %d, complications: %d\n",
		len(summary.RiskFactors), len(summary.Diagnostics), len(summary.Complications))

	// Generate an answer when an LLM endpoint is configured (LLM_API_KEY)
	if err := g.UseDefaultGenerator(); err == nil {
		qa, err := g.Answer(context.Background(), queryText, &config)
		if err != nil {
			log.Fatalf("Failed to answer: %v", err)
		}
		fmt.Printf("\nAnswer: %s\nSources: %v\n", qa.Answer.Text, qa.Answer.Sources)
	}

	fmt.Println("\nBasic example completed successfully!")
}
