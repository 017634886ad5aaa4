// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/quanho114/amazon-feedback-ai-agent/services/llm"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/agent"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/dataset"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/handlers"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/observability"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/rag"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/routes"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/sentiment"
	"github.com/quanho114/amazon-feedback-ai-agent/services/orchestrator/ttl"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "feedback-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("feedback-agent-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newWeaviateClient parses WEAVIATE_SERVICE_URL. A missing or invalid URL
// is not fatal: the service runs in lightweight mode with vector search
// disabled and the rag worker reporting no results.
func newWeaviateClient() *weaviate.Client {
	weaviateURL := strings.Trim(os.Getenv("WEAVIATE_SERVICE_URL"), "\"' ")
	if weaviateURL == "" || !strings.Contains(weaviateURL, "http") {
		slog.Info("WEAVIATE_SERVICE_URL not set or empty. Running in lightweight mode (no vector search).")
		return nil
	}
	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		slog.Warn("WEAVIATE_SERVICE_URL is invalid. Running in lightweight mode.",
			"url", weaviateURL, "error", err)
		return nil
	}
	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		slog.Error("Failed to create Weaviate client", "error", err)
		return nil
	}
	return client
}

func newLLMClient() (llm.LLMClient, error) {
	log.Println("Configuring the LLM Client")
	switch os.Getenv("LLM_BACKEND_TYPE") {
	case "local":
		slog.Info("Using Local Llama.cpp LLM backend")
		return llm.NewLocalLlamaCppClient()
	case "openai":
		slog.Info("Using OpenAI LLM backend")
		return llm.NewOpenAIClient()
	default:
		slog.Warn("LLM_BACKEND_TYPE not set or invalid, defaulting to openai")
		return llm.NewOpenAIClient()
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, relying on process environment")
	}

	port := os.Getenv("AGENT_PORT")
	if port == "" {
		port = "12310"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	llmClient, err := newLLMClient()
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	// Sentiment model is optional; without it the classifier falls back to
	// rating-derived labels at ingestion.
	var model *sentiment.Model
	modelPath := os.Getenv("SENTIMENT_MODEL_PATH")
	if modelPath != "" {
		model, err = sentiment.LoadModel(modelPath)
		if err != nil {
			slog.Warn("Failed to load sentiment model, falling back to rating labels",
				"path", modelPath, "error", err)
			model = nil
		}
	} else {
		slog.Warn("SENTIMENT_MODEL_PATH not set, labeling from ratings")
	}

	store := dataset.NewStore()
	analysis := agent.NewAnalysisContext()

	// Retrieval stack. Any missing piece degrades rather than aborting:
	// no Weaviate means no indexer and an empty-result retriever, and a
	// missing reranker leaves the pipeline in vector order.
	var indexer *rag.Indexer
	var retriever agent.Retriever
	weaviateClient := newWeaviateClient()
	if weaviateClient != nil {
		embedder, err := rag.NewHTTPEmbedder()
		if err != nil {
			log.Fatalf("Vector search requires the embedding service: %v", err)
		}
		var reranker rag.Reranker
		if hr, err := rag.NewHTTPReranker(); err != nil {
			slog.Warn("Reranker not configured, pipeline will use vector order", "error", err)
		} else {
			reranker = hr
		}
		indexer = rag.NewIndexer(weaviateClient, embedder)
		searcher := rag.NewWeaviateSearcher(weaviateClient)
		retriever = rag.NewPipeline(embedder, searcher, reranker, rag.DefaultPipelineConfig())
	} else {
		retriever = emptyRetriever{}
	}

	cache := agent.NewResponseCache(10*time.Minute, 15*time.Minute)
	supervisor := agent.NewSupervisor(llmClient)
	orch := agent.NewOrchestrator(supervisor, store, analysis, agent.Workers{
		Chat:      agent.NewChatWorker(llmClient, cache),
		Sentiment: agent.NewSentimentWorker(llmClient, store),
		RAG:       agent.NewRAGWorker(llmClient, retriever),
		Analyst:   agent.NewAnalystWorker(llmClient, store),
		Insight:   agent.NewInsightWorker(llmClient, store, analysis),
		Summarize: agent.NewSummarizeWorker(llmClient, store),
	})

	// Idle sessions are reclaimed in the background so abandoned
	// conversations do not hold memory forever.
	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go ttl.NewReaper(ttl.DefaultConfig(), orch.ReapIdle).Run(reaperCtx)

	router := gin.Default()
	router.Use(otelgin.Middleware("feedback-agent-service"))
	routes.SetupRoutes(router, orch, handlers.UploadDeps{
		Store:    store,
		Analysis: analysis,
		Model:    model,
		Indexer:  indexer,
	}, os.Getenv("AGENT_API_KEY"))
	log.Println("started up the container")

	log.Println("Starting the feedback agent server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// emptyRetriever serves lightweight mode: queries succeed with no results.
type emptyRetriever struct{}

func (emptyRetriever) Retrieve(ctx context.Context, query string, kFinal int, sentimentFilter string) ([]rag.Candidate, error) {
	if kFinal <= 0 {
		return nil, rag.ErrInvalidTopK
	}
	return []rag.Candidate{}, nil
}
