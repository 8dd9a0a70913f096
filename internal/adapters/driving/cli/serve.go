package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/adapters/driven/ai"
	"github.com/custodia-labs/docquery/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docquery/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docquery/internal/adapters/driven/vector/pinecone"
	"github.com/custodia-labs/docquery/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docquery/internal/config"
	"github.com/custodia-labs/docquery/internal/connectors/web"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/services"
	"github.com/custodia-labs/docquery/internal/logger"
	"github.com/custodia-labs/docquery/internal/normalisers"
	"github.com/custodia-labs/docquery/internal/normalisers/docx"
	"github.com/custodia-labs/docquery/internal/normalisers/eml"
	"github.com/custodia-labs/docquery/internal/normalisers/pdf"
	"github.com/custodia-labs/docquery/internal/normalisers/plaintext"
	"github.com/custodia-labs/docquery/internal/postprocessors/chunker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the document question-answering API server",
	Long: `Starts the HTTP API server.

The server exposes POST /api/v1/run for document question answering,
GET /api/v1/status for provider connectivity, and GET /health as an
unauthenticated liveness probe.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.SetVerbose(cfg.Verbose || flagVerbose)

	embedder, err := ai.CreateEmbeddingService(embeddingSettings(cfg))
	if err != nil {
		return fmt.Errorf("creating embedding client: %w", err)
	}

	llm, err := ai.CreateLLMService(llmSettings(cfg))
	if err != nil {
		return fmt.Errorf("creating generation client: %w", err)
	}

	// The vector index is optional: without it retrieval falls back to
	// the in-memory similarity engine.
	var index driven.VectorIndex
	if cfg.Pinecone.APIKey != "" {
		pineconeIdx, perr := pinecone.New(pinecone.Config{
			APIKey:       cfg.Pinecone.APIKey,
			IndexName:    cfg.Pinecone.IndexName,
			Cloud:        cfg.Pinecone.Cloud,
			Region:       cfg.Pinecone.Region,
			Dimension:    cfg.Pipeline.EmbeddingDimensions,
			Timeout:      time.Duration(cfg.Pinecone.TimeoutSecs) * time.Second,
			ReadyTimeout: time.Duration(cfg.Pinecone.ReadyTimeoutSecs) * time.Second,
		})
		if perr != nil {
			return fmt.Errorf("creating vector index client: %w", perr)
		}
		index = pineconeIdx
	} else {
		logger.Warn("PINECONE_API_KEY not set; using in-memory retrieval only")
	}

	// The request log is best-effort: a broken local database must not
	// keep the server from answering questions.
	var requestLog driven.RequestLogStore
	store, serr := sqlite.NewStore(cfg.Storage.DataDir)
	if serr != nil {
		logger.Warn("local request log unavailable, keeping records in memory: %v", serr)
		requestLog = memory.NewRequestLogStore()
	} else {
		requestLog = store
	}
	defer requestLog.Close()

	registry := normalisers.NewRegistry(
		pdf.New(),
		docx.New(),
		eml.New(),
		plaintext.New(),
	)

	chunkProcessor, err := chunker.New(
		chunker.WithChunkSize(cfg.Pipeline.ChunkSize),
		chunker.WithOverlap(cfg.Pipeline.ChunkOverlap),
	)
	if err != nil {
		return err
	}

	engine := services.NewSimilarityEngine(cfg.Pipeline.SimilarityThreshold)
	batcher := services.NewEmbedBatcher(
		embedder,
		cfg.Pipeline.EmbedBatchSize,
		services.NewPacer(time.Duration(cfg.Pipeline.BatchDelayMs)*time.Millisecond),
		services.NewPacer(time.Duration(cfg.Pipeline.RetryDelayMs)*time.Millisecond),
	)
	retriever := services.NewRetriever(index, engine, cfg.Pipeline.SimilarityThreshold, cfg.Pipeline.TopK)
	synthesiser := services.NewSynthesiser(llm, driven.GenerateOptions{
		Temperature: cfg.Pipeline.LLM.Temperature,
		MaxTokens:   cfg.Pipeline.LLM.MaxTokens,
		TopP:        cfg.Pipeline.LLM.TopP,
		TopK:        cfg.Pipeline.LLM.TopK,
	})

	pipeline := services.NewPipeline(services.PipelineDeps{
		Fetcher:       web.New(web.Config{}),
		Normalisers:   registry,
		Chunker:       chunkProcessor,
		Embedder:      embedder,
		Batcher:       batcher,
		Retriever:     retriever,
		Synthesiser:   synthesiser,
		Index:         index,
		RequestLog:    requestLog,
		QuestionPacer: services.NewPacer(time.Duration(cfg.Pipeline.QuestionDelayMs) * time.Millisecond),
	})

	server := httpapi.NewServer(httpapi.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		Production:        cfg.Server.Mode == "production",
		BearerToken:       cfg.Auth.BearerToken,
		MaxQuestions:      cfg.Pipeline.MaxQuestions,
		MaxQuestionLength: cfg.Pipeline.MaxQuestionLength,
		Version:           version,
	}, pipeline, embedder, llm, index, requestLog)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// embeddingSettings maps config onto factory settings for the
// configured embedding provider.
func embeddingSettings(cfg *config.Config) ai.EmbeddingSettings {
	s := ai.EmbeddingSettings{
		Provider:   cfg.AI.EmbeddingProvider,
		Dimensions: cfg.Pipeline.EmbeddingDimensions,
	}
	switch cfg.AI.EmbeddingProvider {
	case ai.ProviderOpenAI:
		s.APIKey = cfg.OpenAI.APIKey
		s.BaseURL = cfg.OpenAI.BaseURL
		s.Model = cfg.OpenAI.EmbeddingModel
		s.Timeout = time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second
	default:
		s.APIKey = cfg.Gemini.APIKey
		s.BaseURL = cfg.Gemini.BaseURL
		s.Model = cfg.Gemini.EmbeddingModel
		s.Timeout = time.Duration(cfg.Gemini.TimeoutSecs) * time.Second
	}
	return s
}

// llmSettings maps config onto factory settings for the configured
// generation provider.
func llmSettings(cfg *config.Config) ai.LLMSettings {
	s := ai.LLMSettings{Provider: cfg.AI.GenerationProvider}
	switch cfg.AI.GenerationProvider {
	case ai.ProviderOpenAI:
		s.APIKey = cfg.OpenAI.APIKey
		s.BaseURL = cfg.OpenAI.BaseURL
		s.Model = cfg.OpenAI.GenerationModel
		s.Timeout = time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second
	default:
		s.APIKey = cfg.Gemini.APIKey
		s.BaseURL = cfg.Gemini.BaseURL
		s.Model = cfg.Gemini.GenerationModel
		s.Timeout = time.Duration(cfg.Gemini.TimeoutSecs) * time.Second
	}
	return s
}
