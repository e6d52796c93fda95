package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/54b3r/coursebot-go/internal/config"
	"github.com/54b3r/coursebot-go/internal/embedder"
	"github.com/54b3r/coursebot-go/internal/generator"
	"github.com/54b3r/coursebot-go/internal/llm"
	"github.com/54b3r/coursebot-go/internal/provider"
	"github.com/54b3r/coursebot-go/internal/rag"
	"github.com/54b3r/coursebot-go/internal/session"
	"github.com/54b3r/coursebot-go/internal/tools"
	"github.com/54b3r/coursebot-go/internal/tracing"
	"github.com/54b3r/coursebot-go/internal/vectorstore"
)

// sessionDBMemory selects the in-process session store.
const sessionDBMemory = "memory"

// app is everything a command needs once the query pipeline is wired.
type app struct {
	system *rag.System

	// client is the model client used by the generator, traced when
	// Langfuse is enabled.
	client llm.Client

	// health is the zero-cost probe for client, or nil.
	health provider.HealthChecker

	providerCfg *provider.Config

	// qdrant is set when the Qdrant store is in use.
	qdrant *vectorstore.QdrantStore

	closers []func()
}

// Close releases the store, the session database and the trace flusher,
// in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires provider, tracing, store, tools, generator and sessions into
// a rag.System. The caller must Close the returned app.
func buildApp(ctx context.Context, log *slog.Logger) (*app, error) {
	a := &app{}

	flush, traced := tracing.Setup(tracing.ConfigFromEnv(), log)
	a.closers = append(a.closers, flush)

	a.providerCfg = provider.ConfigFromEnv()
	raw, err := provider.New(ctx, a.providerCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	a.health = provider.NewHealthChecker(a.providerCfg, raw)
	a.client = raw
	// Eino backends report to the global handler themselves.
	if traced && a.providerCfg.Backend == provider.BackendAnthropic {
		a.client = llm.Traced(raw, string(provider.BackendAnthropic))
	}
	log.Info("provider initialised",
		slog.String("provider", string(a.providerCfg.Backend)),
		slog.String("model", a.providerCfg.ModelName()),
	)

	store, err := buildStore(ctx, log, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	toolManager, err := tools.NewManager(
		tools.NewCourseSearchTool(store),
		tools.NewCourseOutlineTool(store),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	gen, err := generator.New(generator.Config{Client: a.client, Model: a.providerCfg.ModelName()})
	if err != nil {
		a.Close()
		return nil, err
	}

	sessions, err := buildSessions(log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := sessions.Close(); err != nil {
			log.Warn("session store close failed", slog.Any("error", err))
		}
	})

	a.system, err = rag.New(rag.Config{
		Generator: gen,
		Tools:     toolManager,
		Sessions:  sessions,
		Catalog:   store,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// buildStore opens the Qdrant store when QDRANT_HOST is set and otherwise
// loads the local corpus named by COURSEBOT_CORPUS into memory.
func buildStore(ctx context.Context, log *slog.Logger, a *app) (vectorstore.Store, error) {
	maxResults := config.EnvInt("COURSEBOT_MAX_RESULTS", 5)

	if host := os.Getenv("QDRANT_HOST"); host != "" {
		embCfg := embedder.ConfigFromEnv()
		if err := embedder.CheckForSearch(log, embCfg); err != nil {
			return nil, err
		}
		emb, err := embedder.New(ctx, embCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise embedder: %w", err)
		}

		qcfg := &vectorstore.QdrantConfig{
			Host:              host,
			Port:              config.EnvInt("QDRANT_PORT", 6334),
			ContentCollection: os.Getenv("QDRANT_CONTENT_COLLECTION"),
			CatalogCollection: os.Getenv("QDRANT_CATALOG_COLLECTION"),
			MaxResults:        maxResults,
			APIKey:            os.Getenv("QDRANT_API_KEY"),
			UseTLS:            os.Getenv("QDRANT_TLS") == "true",
		}
		store, err := vectorstore.NewQdrantStore(ctx, qcfg, emb)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", qcfg.Host, qcfg.Port, err)
		}
		a.qdrant = store
		a.closers = append(a.closers, func() { _ = store.Close() })
		log.Info("qdrant store ready",
			slog.String("host", qcfg.Host),
			slog.Int("port", qcfg.Port),
			slog.String("content_collection", qcfg.ContentCollection),
			slog.String("catalog_collection", qcfg.CatalogCollection),
			slog.String("embedder", embCfg.Backend),
		)
		return store, nil
	}

	path := os.Getenv("COURSEBOT_CORPUS")
	if path == "" {
		return nil, errors.New("no course store configured: set QDRANT_HOST or COURSEBOT_CORPUS")
	}

	// Corpus mode ranks lexically unless an embedder is asked for explicitly.
	var emb vectorstore.Embedder
	if os.Getenv("EMBEDDING_PROVIDER") != "" {
		var err error
		emb, err = embedder.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise embedder: %w", err)
		}
	}

	store, err := vectorstore.LoadCorpus(ctx, path, emb, maxResults)
	if err != nil {
		return nil, err
	}
	count, _ := store.CourseCount(ctx)
	log.Info("corpus loaded",
		slog.String("path", path),
		slog.Int("courses", count),
		slog.Bool("embeddings", emb != nil),
	)
	return store, nil
}

// buildSessions opens the session store. COURSEBOT_SESSION_DB overrides the
// default path (~/.coursebot/sessions.db); "memory" keeps sessions in process.
func buildSessions(log *slog.Logger) (*session.Manager, error) {
	maxHistory := config.EnvInt("COURSEBOT_MAX_HISTORY", session.DefaultMaxHistory)

	var store session.Store
	dbPath := os.Getenv("COURSEBOT_SESSION_DB")
	if dbPath == sessionDBMemory {
		store = session.NewMemoryStore(2 * maxHistory)
		log.Info("sessions: in-memory store")
	} else {
		if dbPath == "" {
			var err error
			dbPath, err = session.DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("sessions: could not resolve default DB path: %w", err)
			}
		}
		sqlite, err := session.OpenSQLite(dbPath)
		if err != nil {
			return nil, fmt.Errorf("sessions: %w", err)
		}
		store = sqlite
		log.Info("sessions: store opened", slog.String("path", dbPath))
	}

	return session.NewManager(session.Config{
		Store:      store,
		MaxHistory: maxHistory,
		MaxTokens:  config.EnvInt("COURSEBOT_MAX_HISTORY_TOKENS", 0),
	})
}
