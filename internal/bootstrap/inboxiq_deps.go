package bootstrap

import (
	"context"
	"fmt"
	"time"

	"inboxiq/adapter/out/graph"
	"inboxiq/adapter/out/mongodb"
	"inboxiq/adapter/out/persistence"
	"inboxiq/adapter/out/provider"
	"inboxiq/config"
	"inboxiq/core/agent/llm"
	"inboxiq/core/port/in"
	"inboxiq/core/port/out"
	"inboxiq/core/service/calendar"
	"inboxiq/core/service/chat"
	"inboxiq/core/service/compose"
	"inboxiq/core/service/contact"
	"inboxiq/core/service/draft"
	"inboxiq/core/service/identity"
	"inboxiq/core/service/intent"
	"inboxiq/infra/database"
	"inboxiq/pkg/cache"
	"inboxiq/pkg/crypto"
	"inboxiq/pkg/httputil"
	"inboxiq/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	startupTimeout  = 30 * time.Second
	claimStaleAfter = 2 * time.Minute
)

type Dependencies struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client
	Neo4j   neo4j.DriverWithContext

	// Repositories
	DraftRepo      *persistence.DraftAdapter
	CredentialRepo *persistence.CredentialAdapter
	ContactCache   out.ContactCache
	ChatRepo       *mongodb.ChatAdapter
	Window         *persistence.WindowBuffer
	Relationships  out.RelationshipStore

	// Providers
	Transport *provider.GmailTransport
	Directory *provider.PeopleDirectory
	Calendar  *provider.GoogleCalendar

	// Agent
	LLMClient *llm.Client

	// Services
	Identity   *identity.Resolver
	Classifier *intent.Classifier
	Matcher    *contact.Matcher
	Frequent   *contact.FrequentContacts
	Generator  *compose.Generator
	Drafts     *draft.Manager
	Assistant  *calendar.Assistant
	Chat       in.ChatService
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	// PostgreSQL
	pgCfg := database.DefaultPostgresConfig()
	db, err := database.NewPostgres(ctx, cfg.DatabaseURL, pgCfg)
	if err != nil {
		return fail(fmt.Errorf("postgres: %w", err))
	}
	deps.DB = db
	cleanups = append(cleanups, db.Close)

	sqlDB, err := database.NewSQLX(cfg.DatabaseURL, pgCfg)
	if err != nil {
		return fail(fmt.Errorf("sqlx: %w", err))
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	if err := persistence.EnsureSchema(ctx, sqlDB); err != nil {
		return fail(fmt.Errorf("schema: %w", err))
	}

	// Redis
	redisClient, err := database.NewRedis(ctx, cfg.RedisURL, database.DefaultRedisConfig())
	if err != nil {
		return fail(fmt.Errorf("redis: %w", err))
	}
	deps.Redis = redisClient
	cleanups = append(cleanups, func() { redisClient.Close() })
	redisCache := cache.NewRedisCache(redisClient)

	// MongoDB
	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDBURL)
	if err != nil {
		return fail(fmt.Errorf("mongodb: %w", err))
	}
	deps.MongoDB = mongoClient
	cleanups = append(cleanups, func() { mongoClient.Disconnect(context.Background()) })

	deps.ChatRepo = mongodb.NewChatAdapter(mongoClient.Database(cfg.MongoDBName))
	if err := deps.ChatRepo.EnsureIndexes(ctx); err != nil {
		return fail(fmt.Errorf("mongodb indexes: %w", err))
	}

	// Neo4j is optional; without it sends are not recorded and frequent
	// contacts come back empty.
	if cfg.Neo4jURL != "" {
		driver, err := graph.NewDriver(ctx, cfg.Neo4jURL, cfg.Neo4jUsername, cfg.Neo4jPassword)
		if err != nil {
			logger.WithError(err).Warn("neo4j unavailable, relationship tracking disabled")
		} else {
			deps.Neo4j = driver
			cleanups = append(cleanups, func() { driver.Close(context.Background()) })

			rel := graph.NewRelationshipAdapter(driver, cfg.Neo4jDatabase)
			if err := rel.EnsureIndexes(ctx); err != nil {
				logger.WithError(err).Warn("neo4j index creation failed")
			}
			deps.Relationships = rel
		}
	}

	// Repositories
	enc, err := crypto.NewEncryptor([]byte(cfg.EncryptionKey))
	if err != nil {
		return fail(fmt.Errorf("encryptor: %w", err))
	}
	deps.DraftRepo = persistence.NewDraftAdapter(sqlDB)
	deps.CredentialRepo = persistence.NewCredentialAdapter(sqlDB, enc)
	deps.ContactCache = persistence.NewCachedContactCache(
		persistence.NewContactCacheAdapter(sqlDB), redisCache, cfg.ContactCacheTTL)
	deps.Window = persistence.NewWindowBuffer(redisCache, cfg.WindowBufferSize)

	// Providers
	googleAuth := provider.NewGoogleAuth(provider.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		HTTPClient:   httputil.NewClient(httputil.GoogleClientConfig(cfg.ProviderTimeout)),
	}, deps.CredentialRepo)
	deps.Transport = provider.NewGmailTransport(googleAuth)
	deps.Directory = provider.NewPeopleDirectory(googleAuth)
	deps.Calendar = provider.NewGoogleCalendar(googleAuth)

	// Text generation; a nil generator keeps every component on its fallback.
	var text out.TextGenerator
	if cfg.RemoteModelEnabled() {
		deps.LLMClient = llm.NewClientWithConfig(llm.ClientConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
			HTTPClient:  httputil.NewClient(httputil.OpenAIClientConfig(cfg.ProviderTimeout)),
		})
		text = deps.LLMClient
	} else {
		logger.Info("remote model disabled, using template content")
	}

	// Services
	deps.Identity = identity.NewResolver(deps.CredentialRepo)
	deps.Classifier = intent.NewClassifier(intent.Config{ActionThreshold: cfg.IntentActionThreshold})
	deps.Matcher = contact.NewMatcher(deps.Directory, deps.ContactCache, contact.Config{
		MinScore:   cfg.ContactMinScore,
		MaxResults: cfg.ContactMaxResults,
	})
	deps.Frequent = contact.NewFrequentContacts(deps.Relationships)
	deps.Generator = compose.NewGenerator(text, compose.Config{
		UseFallback: cfg.UseTemplateFallback,
		Timeout:     cfg.ProviderTimeout,
	})
	deps.Drafts = draft.NewManager(deps.DraftRepo, deps.Transport, deps.Relationships, draft.Config{
		SendTimeout:     cfg.ProviderTimeout,
		ClaimStaleAfter: claimStaleAfter,
	}).WithImprover(deps.Generator)
	deps.Assistant = calendar.NewAssistant(deps.Calendar, text, calendar.Config{
		Timeout: cfg.ProviderTimeout,
	})
	deps.Chat = chat.NewService(chat.Deps{
		Repo:       deps.ChatRepo,
		Window:     deps.Window,
		Classifier: deps.Classifier,
		Matcher:    deps.Matcher,
		Generator:  deps.Generator,
		Drafts:     deps.Drafts,
		Calendar:   deps.Assistant,
		Text:       text,
	}, chatConfig(cfg))

	return deps, cleanup, nil
}

// chatConfig feeds the last few history messages to conversational replies.
func chatConfig(cfg *config.Config) chat.Config {
	return chat.Config{
		HistoryLimit: chat.DefaultHistoryLimit,
		Timeout:      cfg.ProviderTimeout,
	}
}
