package herdask

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	embedder  Embedder
	generator Generator

	collections       []string
	locations         []string
	vectorDimensions  int
	minSimilarity     float64
	topK              int
	cacheTTL          time.Duration
	cacheEntries      int
	generationTimeout time.Duration
	systemPrompt      string
	sharedLockLease   time.Duration
	keyPrefix         string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator sets the chat model. Required.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithCollections sets the listing collections searched on every question.
// Defaults to buffaloes, chickens and goats.
func WithCollections(names ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.collections = names
	})
}

// WithLocations sets the known location vocabulary used to parse questions.
func WithLocations(names ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.locations = names
	})
}

// WithVectorDimensions drops listings whose stored vector has a different length.
// Zero (default) accepts any non-empty vector matching the query.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithMinSimilarity drops listings below the given cosine similarity.
func WithMinSimilarity(threshold float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.minSimilarity = threshold
	})
}

// WithTopK sets how many listings go into the generation context. Default: 3.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithAnswerCache sizes the in-process answer cache. Defaults: 5 minutes, 1024 entries.
func WithAnswerCache(ttl time.Duration, maxEntries int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
		c.cacheEntries = maxEntries
	})
}

// WithGenerationTimeout bounds each generation call. Zero (default) leaves it unbounded.
func WithGenerationTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.generationTimeout = d
	})
}

// WithSystemPrompt replaces the default assistant instructions.
func WithSystemPrompt(prompt string) Option {
	return optionFunc(func(c *clientConfig) {
		c.systemPrompt = prompt
	})
}

// WithSharedLock keeps the per-caller admission lock in the database so that
// several processes reject concurrent questions from the same caller.
// The lease bounds how long a crashed holder blocks its caller.
func WithSharedLock(lease time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.sharedLockLease = lease
	})
}

// WithKeyPrefix sets the database key prefix. Default: "herdask:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
