package ranking

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/herdask/internal/domain"
	"github.com/kailas-cloud/herdask/internal/domain/query"
	domrank "github.com/kailas-cloud/herdask/internal/domain/ranking"
)

// Ranker scores every embedded listing against a query vector and returns the hybrid top-k.
type Ranker struct {
	repo          Repository
	collections   []string
	dimensions    int
	minSimilarity float64
	logger        *zap.Logger
}

// New creates a ranker over the given collections. Collection order is the tie-break order.
func New(repo Repository, collections []string, logger *zap.Logger) *Ranker {
	return &Ranker{
		repo:        repo,
		collections: collections,
		logger:      logger,
	}
}

// WithDimensions pins the expected embedding dimensionality (0 = length of the query vector).
func (r *Ranker) WithDimensions(dim int) *Ranker {
	r.dimensions = dim
	return r
}

// WithMinSimilarity excludes listings whose cosine score is below threshold (0 disables).
func (r *Ranker) WithMinSimilarity(threshold float64) *Ranker {
	r.minSimilarity = threshold
	return r
}

// Rank applies hard filters, scores the survivors and returns at most topK results
// ordered by final score. Ties keep enumeration order. topK <= 0 returns every survivor.
// An empty result is not an error.
func (r *Ranker) Rank(
	ctx context.Context, vector []float32, filters query.Filters, topK int,
) ([]domrank.ScoredListing, error) {
	if err := domain.CheckVector(vector, r.dimensions); err != nil {
		return nil, fmt.Errorf("query vector: %w", err)
	}

	perCollection := make([][]domrank.ScoredListing, len(r.collections))

	g, gctx := errgroup.WithContext(ctx)
	for i, col := range r.collections {
		g.Go(func() error {
			scored, err := r.scoreCollection(gctx, col, vector, filters)
			if err != nil {
				return err
			}
			perCollection[i] = scored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRanking, err)
	}

	results := make([]domrank.ScoredListing, 0)
	for _, scored := range perCollection {
		results = append(results, scored...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore() > results[j].FinalScore()
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

func (r *Ranker) scoreCollection(
	ctx context.Context, collection string, vector []float32, filters query.Filters,
) ([]domrank.ScoredListing, error) {
	var (
		out     []domrank.ScoredListing
		skipped int
	)

	for l, err := range r.repo.Scan(ctx, collection) {
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		if !l.HasUsableEmbedding(len(vector)) {
			skipped++
			continue
		}
		if !passesHardFilters(&l, filters) {
			continue
		}

		vs, err := CosineSimilarity(vector, l.Embedding())
		if err != nil {
			skipped++
			continue
		}
		if r.minSimilarity > 0 && vs < r.minSimilarity {
			continue
		}

		out = append(out, domrank.New(l, vs, MetadataScore(&l, filters)))
	}

	if skipped > 0 {
		r.logger.Debug("Skipped listings without usable embedding",
			zap.String("collection", collection),
			zap.Int("skipped", skipped),
		)
	}

	return out, nil
}
