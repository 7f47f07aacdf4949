package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/lumenlearn/teachsim/common/logger"
	"github.com/lumenlearn/teachsim/config"
	"github.com/lumenlearn/teachsim/schema"
)

// Field names of the persisted knowledge-entry layout.
const (
	fieldID            = "id"
	fieldText          = "text"
	fieldSubject       = "subject"
	fieldBehaviorTag   = "behavior_tag"
	fieldLearningStyle = "learning_style_tag"
	fieldEffectiveness = "effectiveness"
	fieldVector        = "vector"
	fieldCreatedAt     = "created_at"
)

// MilvusStore backs the knowledge index with a Milvus collection for
// deployments where the strategy corpus outgrows a single process.
type MilvusStore struct {
	cli        client.Client
	collection string
	dimensions int
}

// NewMilvusStore connects to Milvus and ensures the strategy collection,
// HNSW index and load state exist.
func NewMilvusStore(ctx context.Context, cfg config.IndexConfig, dimensions int) (*MilvusStore, error) {
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}
	cli, err := client.NewClient(ctx, client.Config{
		Address:  addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus %s: %w", addr, err)
	}

	s := &MilvusStore{cli: cli, collection: cfg.Collection, dimensions: dimensions}
	if err := s.ensureCollection(ctx); err != nil {
		_ = cli.Close()
		return nil, err
	}
	return s, nil
}

func (s *MilvusStore) ensureCollection(ctx context.Context) error {
	has, err := s.cli.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", s.collection, err)
	}
	if !has {
		sch := entity.NewSchema().
			WithName(s.collection).
			WithDescription("teaching strategy knowledge entries").
			WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192)).
			WithField(entity.NewField().WithName(fieldSubject).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(fieldBehaviorTag).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(fieldLearningStyle).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(fieldEffectiveness).WithDataType(entity.FieldTypeDouble)).
			WithField(entity.NewField().WithName(fieldCreatedAt).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dimensions)))
		if err := s.cli.CreateCollection(ctx, sch, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("create collection %s: %w", s.collection, err)
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 64)
		if err != nil {
			return fmt.Errorf("build hnsw index params: %w", err)
		}
		if err := s.cli.CreateIndex(ctx, s.collection, fieldVector, idx, false); err != nil {
			return fmt.Errorf("create vector index: %w", err)
		}
		logger.Infof("milvus: created collection %s (dim=%d)", s.collection, s.dimensions)
	}
	if err := s.cli.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("load collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert implements Store.
func (s *MilvusStore) Upsert(ctx context.Context, strat schema.Strategy) error {
	if err := schema.ValidateStrategy(strat, s.dimensions); err != nil {
		return fmt.Errorf("upsert strategy %s: %w", strat.ID, err)
	}
	cols := []entity.Column{
		entity.NewColumnVarChar(fieldID, []string{strat.ID}),
		entity.NewColumnVarChar(fieldText, []string{strat.Text}),
		entity.NewColumnVarChar(fieldSubject, []string{string(strat.Subject)}),
		entity.NewColumnVarChar(fieldBehaviorTag, []string{string(strat.BehaviorTag)}),
		entity.NewColumnVarChar(fieldLearningStyle, []string{string(strat.LearningStyle)}),
		entity.NewColumnDouble(fieldEffectiveness, []float64{strat.Effectiveness}),
		entity.NewColumnInt64(fieldCreatedAt, []int64{strat.CreatedAt.UnixNano()}),
		entity.NewColumnFloatVector(fieldVector, s.dimensions, [][]float32{strat.Vector}),
	}
	if _, err := s.cli.Insert(ctx, s.collection, "", cols...); err != nil {
		return fmt.Errorf("milvus insert %s: %w", strat.ID, err)
	}
	return nil
}

// Query implements Store. Milvus returns raw cosine similarity; the
// effectiveness weighting and created_at tie-break are applied here, so the
// ranking contract matches the in-memory store.
func (s *MilvusStore) Query(ctx context.Context, vector []float32, filters Filters, k int) ([]schema.StrategyMatch, error) {
	if k <= 0 {
		k = 5
	}
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("build search params: %w", err)
	}
	outputs := []string{fieldID, fieldText, fieldSubject, fieldBehaviorTag, fieldLearningStyle, fieldEffectiveness, fieldCreatedAt}
	// Overfetch so the client-side effectiveness weighting cannot push a
	// qualifying entry out of the top k.
	fetch := k * 4
	results, err := s.cli.Search(ctx, s.collection, nil, buildExpr(filters), outputs,
		[]entity.Vector{entity.FloatVector(vector)}, fieldVector, entity.COSINE, fetch, sp)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}

	matches := make([]schema.StrategyMatch, 0, k)
	for _, res := range results {
		for i := 0; i < res.ResultCount; i++ {
			strat, err := rowToStrategy(res, i)
			if err != nil {
				logger.Warnf("milvus: skipping malformed row: %v", err)
				continue
			}
			sim := float64(res.Scores[i])
			matches = append(matches, schema.StrategyMatch{
				Strategy:   strat,
				Similarity: sim,
				Score:      sim * strat.Effectiveness,
			})
		}
	}
	if len(matches) == 0 {
		return []schema.StrategyMatch{}, nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if !matches[i].Strategy.CreatedAt.Equal(matches[j].Strategy.CreatedAt) {
			return matches[i].Strategy.CreatedAt.Before(matches[j].Strategy.CreatedAt)
		}
		return matches[i].Strategy.ID < matches[j].Strategy.ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count implements Store.
func (s *MilvusStore) Count(ctx context.Context) (int, error) {
	stats, err := s.cli.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("milvus statistics: %w", err)
	}
	var n int
	if _, err := fmt.Sscanf(stats["row_count"], "%d", &n); err != nil {
		return 0, fmt.Errorf("parse row_count %q: %w", stats["row_count"], err)
	}
	return n, nil
}

// Close releases the client connection.
func (s *MilvusStore) Close() error {
	return s.cli.Close()
}

// buildExpr translates Filters into a Milvus boolean expression.
func buildExpr(filters Filters) string {
	var parts []string
	if filters.Subject != "" {
		parts = append(parts, fmt.Sprintf(`%s == "%s"`, fieldSubject, filters.Subject))
	}
	if filters.BehaviorTag != "" {
		parts = append(parts, fmt.Sprintf(`%s == "%s"`, fieldBehaviorTag, filters.BehaviorTag))
	}
	if filters.LearningStyle != "" {
		parts = append(parts, fmt.Sprintf(`%s == "%s"`, fieldLearningStyle, filters.LearningStyle))
	}
	return strings.Join(parts, " && ")
}

func rowToStrategy(res client.SearchResult, i int) (schema.Strategy, error) {
	var strat schema.Strategy
	str := func(name string) (string, error) {
		col := res.Fields.GetColumn(name)
		if col == nil {
			return "", fmt.Errorf("missing column %s", name)
		}
		vc, ok := col.(*entity.ColumnVarChar)
		if !ok {
			return "", fmt.Errorf("column %s is not varchar", name)
		}
		return vc.Data()[i], nil
	}

	var err error
	if strat.ID, err = str(fieldID); err != nil {
		return strat, err
	}
	if strat.Text, err = str(fieldText); err != nil {
		return strat, err
	}
	subj, err := str(fieldSubject)
	if err != nil {
		return strat, err
	}
	strat.Subject = schema.Subject(subj)
	btag, err := str(fieldBehaviorTag)
	if err != nil {
		return strat, err
	}
	strat.BehaviorTag = schema.BehaviorTag(btag)
	style, err := str(fieldLearningStyle)
	if err != nil {
		return strat, err
	}
	strat.LearningStyle = schema.LearningStyle(style)

	if col, ok := res.Fields.GetColumn(fieldEffectiveness).(*entity.ColumnDouble); ok {
		strat.Effectiveness = col.Data()[i]
	} else {
		return strat, fmt.Errorf("missing column %s", fieldEffectiveness)
	}
	if col, ok := res.Fields.GetColumn(fieldCreatedAt).(*entity.ColumnInt64); ok {
		strat.CreatedAt = time.Unix(0, col.Data()[i])
	} else {
		return strat, fmt.Errorf("missing column %s", fieldCreatedAt)
	}
	return strat, nil
}
