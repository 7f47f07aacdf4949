package config

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("found %d configuration error(s):\n", len(errs)))
	for i, err := range errs {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Message))
	}
	return b.String()
}

// weightEpsilon is the tolerance for the criteria weight-sum invariant.
const weightEpsilon = 1e-9

// Validate validates the complete configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateIndex()...)
	errs = append(errs, c.validateCriteria()...)
	errs = append(errs, c.validateStudent()...)
	errs = append(errs, c.validateUpdater()...)

	if c.Analysis != nil && strings.TrimSpace(c.Analysis.Endpoint) == "" {
		errs = append(errs, ValidationError{
			Field:   "analysis.endpoint",
			Message: "analysis endpoint is required when analysis is configured",
		})
	}
	if c.Session.LowScoreLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "session.low_score_limit",
			Message: fmt.Sprintf("low_score_limit must not be negative, got %d", c.Session.LowScoreLimit),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateEmbedding validates embedding configuration
func (c *Config) validateEmbedding() ValidationErrors {
	var errs ValidationErrors

	if c.Embedding.Provider == "" {
		errs = append(errs, ValidationError{
			Field:   "embedding.provider",
			Message: "embedding provider is required",
		})
	}

	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, ValidationError{
			Field:   "embedding.dimensions",
			Message: fmt.Sprintf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions),
		})
	}

	switch strings.ToLower(c.Embedding.Provider) {
	case "", "openai":
		if c.Embedding.Model == "" {
			errs = append(errs, ValidationError{
				Field:   "embedding.model",
				Message: "embedding model is required for the openai provider",
			})
		}
		// Validate dimensions are reasonable (typical range: 128-4096)
		if c.Embedding.Dimensions > 0 && (c.Embedding.Dimensions < 128 || c.Embedding.Dimensions > 4096) {
			errs = append(errs, ValidationError{
				Field:   "embedding.dimensions",
				Message: fmt.Sprintf("embedding dimensions %d is outside typical range [128, 4096]", c.Embedding.Dimensions),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unsupported embedding provider %q", c.Embedding.Provider),
		})
	}

	if c.Embedding.TimeoutMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "embedding.timeout_ms",
			Message: fmt.Sprintf("embedding timeout must not be negative, got %d", c.Embedding.TimeoutMs),
		})
	}

	return errs
}

// validateIndex validates the knowledge index configuration
func (c *Config) validateIndex() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.Index.Provider) {
	case "memory":
		// No connection settings needed.
	case "milvus":
		if c.Index.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "index.host",
				Message: "index host is required for the milvus provider",
			})
		}
		if c.Index.Collection == "" {
			errs = append(errs, ValidationError{
				Field:   "index.collection",
				Message: "index collection is required for the milvus provider",
			})
		}
	case "":
		errs = append(errs, ValidationError{
			Field:   "index.provider",
			Message: "index provider is required",
		})
	default:
		errs = append(errs, ValidationError{
			Field:   "index.provider",
			Message: fmt.Sprintf("unsupported index provider %q", c.Index.Provider),
		})
	}

	if c.Index.TopK < 0 {
		errs = append(errs, ValidationError{
			Field:   "index.top_k",
			Message: fmt.Sprintf("top_k must not be negative, got %d", c.Index.TopK),
		})
	}

	return errs
}

// validateCriteria enforces the weight-sum invariant: the four criterion
// weights are each in [0,1] and sum to exactly 1.0.
func (c *Config) validateCriteria() ValidationErrors {
	var errs ValidationErrors

	weights := map[string]float64{
		"criteria.time_weight":     c.Criteria.TimeWeight,
		"criteria.style_weight":    c.Criteria.StyleWeight,
		"criteria.behavior_weight": c.Criteria.BehaviorWeight,
		"criteria.subject_weight":  c.Criteria.SubjectWeight,
	}
	sum := 0.0
	for field, w := range weights {
		if w < 0 || w > 1 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("weight %.4f outside [0,1]", w),
			})
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightEpsilon {
		errs = append(errs, ValidationError{
			Field:   "criteria",
			Message: fmt.Sprintf("criterion weights must sum to 1.0, got %.6f", sum),
		})
	}

	return errs
}

// validateStudent validates the baseline state configuration
func (c *Config) validateStudent() ValidationErrors {
	var errs ValidationErrors

	baselines := map[string]float64{
		"student.baseline_attention":   c.Student.BaselineAttention,
		"student.baseline_frustration": c.Student.BaselineFrustration,
		"student.baseline_confidence":  c.Student.BaselineConfidence,
	}
	for field, v := range baselines {
		if v < 0 || v > 1 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("baseline %.4f outside [0,1]", v),
			})
		}
	}

	return errs
}

// validateUpdater validates the knowledge updater thresholds
func (c *Config) validateUpdater() ValidationErrors {
	var errs ValidationErrors

	if c.Updater.MinOverall < 0 || c.Updater.MinOverall > 1 {
		errs = append(errs, ValidationError{
			Field:   "updater.min_overall",
			Message: fmt.Sprintf("min_overall %.4f outside [0,1]", c.Updater.MinOverall),
		})
	}
	if c.Updater.DedupThreshold < 0 || c.Updater.DedupThreshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "updater.dedup_threshold",
			Message: fmt.Sprintf("dedup_threshold %.4f outside [0,1]", c.Updater.DedupThreshold),
		})
	}
	if c.Updater.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "updater.max_tokens",
			Message: fmt.Sprintf("max_tokens must not be negative, got %d", c.Updater.MaxTokens),
		})
	}

	return errs
}
