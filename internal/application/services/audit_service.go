package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mediaudit/backend/internal/domain/entities"
	"github.com/mediaudit/backend/internal/domain/providers"
	"github.com/mediaudit/backend/internal/infrastructure/observability"
	apperrors "github.com/mediaudit/backend/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// extractCacheTTLSeconds keeps extraction results for a day. Re-auditing the
// same photo against a different policy must not cost another vision call.
const extractCacheTTLSeconds = 86400

// AuditRequest carries one audit run's inputs. BillImage is required; the
// policy inputs are optional and checked in order: an uploaded document wins
// over pasted text, and with neither the baseline applies.
type AuditRequest struct {
	BillImage     []byte
	BillMediaType string

	PolicyDocument  []byte
	PolicyMediaType string
	PolicyText      string
}

// AuditService orchestrates one audit run end to end: extract, normalize,
// build the ruleset, match, cross-check, aggregate. It owns the extraction
// cache and stamps the result's identity.
type AuditService struct {
	extractor  providers.BillExtractor
	cache      providers.CacheProvider
	normalizer *BillNormalizerService
	policies   *PolicyService
	matcher    *ItemMatcherService
	checker    *CrossCheckService
	risk       *RiskService
	metrics    *observability.Metrics
}

// NewAuditService creates a new audit orchestrator. The cache and metrics may
// be nil; the run then skips caching and metric recording.
func NewAuditService(
	extractor providers.BillExtractor,
	cache providers.CacheProvider,
	policies *PolicyService,
	metrics *observability.Metrics,
) *AuditService {
	return &AuditService{
		extractor:  extractor,
		cache:      cache,
		normalizer: NewBillNormalizerService(),
		policies:   policies,
		matcher:    NewItemMatcherService(),
		checker:    NewCrossCheckService(),
		risk:       NewRiskService(),
		metrics:    metrics,
	}
}

// Run executes one full audit.
func (s *AuditService) Run(ctx context.Context, req AuditRequest) (*entities.AuditResult, error) {
	ctx, span := observability.StartSpan(ctx, "audit.run")
	defer span.End()
	start := time.Now()
	logger := observability.LoggerFromContext(ctx)

	if len(req.BillImage) == 0 {
		return nil, apperrors.NewValidationError("a bill image is required")
	}

	ruleset, err := s.resolveRuleset(ctx, req)
	if err != nil {
		return nil, err
	}

	bill, warnings, err := s.ExtractBill(ctx, req.BillImage, req.BillMediaType)
	if err != nil {
		return nil, err
	}
	warnings = append(ruleset.Warnings, warnings...)

	matches := s.matcher.Match(bill, ruleset)
	verdicts := s.checker.Check(bill, matches, ruleset)
	result := s.risk.Aggregate(verdicts, warnings)
	result.ID = uuid.New().String()
	result.CreatedAt = time.Now().UTC()

	observability.SetSpanAttributes(span,
		attribute.String("audit.id", result.ID),
		attribute.String("audit.verdict", string(result.OverallVerdict)),
		attribute.Int("audit.risk_score", result.RiskScore),
		attribute.Int("audit.item_count", len(result.Items)),
	)
	if s.metrics != nil {
		observability.RecordAuditRunMetric(ctx, s.metrics, string(result.OverallVerdict), string(result.RiskLevel), time.Since(start))
	}

	logger.Info().
		Str("audit_id", result.ID).
		Str("verdict", string(result.OverallVerdict)).
		Int("risk_score", result.RiskScore).
		Str("risk_level", string(result.RiskLevel)).
		Int("items", len(result.Items)).
		Str("policy", ruleset.Name).
		Dur("duration", time.Since(start)).
		Msg("audit run completed")

	return result, nil
}

// RunExtracted audits already-extracted bill JSON against a policy text, or
// the baseline when the text is empty. No vision calls are made; evaluation
// and replay tooling run the deterministic part of the pipeline through this.
func (s *AuditService) RunExtracted(ctx context.Context, raw json.RawMessage, policyText string) (*entities.AuditResult, error) {
	ctx, span := observability.StartSpan(ctx, "audit.run_extracted")
	defer span.End()

	var ruleset *entities.PolicyRuleset
	if policyText != "" {
		ruleset = s.policies.ParseText(policyText)
	} else {
		ruleset = s.policies.Baseline()
	}

	bill, warnings, err := s.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	warnings = append(ruleset.Warnings, warnings...)

	matches := s.matcher.Match(bill, ruleset)
	verdicts := s.checker.Check(bill, matches, ruleset)
	result := s.risk.Aggregate(verdicts, warnings)
	result.ID = uuid.New().String()
	result.CreatedAt = time.Now().UTC()
	return result, nil
}

// ExtractBill extracts and normalizes a bill image without auditing it. The
// raw vision output is cached by image content hash.
func (s *AuditService) ExtractBill(ctx context.Context, image []byte, mediaType string) (*entities.BillRecord, []string, error) {
	raw, err := s.extractRaw(ctx, image, mediaType)
	if err != nil {
		return nil, nil, err
	}

	bill, warnings, err := s.normalizer.Normalize(raw)
	if err != nil {
		return nil, nil, err
	}
	return bill, warnings, nil
}

func (s *AuditService) extractRaw(ctx context.Context, image []byte, mediaType string) (json.RawMessage, error) {
	cacheKey := "extract:" + fingerprint(image)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			if s.metrics != nil {
				observability.RecordCacheHit(ctx, s.metrics, "extract")
			}
			return json.RawMessage(cached), nil
		}
		if s.metrics != nil {
			observability.RecordCacheMiss(ctx, s.metrics, "extract")
		}
	}

	raw, err := s.extractor.ExtractBill(ctx, image, mediaType)
	if err != nil {
		if errors.Is(err, providers.ErrExtractionUnauthorized) {
			return nil, apperrors.NewExternalError("vision provider rejected the credentials", err)
		}
		return nil, apperrors.NewExtractionError("could not extract a bill from the image", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, raw, extractCacheTTLSeconds); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to cache extraction result")
		}
	}

	return raw, nil
}

func (s *AuditService) resolveRuleset(ctx context.Context, req AuditRequest) (*entities.PolicyRuleset, error) {
	switch {
	case len(req.PolicyDocument) > 0:
		ruleset, err := s.policies.FromDocument(ctx, req.PolicyDocument, req.PolicyMediaType)
		if err != nil {
			return nil, apperrors.NewExtractionError("could not read the policy document", err)
		}
		return ruleset, nil
	case req.PolicyText != "":
		return s.policies.ParseText(req.PolicyText), nil
	default:
		return s.policies.Baseline(), nil
	}
}

func fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
