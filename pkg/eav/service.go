package eav

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/briar/internal/repositories/attributevalue"
	"github.com/Ramsey-B/briar/pkg/catalog"
	"github.com/Ramsey-B/briar/pkg/metrics"
	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

// Service derives typed facts from raw property payloads and swaps the
// stored fact set.
type Service struct {
	logger  ectologger.Logger
	catalog *catalog.Cache
	facts   *attributevalue.Repository
}

// NewService creates a new fact derivation service.
func NewService(logger ectologger.Logger, cat *catalog.Cache, facts *attributevalue.Repository) *Service {
	return &Service{
		logger:  logger,
		catalog: cat,
		facts:   facts,
	}
}

// ReplaceFacts resolves the raw payload against the tenant's catalog and
// replaces the property's facts with the result. It joins the transaction on
// the context when the caller opened one, so a property write and its facts
// commit together. Re-running with the same payload converges to the same
// fact set.
func (s *Service) ReplaceFacts(ctx context.Context, tenantID, propertyID string, payload map[string]any) ([]models.DerivedFact, error) {
	ctx, span := tracing.StartSpan(ctx, "eav.Service.ReplaceFacts")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"method":      "ReplaceFacts",
		"tenant_id":   tenantID,
		"property_id": propertyID,
	})

	idx, err := s.catalog.GetIndex(ctx, tenantID)
	if err != nil {
		log.WithError(err).Error("Failed to load attribute catalog")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load attribute catalog")
	}

	result := ResolvePayload(idx, payload)
	for _, fact := range result.Facts {
		metrics.FactsResolvedTotal.WithLabelValues(tenantID, string(fact.Attribute.DataType)).Inc()
	}
	for reason, count := range result.Dropped {
		metrics.FactsDroppedTotal.WithLabelValues(tenantID, reason).Add(float64(count))
	}

	values := make([]models.AttributeValue, 0, len(result.Facts))
	derived := make([]models.DerivedFact, 0, len(result.Facts))
	for _, fact := range result.Facts {
		value := fact.Value
		value.PropertyID = propertyID
		values = append(values, value)
		derived = append(derived, models.DerivedFact{
			AttributeValue: value,
			AttributeName:  fact.Attribute.Name,
			DataType:       fact.Attribute.DataType,
		})
	}

	if err := s.facts.ReplaceForProperty(ctx, tenantID, propertyID, values); err != nil {
		return nil, err
	}
	metrics.FactReplacementsTotal.WithLabelValues(tenantID).Inc()

	log.WithFields(map[string]any{
		"payload_pairs": len(payload),
		"facts":         len(values),
	}).Info("Replaced property facts")
	return derived, nil
}

// ListFacts returns the stored typed facts for a property.
func (s *Service) ListFacts(ctx context.Context, tenantID, propertyID string) ([]models.DerivedFact, error) {
	ctx, span := tracing.StartSpan(ctx, "eav.Service.ListFacts")
	defer span.End()

	return s.facts.ListByProperty(ctx, tenantID, propertyID)
}
