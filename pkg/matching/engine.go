package matching

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/briar/internal/repositories/attributevalue"
	"github.com/Ramsey-B/briar/internal/repositories/match"
	"github.com/Ramsey-B/briar/internal/repositories/property"
	"github.com/Ramsey-B/briar/internal/repositories/propertyrequest"
	"github.com/Ramsey-B/briar/pkg/catalog"
	"github.com/Ramsey-B/briar/pkg/metrics"
	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/notify"
	"github.com/Ramsey-B/briar/pkg/redis"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

// EngineConfig contains configuration for the match engine
type EngineConfig struct {
	ScoreThreshold  float64       // Minimum score to record a match (default: 0.8)
	LockTTL         time.Duration // TTL on the per-property matching lock
	LockWaitTimeout time.Duration // How long a run waits for the lock
	NotifyTimeout   time.Duration // Per-run budget for notification dispatch
}

// DefaultEngineConfig returns default engine configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ScoreThreshold:  0.8,
		LockTTL:         30 * time.Second,
		LockWaitTimeout: 5 * time.Second,
		NotifyTimeout:   10 * time.Second,
	}
}

// Engine runs property-to-alert matching. A run is triggered whenever a
// property is created, updated or published; concurrent runs for the same
// property are serialized through a Redis lock so the unique pair constraint
// is the only other line of defense.
type Engine struct {
	logger       ectologger.Logger
	propertyRepo *property.Repository
	requestRepo  *propertyrequest.Repository
	matchRepo    *match.Repository
	factsRepo    *attributevalue.Repository
	catalog      *catalog.Cache
	scorer       *Scorer
	notifier     notify.Notifier
	locker       *redis.Locker
	config       EngineConfig
}

// NewEngine creates a new match engine. locker may be nil when Redis is
// disabled; runs then rely on the pair constraint alone.
func NewEngine(
	logger ectologger.Logger,
	propertyRepo *property.Repository,
	requestRepo *propertyrequest.Repository,
	matchRepo *match.Repository,
	factsRepo *attributevalue.Repository,
	cat *catalog.Cache,
	notifier notify.Notifier,
	locker *redis.Locker,
	config EngineConfig,
) *Engine {
	if config.ScoreThreshold <= 0 {
		config.ScoreThreshold = 0.8
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &Engine{
		logger:       logger,
		propertyRepo: propertyRepo,
		requestRepo:  requestRepo,
		matchRepo:    matchRepo,
		factsRepo:    factsRepo,
		catalog:      cat,
		scorer:       NewScorer(),
		notifier:     notifier,
		locker:       locker,
		config:       config,
	}
}

// Run evaluates every active alert of the property's type against the
// property, stores the pairs that clear the threshold and dispatches
// best-effort notifications. Matches are never rescinded: a pair that
// already exists is skipped no matter how the property has changed since.
func (e *Engine) Run(ctx context.Context, tenantID, propertyID string) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.Run")
	defer span.End()

	start := time.Now()
	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"method":      "Run",
		"tenant_id":   tenantID,
		"property_id": propertyID,
	})

	if e.locker != nil {
		lock, err := e.locker.TryAcquire(ctx, "matching:property:"+propertyID, e.config.LockTTL, e.config.LockWaitTimeout)
		if err != nil {
			if errors.Is(err, redis.ErrLockNotAcquired) {
				metrics.MatchingRunsTotal.WithLabelValues(tenantID, "contended").Inc()
				return nil, httperror.NewHTTPError(http.StatusConflict, "matching already running for property")
			}
			metrics.MatchingRunsTotal.WithLabelValues(tenantID, "error").Inc()
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to acquire matching lock")
		}
		defer lock.Release(ctx)
	}

	result, err := e.run(ctx, tenantID, propertyID, log)
	metrics.MatchingRunDuration.WithLabelValues(tenantID).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MatchingRunsTotal.WithLabelValues(tenantID, "error").Inc()
		return nil, err
	}
	metrics.MatchingRunsTotal.WithLabelValues(tenantID, "success").Inc()
	return result, nil
}

func (e *Engine) run(ctx context.Context, tenantID, propertyID string, log ectologger.Logger) (*models.MatchResult, error) {
	prop, err := e.propertyRepo.Get(ctx, tenantID, propertyID)
	if err != nil {
		return nil, err
	}

	result := &models.MatchResult{PropertyID: propertyID}

	// Draft, sold and archived listings never notify buyers.
	if prop.Status != models.PropertyStatusPublished {
		log.WithFields(map[string]any{"status": prop.Status}).Debug("Property not published, skipping matching")
		return result, nil
	}

	facts, err := e.factsRepo.ListByProperty(ctx, tenantID, propertyID)
	if err != nil {
		return nil, err
	}

	idx, err := e.catalog.GetIndex(ctx, tenantID)
	if err != nil {
		log.WithError(err).Error("Failed to load attribute catalog")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load attribute catalog")
	}

	requests, err := e.requestRepo.ListActiveByType(ctx, tenantID, prop.PropertyType)
	if err != nil {
		return nil, err
	}
	result.AlertsEvaluated = len(requests)
	if len(requests) == 0 {
		return result, nil
	}

	requestIDs := make([]string, len(requests))
	for i, r := range requests {
		requestIDs[i] = r.ID
	}
	existing, err := e.matchRepo.ExistingPairs(ctx, tenantID, propertyID, requestIDs)
	if err != nil {
		return nil, err
	}

	var pending []models.Match
	matchedRequests := map[string]*models.PropertyRequest{}
	for i := range requests {
		request := &requests[i]
		if _, ok := existing[request.ID]; ok {
			result.SkippedExisting++
			continue
		}
		score, ok := e.scorer.Score(idx, request, prop, facts)
		if !ok || score < e.config.ScoreThreshold {
			continue
		}
		pending = append(pending, models.Match{
			PropertyRequestID: request.ID,
			PropertyID:        propertyID,
			Score:             score,
		})
		matchedRequests[request.ID] = request
	}

	if len(pending) == 0 {
		log.WithFields(map[string]any{"alerts": len(requests)}).Info("Matching run produced no new matches")
		return result, nil
	}

	created, err := e.matchRepo.CreateBatch(ctx, tenantID, pending)
	if err != nil {
		return nil, err
	}
	result.NewMatches = created
	metrics.MatchesCreatedTotal.WithLabelValues(tenantID).Add(float64(len(created)))

	result.NotifiedCount = e.notifyAll(ctx, tenantID, created, matchedRequests, log)

	log.WithFields(map[string]any{
		"alerts":      len(requests),
		"new_matches": len(created),
		"notified":    result.NotifiedCount,
	}).Info("Matching run complete")
	return result, nil
}

// notifyAll dispatches one event per created match. Failures are counted and
// logged, never returned; the matches are already committed.
func (e *Engine) notifyAll(ctx context.Context, tenantID string, created []models.Match, requests map[string]*models.PropertyRequest, log ectologger.Logger) int {
	notifyCtx := ctx
	if e.config.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		notifyCtx, cancel = context.WithTimeout(ctx, e.config.NotifyTimeout)
		defer cancel()
	}

	notified := 0
	for _, m := range created {
		request, ok := requests[m.PropertyRequestID]
		if !ok {
			continue
		}
		event := notify.NewMatchEvent(m, *request)
		if err := e.notifier.NotifyMatch(notifyCtx, event); err != nil {
			metrics.NotificationFailuresTotal.WithLabelValues(tenantID).Inc()
			log.WithError(err).WithFields(map[string]any{"match_id": m.ID}).Warn("Failed to publish match notification")
			continue
		}
		notified++
	}
	return notified
}
