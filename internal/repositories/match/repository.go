package match

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/briar/pkg/database"
	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

var matchColumns = []string{
	"id", "tenant_id", "property_request_id", "property_id", "score", "is_read", "created_at",
}

// Repository handles match persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// ExistingPairs returns the request IDs among candidates that already hold a
// match for the property. One round trip replaces a per-candidate existence
// probe.
func (r *Repository) ExistingPairs(ctx context.Context, tenantID, propertyID string, requestIDs []string) (map[string]struct{}, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.ExistingPairs")
	defer span.End()

	existing := map[string]struct{}{}
	if len(requestIDs) == 0 {
		return existing, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("property_request_id")
	sb.From("matches")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("property_id", propertyID),
		sb.In("property_request_id", sqlbuilder.List(requestIDs)),
	)

	query, args := sb.Build()
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load existing match pairs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load existing matches")
	}
	for _, id := range ids {
		existing[id] = struct{}{}
	}
	return existing, nil
}

// CreateBatch inserts all matches from one engine run in a single
// transaction. The unique (property_request_id, property_id) constraint
// makes concurrent runs safe; conflicting rows are skipped rather than
// failing the batch.
func (r *Repository) CreateBatch(ctx context.Context, tenantID string, matches []models.Match) ([]models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.CreateBatch")
	defer span.End()

	if len(matches) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	for i := range matches {
		if matches[i].ID == "" {
			matches[i].ID = uuid.New().String()
		}
		matches[i].TenantID = tenantID
		matches[i].CreatedAt = now
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	sb := database.NewInsertBuilder()
	sb.InsertInto("matches")
	sb.Cols(matchColumns...)
	for _, m := range matches {
		sb.Values(m.ID, m.TenantID, m.PropertyRequestID, m.PropertyID, m.Score, m.IsRead, m.CreatedAt)
	}
	sb.OnConflictDoNothing("property_request_id", "property_id")

	query, args := sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert matches")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert matches")
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit match batch")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"count":     len(matches),
	}).Info("Created matches")
	return matches, nil
}

// ListByRequest retrieves the matches for one search alert, newest first.
func (r *Repository) ListByRequest(ctx context.Context, tenantID, requestID string) ([]models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.ListByRequest")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(matchColumns...)
	sb.From("matches")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("property_request_id", requestID))
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var matches []models.Match
	if err := r.db.SelectContext(ctx, &matches, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list matches")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list matches")
	}
	return matches, nil
}

// ListByProperty retrieves the matches recorded against a property.
func (r *Repository) ListByProperty(ctx context.Context, tenantID, propertyID string) ([]models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.ListByProperty")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(matchColumns...)
	sb.From("matches")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("property_id", propertyID))
	sb.OrderBy("score DESC", "created_at DESC")

	query, args := sb.Build()
	var matches []models.Match
	if err := r.db.SelectContext(ctx, &matches, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list matches")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list matches")
	}
	return matches, nil
}

// MarkRead flags a match as seen by the agent.
func (r *Repository) MarkRead(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.MarkRead")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("matches")
	ub.Set(ub.Assign("is_read", true))
	ub.Where(ub.Equal("id", id), ub.Equal("tenant_id", tenantID))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark match read")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark match read")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "match not found")
	}
	return nil
}
