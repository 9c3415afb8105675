package attributevalue

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/briar/pkg/database"
	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

// Repository handles attribute value (fact) persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new attribute value repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// DB exposes the underlying database handle so callers can share transactions.
func (r *Repository) DB() database.DB {
	return r.db
}

// ReplaceForProperty replaces all facts for a property with the provided set.
// The delete and inserts run in the caller's transaction when one is on the
// context, so a property write and its facts commit or roll back together.
func (r *Repository) ReplaceForProperty(ctx context.Context, tenantID, propertyID string, facts []models.AttributeValue) error {
	ctx, span := tracing.StartSpan(ctx, "attributevalue.Repository.ReplaceForProperty")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("attribute_values")
	db.Where(db.Equal("tenant_id", tenantID), db.Equal("property_id", propertyID))
	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":   tenantID,
			"property_id": propertyID,
		}).Error("Failed to delete existing attribute values")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete existing attribute values")
	}

	now := time.Now().UTC()

	// batch insert to stay under the driver's parameter limit
	const batchSize = 500
	for i := 0; i < len(facts); i += batchSize {
		end := i + batchSize
		if end > len(facts) {
			end = len(facts)
		}

		sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		sb.InsertInto("attribute_values")
		sb.Cols("tenant_id", "property_id", "attribute_id", "value_string", "value_integer", "value_boolean", "value_decimal", "created_at", "updated_at")
		for _, fact := range facts[i:end] {
			sb.Values(tenantID, propertyID, fact.AttributeID, fact.ValueString, fact.ValueInteger, fact.ValueBoolean, fact.ValueDecimal, now, now)
		}
		query, args := sb.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"tenant_id":   tenantID,
				"property_id": propertyID,
			}).Error("Failed to insert attribute values")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert attribute values")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit attribute value replacement")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return nil
}

// ListByProperty retrieves the typed facts for a property joined with their
// catalog attributes.
func (r *Repository) ListByProperty(ctx context.Context, tenantID, propertyID string) ([]models.DerivedFact, error) {
	ctx, span := tracing.StartSpan(ctx, "attributevalue.Repository.ListByProperty")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"av.property_id", "av.attribute_id", "av.value_string", "av.value_integer", "av.value_boolean", "av.value_decimal",
		"a.name AS attribute_name", "a.data_type",
	)
	sb.From("attribute_values av")
	sb.JoinWithOption(sqlbuilder.InnerJoin, "attributes a", "a.id = av.attribute_id")
	sb.Where(sb.Equal("av.tenant_id", tenantID), sb.Equal("av.property_id", propertyID))
	sb.OrderBy("a.name ASC")

	query, args := sb.Build()
	var facts []models.DerivedFact
	if err := r.db.SelectContext(ctx, &facts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list attribute values")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list attribute values")
	}
	return facts, nil
}

// CountByAttribute reports how many facts reference an attribute. Used to
// refuse data type changes once values exist.
func (r *Repository) CountByAttribute(ctx context.Context, tenantID, attributeID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "attributevalue.Repository.CountByAttribute")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("attribute_values")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("attribute_id", attributeID))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count attribute values")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count attribute values")
	}
	return count, nil
}
