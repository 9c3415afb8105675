package property

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/briar/pkg/database"
	"github.com/Ramsey-B/briar/pkg/filter"
	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

var propertyColumns = []string{
	"id", "tenant_id", "owner_id", "property_type", "title", "description", "status",
	"city", "price", "latitude", "longitude", "raw_attributes", "created_at", "updated_at", "deleted_at",
}

// Repository handles property persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new property repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// DB exposes the underlying database handle so callers can share transactions.
func (r *Repository) DB() database.DB {
	return r.db
}

// Create inserts a property. The raw attribute payload is stored verbatim;
// typed facts are derived separately in the same transaction. Runs in the
// caller's transaction when one is on the context.
func (r *Repository) Create(ctx context.Context, tenantID, ownerID string, req models.CreatePropertyRequest) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":        "Create",
		"tenant_id":     tenantID,
		"property_type": req.PropertyType,
	})

	raw, err := json.Marshal(req.Attributes)
	if err != nil || req.Attributes == nil {
		raw = json.RawMessage("{}")
	}

	now := time.Now().UTC()
	prop := &models.Property{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		OwnerID:       ownerID,
		PropertyType:  req.PropertyType,
		Title:         req.Title,
		Description:   req.Description,
		Status:        models.PropertyStatusDraft,
		City:          req.City,
		Price:         req.Price,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		RawAttributes: raw,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("properties")
	sb.Cols(propertyColumns...)
	sb.Values(prop.ID, prop.TenantID, prop.OwnerID, prop.PropertyType, prop.Title, prop.Description, prop.Status,
		prop.City, prop.Price, prop.Latitude, prop.Longitude, database.JSONParam(prop.RawAttributes), prop.CreatedAt, prop.UpdatedAt, nil)

	query, args := sb.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create property")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create property")
	}
	if err := tx.Commit(ctx); err != nil {
		log.WithError(err).Error("Failed to commit property creation")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	log.WithFields(map[string]any{"id": prop.ID}).Info("Created property")
	return prop, nil
}

// Get retrieves a property by ID
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(propertyColumns...)
	sb.From("properties")
	sb.Where(sb.Equal("id", id), sb.Equal("tenant_id", tenantID), sb.IsNull("deleted_at"))

	query, args := sb.Build()
	var prop models.Property
	if err := r.db.GetContext(ctx, &prop, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("property %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get property")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get property")
	}
	return &prop, nil
}

// Update applies the populated fields of req and returns the updated row.
// Runs in the caller's transaction when one is on the context so a fact
// re-derivation commits with it.
func (r *Repository) Update(ctx context.Context, tenantID, id string, req models.UpdatePropertyRequest) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Update")
	defer span.End()

	existing, err := r.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		existing.Title = *req.Title
	}
	if req.Description != nil {
		existing.Description = req.Description
	}
	if req.Status != nil {
		existing.Status = *req.Status
	}
	if req.City != nil {
		existing.City = req.City
	}
	if req.Price != nil {
		existing.Price = req.Price
	}
	if req.Latitude != nil {
		existing.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		existing.Longitude = req.Longitude
	}
	if req.Attributes != nil {
		raw, err := json.Marshal(req.Attributes)
		if err != nil {
			raw = json.RawMessage("{}")
		}
		existing.RawAttributes = raw
	}
	existing.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("properties")
	ub.Set(
		ub.Assign("title", existing.Title),
		ub.Assign("description", existing.Description),
		ub.Assign("status", existing.Status),
		ub.Assign("city", existing.City),
		ub.Assign("price", existing.Price),
		ub.Assign("latitude", existing.Latitude),
		ub.Assign("longitude", existing.Longitude),
		ub.Assign("raw_attributes", database.JSONParam(existing.RawAttributes)),
		ub.Assign("updated_at", existing.UpdatedAt),
	)
	ub.Where(ub.Equal("id", id), ub.Equal("tenant_id", tenantID), ub.IsNull("deleted_at"))

	query, args := ub.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update property")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update property")
	}
	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit property update")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return existing, nil
}

// UpdateStatus moves a property through its lifecycle.
func (r *Repository) UpdateStatus(ctx context.Context, tenantID, id, status string) error {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.UpdateStatus")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("properties")
	ub.Set(ub.Assign("status", status), ub.Assign("updated_at", time.Now().UTC()))
	ub.Where(ub.Equal("id", id), ub.Equal("tenant_id", tenantID), ub.IsNull("deleted_at"))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update property status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update property status")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("property %s not found", id))
	}
	return nil
}

// Delete soft deletes a property and hard deletes its derived facts and
// matches, which can always be re-derived.
func (r *Repository) Delete(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Delete")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"attribute_values", "matches"} {
		db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
		db.DeleteFrom(table)
		db.Where(db.Equal("tenant_id", tenantID), db.Equal("property_id", id))
		query, args := db.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to delete property dependents")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete property")
		}
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("properties")
	ub.Set(ub.Assign("deleted_at", time.Now().UTC()))
	ub.Where(ub.Equal("id", id), ub.Equal("tenant_id", tenantID), ub.IsNull("deleted_at"))

	query, args := ub.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete property")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete property")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("property %s not found", id))
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit property deletion")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return nil
}

// Search runs a paged property search. Column criteria go straight into the
// WHERE clause; the compiled dynamic filter contributes one EXISTS predicate
// per requested attribute.
func (r *Repository) Search(ctx context.Context, tenantID string, q models.PropertySearchQuery, df filter.DynamicFilter) (*models.PropertyListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Search")
	defer span.End()

	page := q.Page
	pageSize := q.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	build := func(sb *sqlbuilder.SelectBuilder) {
		sb.From("properties p")
		where := []string{sb.Equal("p.tenant_id", tenantID), sb.IsNull("p.deleted_at")}
		if q.PropertyType != "" {
			where = append(where, sb.Equal("p.property_type", q.PropertyType))
		}
		if q.Status != "" {
			where = append(where, sb.Equal("p.status", q.Status))
		}
		if q.City != "" {
			where = append(where, "LOWER(p.city) LIKE "+sb.Var("%"+strings.ToLower(q.City)+"%"))
		}
		if q.MinPrice != nil {
			where = append(where, sb.GreaterEqualThan("p.price", *q.MinPrice))
		}
		if q.MaxPrice != nil {
			where = append(where, sb.LessEqualThan("p.price", *q.MaxPrice))
		}
		if q.Text != "" {
			pattern := "%" + strings.ToLower(q.Text) + "%"
			where = append(where, sb.Or(
				"LOWER(p.title) LIKE "+sb.Var(pattern),
				"LOWER(p.description) LIKE "+sb.Var(pattern),
			))
		}
		sb.Where(where...)
		df.Apply(sb, "p.id")
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	build(countSb)

	countQuery, countArgs := countSb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count properties")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count properties")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	cols := make([]string, len(propertyColumns))
	for i, col := range propertyColumns {
		cols[i] = "p." + col
	}
	sb.Select(cols...)
	build(sb)
	sb.OrderBy("p.created_at DESC")
	sb.Limit(pageSize).Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var props []models.Property
	if err := r.db.SelectContext(ctx, &props, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search properties")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search properties")
	}

	return &models.PropertyListResponse{
		Items:      props,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}
