package attribute

import (
	"context"
	"fmt"
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

// Repository handles catalog attribute persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new attribute repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create creates a new catalog attribute with its property type scopes
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateAttributeRequest) (*models.Attribute, error) {
	ctx, span := tracing.StartSpan(ctx, "attribute.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":    "Create",
		"tenant_id": tenantID,
		"name":      req.Name,
	})

	id := uuid.New().String()
	now := time.Now().UTC()

	attr := &models.Attribute{
		ID:           id,
		TenantID:     tenantID,
		Name:         req.Name,
		DataType:     req.DataType,
		IsFilterable: req.IsFilterable,
		Options:      database.NewJSONB(req.Options),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("attributes")
	sb.Cols("id", "tenant_id", "name", "data_type", "is_filterable", "options", "created_at", "updated_at")
	sb.Values(attr.ID, attr.TenantID, attr.Name, attr.DataType, attr.IsFilterable, attr.Options, attr.CreatedAt, attr.UpdatedAt)

	query, args := sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create attribute")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create attribute")
	}

	if err := r.replaceScopes(ctx, tx, tenantID, id, req.PropertyTypes); err != nil {
		log.WithError(err).Error("Failed to create attribute scopes")
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		log.WithError(err).Error("Failed to commit attribute creation")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	attr.Scopes = scopesFor(tenantID, id, req.PropertyTypes)
	log.WithFields(map[string]any{"id": id}).Info("Created attribute")
	return attr, nil
}

// Get retrieves an attribute by ID with its scopes
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*models.Attribute, error) {
	ctx, span := tracing.StartSpan(ctx, "attribute.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "name", "data_type", "is_filterable", "options", "created_at", "updated_at")
	sb.From("attributes")
	sb.Where(sb.Equal("id", id), sb.Equal("tenant_id", tenantID))

	query, args := sb.Build()
	var attr models.Attribute
	if err := r.db.GetContext(ctx, &attr, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("attribute %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get attribute")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get attribute")
	}

	scopes, err := r.listScopes(ctx, tenantID, []string{id})
	if err != nil {
		return nil, err
	}
	attr.Scopes = scopes[id]
	return &attr, nil
}

// ListByTenant retrieves every attribute for a tenant with scopes attached.
// The catalog cache builds its per-tenant index from this.
func (r *Repository) ListByTenant(ctx context.Context, tenantID string) ([]models.Attribute, error) {
	ctx, span := tracing.StartSpan(ctx, "attribute.Repository.ListByTenant")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "name", "data_type", "is_filterable", "options", "created_at", "updated_at")
	sb.From("attributes")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("name ASC")

	query, args := sb.Build()
	var attrs []models.Attribute
	if err := r.db.SelectContext(ctx, &attrs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list attributes")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list attributes")
	}

	ids := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		ids = append(ids, attr.ID)
	}
	scopes, err := r.listScopes(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	for i := range attrs {
		attrs[i].Scopes = scopes[attrs[i].ID]
	}
	return attrs, nil
}

// ListByPropertyType retrieves the attributes scoped to a property type,
// ordered for form rendering.
func (r *Repository) ListByPropertyType(ctx context.Context, tenantID, propertyType string) ([]models.Attribute, error) {
	ctx, span := tracing.StartSpan(ctx, "attribute.Repository.ListByPropertyType")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("a.id", "a.tenant_id", "a.name", "a.data_type", "a.is_filterable", "a.options", "a.created_at", "a.updated_at")
	sb.From("attributes a")
	sb.JoinWithOption(sqlbuilder.InnerJoin, "attribute_scopes s", "s.attribute_id = a.id AND s.tenant_id = a.tenant_id")
	sb.Where(sb.Equal("a.tenant_id", tenantID), sb.Equal("s.property_type", propertyType))
	sb.OrderBy("s.sort_order ASC", "a.name ASC")

	query, args := sb.Build()
	var attrs []models.Attribute
	if err := r.db.SelectContext(ctx, &attrs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list attributes by property type")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list attributes")
	}
	return attrs, nil
}

// Update updates an attribute's mutable fields and replaces its scopes. The
// data type is immutable once facts exist; the caller enforces that before
// calling Update.
func (r *Repository) Update(ctx context.Context, tenantID, id string, req models.UpdateAttributeRequest) (*models.Attribute, error) {
	ctx, span := tracing.StartSpan(ctx, "attribute.Repository.Update")
	defer span.End()

	existing, err := r.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.DataType != nil {
		existing.DataType = *req.DataType
	}
	if req.IsFilterable != nil {
		existing.IsFilterable = *req.IsFilterable
	}
	if req.Options != nil {
		existing.Options = database.NewJSONB(req.Options)
	}
	existing.UpdatedAt = time.Now().UTC()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("attributes")
	ub.Set(
		ub.Assign("name", existing.Name),
		ub.Assign("data_type", existing.DataType),
		ub.Assign("is_filterable", existing.IsFilterable),
		ub.Assign("options", existing.Options),
		ub.Assign("updated_at", existing.UpdatedAt),
	)
	ub.Where(ub.Equal("id", id), ub.Equal("tenant_id", tenantID))

	query, args := ub.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update attribute")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update attribute")
	}

	if req.PropertyTypes != nil {
		if err := r.replaceScopes(ctx, tx, tenantID, id, req.PropertyTypes); err != nil {
			return nil, err
		}
		existing.Scopes = scopesFor(tenantID, id, req.PropertyTypes)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit attribute update")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return existing, nil
}

// Delete removes an attribute along with its scopes and stored facts.
func (r *Repository) Delete(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "attribute.Repository.Delete")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"attribute_values", "attribute_scopes"} {
		db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
		db.DeleteFrom(table)
		db.Where(db.Equal("tenant_id", tenantID), db.Equal("attribute_id", id))
		query, args := db.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to delete attribute dependents")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete attribute")
		}
	}

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("attributes")
	db.Where(db.Equal("tenant_id", tenantID), db.Equal("id", id))
	query, args := db.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete attribute")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete attribute")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("attribute %s not found", id))
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to commit attribute deletion")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return nil
}

func (r *Repository) replaceScopes(ctx context.Context, tx database.Tx, tenantID, attributeID string, propertyTypes []string) error {
	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("attribute_scopes")
	db.Where(db.Equal("tenant_id", tenantID), db.Equal("attribute_id", attributeID))
	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace attribute scopes")
	}

	if len(propertyTypes) == 0 {
		return nil
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("attribute_scopes")
	sb.Cols("attribute_id", "tenant_id", "property_type", "sort_order")
	for i, propertyType := range propertyTypes {
		sb.Values(attributeID, tenantID, propertyType, i)
	}
	query, args = sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert attribute scopes")
	}
	return nil
}

func (r *Repository) listScopes(ctx context.Context, tenantID string, attributeIDs []string) (map[string][]models.AttributeScope, error) {
	byAttribute := map[string][]models.AttributeScope{}
	if len(attributeIDs) == 0 {
		return byAttribute, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("attribute_id", "tenant_id", "property_type", "sort_order")
	sb.From("attribute_scopes")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.In("attribute_id", sqlbuilder.List(attributeIDs)))
	sb.OrderBy("attribute_id ASC", "sort_order ASC")

	query, args := sb.Build()
	var scopes []models.AttributeScope
	if err := r.db.SelectContext(ctx, &scopes, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list attribute scopes")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list attribute scopes")
	}
	for _, scope := range scopes {
		byAttribute[scope.AttributeID] = append(byAttribute[scope.AttributeID], scope)
	}
	return byAttribute, nil
}

func scopesFor(tenantID, attributeID string, propertyTypes []string) []models.AttributeScope {
	scopes := make([]models.AttributeScope, 0, len(propertyTypes))
	for i, propertyType := range propertyTypes {
		scopes = append(scopes, models.AttributeScope{
			AttributeID:  attributeID,
			TenantID:     tenantID,
			PropertyType: propertyType,
			SortOrder:    i,
		})
	}
	return scopes
}
