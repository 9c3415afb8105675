package propertyrequest

import (
	"context"
	"encoding/json"
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

var requestColumns = []string{
	"id", "tenant_id", "customer_id", "customer_name", "customer_email", "property_type",
	"city", "min_price", "max_price", "criteria", "status", "archived_at", "archived_by",
	"created_at", "updated_at",
}

// Repository handles property request (search alert) persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new property request repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create registers a new search alert in status "new".
func (r *Repository) Create(ctx context.Context, tenantID, customerID string, req models.CreatePropertyRequestRequest) (*models.PropertyRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "propertyrequest.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":        "Create",
		"tenant_id":     tenantID,
		"property_type": req.PropertyType,
	})

	criteria, err := json.Marshal(req.Criteria)
	if err != nil || req.Criteria == nil {
		criteria = json.RawMessage("{}")
	}

	now := time.Now().UTC()
	request := &models.PropertyRequest{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		CustomerID:    customerID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		PropertyType:  req.PropertyType,
		City:          req.City,
		MinPrice:      req.MinPrice,
		MaxPrice:      req.MaxPrice,
		Criteria:      criteria,
		Status:        models.PropertyRequestStatusNew,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("property_requests")
	sb.Cols(requestColumns...)
	sb.Values(request.ID, request.TenantID, request.CustomerID, request.CustomerName, request.CustomerEmail,
		request.PropertyType, request.City, request.MinPrice, request.MaxPrice, database.JSONParam(request.Criteria),
		request.Status, nil, nil, request.CreatedAt, request.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create property request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create property request")
	}

	log.WithFields(map[string]any{"id": request.ID}).Info("Created property request")
	return request, nil
}

// Get retrieves a property request by ID
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*models.PropertyRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "propertyrequest.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(requestColumns...)
	sb.From("property_requests")
	sb.Where(sb.Equal("id", id), sb.Equal("tenant_id", tenantID), sb.IsNull("archived_at"))

	query, args := sb.Build()
	var request models.PropertyRequest
	if err := r.db.GetContext(ctx, &request, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("property request %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get property request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get property request")
	}
	return &request, nil
}

// List retrieves a tenant's property requests, optionally filtered by status
// and owning customer.
func (r *Repository) List(ctx context.Context, tenantID string, status, customerID *string, page, pageSize int) ([]models.PropertyRequest, int, error) {
	ctx, span := tracing.StartSpan(ctx, "propertyrequest.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("property_requests")
	countWhere := []string{countSb.Equal("tenant_id", tenantID), countSb.IsNull("archived_at")}
	if status != nil {
		countWhere = append(countWhere, countSb.Equal("status", *status))
	}
	if customerID != nil {
		countWhere = append(countWhere, countSb.Equal("customer_id", *customerID))
	}
	countSb.Where(countWhere...)

	countQuery, countArgs := countSb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count property requests")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count property requests")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(requestColumns...)
	sb.From("property_requests")
	where := []string{sb.Equal("tenant_id", tenantID), sb.IsNull("archived_at")}
	if status != nil {
		where = append(where, sb.Equal("status", *status))
	}
	if customerID != nil {
		where = append(where, sb.Equal("customer_id", *customerID))
	}
	sb.Where(where...)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var requests []models.PropertyRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list property requests")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list property requests")
	}
	return requests, total, nil
}

// ListActiveByType retrieves the alerts the matching engine evaluates for a
// property type: active status, not archived.
func (r *Repository) ListActiveByType(ctx context.Context, tenantID, propertyType string) ([]models.PropertyRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "propertyrequest.Repository.ListActiveByType")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(requestColumns...)
	sb.From("property_requests")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("property_type", propertyType),
		sb.In("status", sqlbuilder.List(models.ActivePropertyRequestStatuses)),
		sb.IsNull("archived_at"),
	)
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var requests []models.PropertyRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list active property requests")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list active property requests")
	}
	return requests, nil
}

// Update applies the populated fields of req and returns the updated row.
func (r *Repository) Update(ctx context.Context, tenantID, id string, req models.UpdatePropertyRequestRequest) (*models.PropertyRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "propertyrequest.Repository.Update")
	defer span.End()

	existing, err := r.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.City != nil {
		existing.City = req.City
	}
	if req.MinPrice != nil {
		existing.MinPrice = req.MinPrice
	}
	if req.MaxPrice != nil {
		existing.MaxPrice = req.MaxPrice
	}
	if req.Criteria != nil {
		criteria, err := json.Marshal(req.Criteria)
		if err != nil {
			criteria = json.RawMessage("{}")
		}
		existing.Criteria = criteria
	}
	if req.Status != nil {
		existing.Status = *req.Status
	}
	existing.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("property_requests")
	ub.Set(
		ub.Assign("city", existing.City),
		ub.Assign("min_price", existing.MinPrice),
		ub.Assign("max_price", existing.MaxPrice),
		ub.Assign("criteria", database.JSONParam(existing.Criteria)),
		ub.Assign("status", existing.Status),
		ub.Assign("updated_at", existing.UpdatedAt),
	)
	ub.Where(ub.Equal("id", id), ub.Equal("tenant_id", tenantID), ub.IsNull("archived_at"))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update property request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update property request")
	}
	return existing, nil
}

// Close archives a request out of matching. The row is kept for audit; the
// archiving user is recorded.
func (r *Repository) Close(ctx context.Context, tenantID, id, archivedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "propertyrequest.Repository.Close")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("property_requests")
	ub.Set(
		ub.Assign("status", models.PropertyRequestStatusClosed),
		ub.Assign("archived_at", now),
		ub.Assign("archived_by", archivedBy),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", id), ub.Equal("tenant_id", tenantID), ub.IsNull("archived_at"))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to close property request")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to close property request")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("property request %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":          id,
		"archived_by": archivedBy,
	}).Info("Closed property request")
	return nil
}
