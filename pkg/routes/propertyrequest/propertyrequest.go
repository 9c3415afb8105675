package propertyrequest

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/briar/internal/repositories/propertyrequest"
	"github.com/Ramsey-B/briar/pkg/context"
	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/validate"
)

// Register registers property request (search alert) routes
func Register(g *echo.Group) {
	g.GET("", ListPropertyRequests)
	g.GET("/:id", GetPropertyRequest)
	g.POST("", CreatePropertyRequest)
	g.PUT("/:id", UpdatePropertyRequest)
	g.POST("/:id/close", ClosePropertyRequest)
}

// ListResponse is the paged list of search alerts.
type ListResponse struct {
	Items      []models.PropertyRequest `json:"items"`
	TotalCount int                      `json:"total_count"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
}

// ListPropertyRequests lists the tenant's search alerts
func ListPropertyRequests(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var status, customerID *string
	if v := c.QueryParam("status"); v != "" {
		status = &v
	}
	if v := c.QueryParam("customer_id"); v != "" {
		customerID = &v
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	ctx, repo, err := ectoinject.GetContext[*propertyrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	requests, total, err := repo.List(ctx, tenantID, status, customerID, page, pageSize)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ListResponse{Items: requests, TotalCount: total, Page: page, PageSize: pageSize})
}

// GetPropertyRequest gets a search alert by ID
func GetPropertyRequest(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*propertyrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	request, err := repo.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, request)
}

// CreatePropertyRequest registers a search alert
func CreatePropertyRequest(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	customerID := context.GetCustomerID(ctx)

	var req models.CreatePropertyRequestRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.MinPrice != nil && req.MaxPrice != nil && *req.MinPrice > *req.MaxPrice {
		return httperror.NewHTTPError(http.StatusBadRequest, "min_price cannot exceed max_price")
	}

	ctx, repo, err := ectoinject.GetContext[*propertyrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, tenantID, customerID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdatePropertyRequest updates the criteria or workflow status of an alert
func UpdatePropertyRequest(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.UpdatePropertyRequestRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.MinPrice != nil && req.MaxPrice != nil && *req.MinPrice > *req.MaxPrice {
		return httperror.NewHTTPError(http.StatusBadRequest, "min_price cannot exceed max_price")
	}

	ctx, repo, err := ectoinject.GetContext[*propertyrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.Update(ctx, tenantID, c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// ClosePropertyRequest archives an alert out of matching
func ClosePropertyRequest(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	userID := context.GetUserID(ctx)

	ctx, repo, err := ectoinject.GetContext[*propertyrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Close(ctx, tenantID, c.Param("id"), userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
