package property

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/briar/internal/repositories/property"
	"github.com/Ramsey-B/briar/pkg/catalog"
	"github.com/Ramsey-B/briar/pkg/context"
	"github.com/Ramsey-B/briar/pkg/database"
	"github.com/Ramsey-B/briar/pkg/eav"
	"github.com/Ramsey-B/briar/pkg/filter"
	"github.com/Ramsey-B/briar/pkg/matching"
	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/validate"
)

// Register registers property routes
func Register(g *echo.Group) {
	g.GET("", SearchProperties)
	g.GET("/:id", GetProperty)
	g.POST("", CreateProperty)
	g.PUT("/:id", UpdateProperty)
	g.POST("/:id/publish", PublishProperty)
	g.DELETE("/:id", DeleteProperty)
}

// PropertyResponse is a property with its derived typed facts.
type PropertyResponse struct {
	models.Property
	Facts []models.DerivedFact `json:"facts,omitempty"`
}

// CreateProperty creates a property and derives its facts in one
// transaction.
func CreateProperty(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	ownerID := context.GetUserID(ctx)

	var req models.CreatePropertyRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, eavService, err := ectoinject.GetContext[*eav.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, tx, err := repo.DB().GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}

	prop, err := repo.Create(ctx, tenantID, ownerID, req)
	if err != nil {
		return database.CloseTx(ctx, tx, err)
	}

	facts, err := eavService.ReplaceFacts(ctx, tenantID, prop.ID, req.Attributes)
	if err != nil {
		return database.CloseTx(ctx, tx, err)
	}

	if err := database.CloseTx(ctx, tx, nil); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	runMatching(c, tenantID, prop.ID)

	return c.JSON(http.StatusCreated, PropertyResponse{Property: *prop, Facts: facts})
}

// GetProperty returns a property with its derived facts.
func GetProperty(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, eavService, err := ectoinject.GetContext[*eav.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	prop, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	facts, err := eavService.ListFacts(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, PropertyResponse{Property: *prop, Facts: facts})
}

// UpdateProperty updates a property; a non-nil attributes payload replaces
// the raw payload and re-derives facts in the same transaction.
func UpdateProperty(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	id := c.Param("id")

	var req models.UpdatePropertyRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, eavService, err := ectoinject.GetContext[*eav.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, tx, err := repo.DB().GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}

	prop, err := repo.Update(ctx, tenantID, id, req)
	if err != nil {
		return database.CloseTx(ctx, tx, err)
	}

	var facts []models.DerivedFact
	if req.Attributes != nil {
		facts, err = eavService.ReplaceFacts(ctx, tenantID, id, req.Attributes)
		if err != nil {
			return database.CloseTx(ctx, tx, err)
		}
	}

	if err := database.CloseTx(ctx, tx, nil); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	runMatching(c, tenantID, id)

	if facts == nil {
		facts, _ = eavService.ListFacts(ctx, tenantID, id)
	}
	return c.JSON(http.StatusOK, PropertyResponse{Property: *prop, Facts: facts})
}

// PublishProperty publishes a listing and runs matching synchronously so the
// caller sees the run's outcome.
func PublishProperty(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.UpdateStatus(ctx, tenantID, id, models.PropertyStatusPublished); err != nil {
		return err
	}

	ctx, engine, err := ectoinject.GetContext[*matching.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := engine.Run(ctx, tenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// DeleteProperty removes a property and its facts and matches
func DeleteProperty(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, tenantID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchProperties runs a paged search. Column criteria come from query
// parameters; the filters parameter carries the dynamic attribute filter
// JSON.
func SearchProperties(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	q := models.PropertySearchQuery{
		PropertyType: c.QueryParam("property_type"),
		Status:       c.QueryParam("status"),
		City:         c.QueryParam("city"),
		Text:         c.QueryParam("q"),
		Filters:      c.QueryParam("filters"),
	}
	if v := c.QueryParam("min_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q.MinPrice = &f
		}
	}
	if v := c.QueryParam("max_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q.MaxPrice = &f
		}
	}
	if v := c.QueryParam("page"); v != "" {
		q.Page, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("page_size"); v != "" {
		q.PageSize, _ = strconv.Atoi(v)
	}

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, cache, err := ectoinject.GetContext[*catalog.Cache](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var df filter.DynamicFilter
	if q.Filters != "" {
		idx, err := cache.GetIndex(ctx, tenantID)
		if err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to load attribute catalog")
		}
		df = filter.Compile(idx, json.RawMessage(q.Filters))
	}

	result, err := repo.Search(ctx, tenantID, q, df)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// runMatching triggers a matching run after a property write. Failures are
// logged, never surfaced: the write already committed.
func runMatching(c echo.Context, tenantID, propertyID string) {
	ctx := c.Request().Context()
	ctx, engine, err := ectoinject.GetContext[*matching.Engine](ctx)
	if err != nil {
		return
	}
	if _, err := engine.Run(ctx, tenantID, propertyID); err != nil {
		if _, logger, lerr := ectoinject.GetContext[ectologger.Logger](ctx); lerr == nil && logger != nil {
			logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"property_id": propertyID,
			}).Warn("Matching run after property write failed")
		}
	}
}
