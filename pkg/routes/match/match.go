package match

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/briar/internal/repositories/match"
	"github.com/Ramsey-B/briar/pkg/context"
	"github.com/Ramsey-B/briar/pkg/matching"
)

// Register registers match routes
func Register(g *echo.Group) {
	g.GET("", ListMatches)
	g.POST("/run/:propertyId", RunMatching)
	g.POST("/:id/read", MarkMatchRead)
}

// ListMatches lists matches for a search alert or a property. Exactly one of
// the request_id and property_id query parameters is required.
func ListMatches(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	requestID := c.QueryParam("request_id")
	propertyID := c.QueryParam("property_id")
	if (requestID == "") == (propertyID == "") {
		return httperror.NewHTTPError(http.StatusBadRequest, "exactly one of request_id and property_id is required")
	}

	ctx, repo, err := ectoinject.GetContext[*match.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if requestID != "" {
		matches, err := repo.ListByRequest(ctx, tenantID, requestID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, matches)
	}

	matches, err := repo.ListByProperty(ctx, tenantID, propertyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, matches)
}

// RunMatching triggers a matching run for a property on demand, for backfill
// after catalog or alert edits.
func RunMatching(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, engine, err := ectoinject.GetContext[*matching.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := engine.Run(ctx, tenantID, c.Param("propertyId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// MarkMatchRead flags a match as seen
func MarkMatchRead(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*match.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.MarkRead(ctx, tenantID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
