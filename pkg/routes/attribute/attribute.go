package attribute

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/briar/internal/repositories/attribute"
	"github.com/Ramsey-B/briar/internal/repositories/attributevalue"
	"github.com/Ramsey-B/briar/pkg/catalog"
	"github.com/Ramsey-B/briar/pkg/context"
	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/validate"
)

// Register registers attribute catalog routes
func Register(g *echo.Group) {
	g.GET("", ListAttributes)
	g.GET("/:id", GetAttribute)
	g.POST("", CreateAttribute)
	g.PUT("/:id", UpdateAttribute)
	g.DELETE("/:id", DeleteAttribute)
}

// ListAttributes lists the tenant's catalog, optionally scoped to a property
// type for form rendering.
func ListAttributes(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*attribute.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if propertyType := c.QueryParam("property_type"); propertyType != "" {
		attrs, err := repo.ListByPropertyType(ctx, tenantID, propertyType)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, attrs)
	}

	attrs, err := repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, attrs)
}

// GetAttribute gets an attribute by ID
func GetAttribute(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*attribute.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	attr, err := repo.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, attr)
}

// CreateAttribute creates a catalog attribute
func CreateAttribute(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.CreateAttributeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*attribute.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, tenantID, req)
	if err != nil {
		return err
	}

	invalidateCatalog(c, tenantID)
	return c.JSON(http.StatusCreated, created)
}

// UpdateAttribute updates a catalog attribute. The data type is frozen once
// facts reference the attribute.
func UpdateAttribute(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	id := c.Param("id")

	var req models.UpdateAttributeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*attribute.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if req.DataType != nil {
		existing, err := repo.Get(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if existing.DataType != *req.DataType {
			ctx2, factsRepo, err := ectoinject.GetContext[*attributevalue.Repository](ctx)
			if err != nil {
				return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
			}
			count, err := factsRepo.CountByAttribute(ctx2, tenantID, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return httperror.NewHTTPError(http.StatusConflict, "data_type cannot change while attribute values exist")
			}
		}
	}

	updated, err := repo.Update(ctx, tenantID, id, req)
	if err != nil {
		return err
	}

	invalidateCatalog(c, tenantID)
	return c.JSON(http.StatusOK, updated)
}

// DeleteAttribute removes an attribute and its stored facts
func DeleteAttribute(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*attribute.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, tenantID, c.Param("id")); err != nil {
		return err
	}

	invalidateCatalog(c, tenantID)
	return c.NoContent(http.StatusNoContent)
}

// invalidateCatalog drops the tenant's cached index after a catalog edit so
// the next resolution sees the change.
func invalidateCatalog(c echo.Context, tenantID string) {
	_, cache, err := ectoinject.GetContext[*catalog.Cache](c.Request().Context())
	if err != nil || cache == nil {
		return
	}
	cache.Invalidate(tenantID)
}
