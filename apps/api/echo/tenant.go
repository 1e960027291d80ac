package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ada/core/tenant"
)

type tenantApi struct {
	svc      tenant.ServiceInterface
	validate *validator.Validate
}

func registerTenantAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := tenantApi{svc: deps.TenantSvc, validate: deps.Validate}

	tg := g.Group("/tenants", jwt, roleMiddleware( /* super admins only */ ))
	tg.POST("", api.create)
	tg.GET("", api.query)
	tg.GET("/:id", api.retrieve)
}

func (api *tenantApi) create(ctx echo.Context) error {
	var data tenant.NewTenant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTenant")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating tenant")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *tenantApi) query(ctx echo.Context) error {
	var filter tenant.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to tenant.QueryFilter")
	}

	tenants, err := api.svc.Query(ctx.Request().Context(), &filter)
	if err != nil {
		return errors.Wrap(err, "querying tenants")
	}
	return ctx.JSON(http.StatusOK, tenants)
}

func (api *tenantApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}
