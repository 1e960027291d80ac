package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ada/core/fee"
)

type feeApi struct {
	svc      fee.ServiceInterface
	validate *validator.Validate
}

func registerFeeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := feeApi{svc: deps.FeeSvc, validate: deps.Validate}

	fg := g.Group("/fee-structures", jwt)
	fg.POST("", api.create, roleMiddleware(writeRoles...))
	fg.GET("", api.query, roleMiddleware(readRoles...))
	fg.GET("/:id", api.retrieve, roleMiddleware(readRoles...))
	fg.DELETE("/:id", api.destroy, roleMiddleware(adminRoles...))
}

func (api *feeApi) create(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	var data fee.NewFeeStructure
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeeStructure")
	}
	data.TenantID = tenantID
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	fs, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating fee structure")
	}
	return ctx.JSON(http.StatusCreated, fs)
}

// query returns one page of fee structures: ?page=1&limit=10
func (api *feeApi) query(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	filter := fee.QueryFilter{
		TenantID:     tenantID,
		Search:       ctx.QueryParam("search"),
		AcademicYear: ctx.QueryParam("academicYear"),
		Class:        ctx.QueryParam("class"),
	}
	page, err := intParam(ctx, "page", 1)
	if err != nil {
		return err
	}
	limit, err := intParam(ctx, "limit", fee.DefaultPageLimit)
	if err != nil {
		return err
	}

	res, err := api.svc.QueryPage(ctx.Request().Context(), filter, page, limit)
	if err != nil {
		return errors.Wrap(err, "querying fee structures")
	}
	if res.FeeStructures == nil {
		res.FeeStructures = []fee.FeeStructure{}
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *feeApi) retrieve(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	fs, err := api.svc.GetByID(ctx.Request().Context(), tenantID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, fs)
}

func (api *feeApi) destroy(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), tenantID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting fee structure")
	}
	return ctx.NoContent(http.StatusNoContent)
}
