package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ada/core/student"
)

type studentApi struct {
	svc      student.ServiceInterface
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{svc: deps.StudentSvc, validate: deps.Validate}

	sg := g.Group("/students", jwt)
	sg.POST("", api.create, roleMiddleware(writeRoles...))
	sg.GET("", api.query, roleMiddleware(readRoles...))
	sg.GET("/:id", api.retrieve, roleMiddleware(readRoles...))
	sg.PUT("/:id", api.update, roleMiddleware(writeRoles...))
	sg.DELETE("/:id", api.destroy, roleMiddleware(adminRoles...))
}

func (api *studentApi) create(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	data.TenantID = tenantID
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) query(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	var filter student.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to student.QueryFilter")
	}
	filter.TenantID = tenantID
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	std, err := api.svc.GetByID(ctx.Request().Context(), tenantID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	std, err := api.svc.GetByID(ctx.Request().Context(), tenantID, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(std, api.validate, api.svc); err != nil {
		return err
	}

	std, err = api.svc.Update(ctx.Request().Context(), std, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), tenantID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
