package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ada/core/report"
)

type reportApi struct {
	defaulters  DefaultersReporter
	dashboard   StatsReporter
	overdueDays int
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := reportApi{
		defaulters:  deps.Defaulters,
		dashboard:   deps.Dashboard,
		overdueDays: deps.Conf.Reports.DefaultOverdueDays,
	}

	rg := g.Group("/reports", jwt, roleMiddleware(readRoles...))
	rg.GET("/defaulters", api.queryDefaulters)
	rg.GET("/defaulters/export", api.exportDefaulters)

	g.GET("/dashboard/stats", api.stats, jwt, roleMiddleware(readRoles...))
}

// queryDefaulters: ?daysOverdue=30&class=10
func (api *reportApi) queryDefaulters(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}
	overdueDays, err := intParam(ctx, "daysOverdue", api.overdueDays)
	if err != nil {
		return err
	}

	r, err := api.defaulters.ComputeDefaulters(ctx.Request().Context(), tenantID, overdueDays, ctx.QueryParam("class"))
	if err != nil {
		return errors.Wrap(err, "computing defaulters")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reportApi) exportDefaulters(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}
	overdueDays, err := intParam(ctx, "daysOverdue", api.overdueDays)
	if err != nil {
		return err
	}

	r, err := api.defaulters.ComputeDefaulters(ctx.Request().Context(), tenantID, overdueDays, ctx.QueryParam("class"))
	if err != nil {
		return errors.Wrap(err, "computing defaulters")
	}

	var buf bytes.Buffer
	if err := report.WriteDefaultersCSV(&buf, r); err != nil {
		return errors.Wrap(err, "writing defaulters CSV")
	}
	ctx.Response().Header().Set(
		echo.HeaderContentDisposition,
		`attachment; filename="`+report.CSVFilename(report.NowFunc())+`"`,
	)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (api *reportApi) stats(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	stats, err := api.dashboard.Stats(ctx.Request().Context(), tenantID)
	if err != nil {
		return errors.Wrap(err, "computing dashboard stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}
