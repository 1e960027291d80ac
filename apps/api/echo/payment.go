package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ada/core/payment"
)

type paymentApi struct {
	svc      payment.ServiceInterface
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := paymentApi{svc: deps.PaymentSvc, validate: deps.Validate}

	pg := g.Group("/payments", jwt)
	pg.POST("", api.create, roleMiddleware(writeRoles...))
	pg.GET("", api.query, roleMiddleware(readRoles...))
	pg.GET("/:id", api.retrieve, roleMiddleware(readRoles...))
	pg.POST("/:id/refund", api.refund, roleMiddleware(adminRoles...))
}

func (api *paymentApi) create(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	var data payment.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if data.IdempotencyKey == "" {
		data.IdempotencyKey = ctx.Request().Header.Get("Idempotency-Key")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.RecordPayment(ctx.Request().Context(), tenantID, data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *paymentApi) query(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	filter, err := bindPaymentFilter(ctx)
	if err != nil {
		return err
	}
	filter.TenantID = tenantID

	payments, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	p, err := api.svc.GetByID(ctx.Request().Context(), tenantID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) refund(ctx echo.Context) error {
	tenantID, err := contextTenantID(ctx)
	if err != nil {
		return err
	}

	p, err := api.svc.Refund(ctx.Request().Context(), tenantID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "refunding payment")
	}
	return ctx.JSON(http.StatusOK, p)
}

func bindPaymentFilter(ctx echo.Context) (payment.QueryFilter, error) {
	params := ctx.QueryParams()
	filter := payment.QueryFilter{
		StudentID:      params.Get("studentId"),
		FeeStructureID: params.Get("feeStructureId"),
		InstallmentID:  params.Get("installmentId"),
	}
	for _, s := range params["status"] {
		filter.Statuses = append(filter.Statuses, payment.Status(s))
	}
	for _, m := range params["paymentMethod"] {
		filter.Methods = append(filter.Methods, payment.Method(m))
	}

	var err error
	if filter.PaidFrom, err = timeParam(ctx, "paidFrom"); err != nil {
		return payment.QueryFilter{}, err
	}
	if filter.PaidTo, err = timeParam(ctx, "paidTo"); err != nil {
		return payment.QueryFilter{}, err
	}
	return filter, nil
}
