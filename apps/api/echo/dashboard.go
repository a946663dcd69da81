package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/nutridash/core"
	"github.com/trezcool/nutridash/core/dashboard"
)

type dashboardApi struct {
	svc      *dashboard.Service
	validate *validator.Validate
}

func registerDashboardAPI(g *echo.Group, svc *dashboard.Service, validate *validator.Validate) {
	api := dashboardApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/sessions")
	sg.POST("", api.create)

	// detail endpoints
	dg := sg.Group("/:id", sessionMiddleware(svc))
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)
	dg.PUT("/selection", api.updateSelection)
	dg.POST("/refresh", api.refresh)
	dg.GET("/kpis", api.queryReports)
	dg.GET("/kpis/:kpiId", api.retrieveReport)
}

// Handlers

func (api *dashboardApi) create(ctx echo.Context) error {
	var data dashboard.NewSession
	if err := bindAndValidate(ctx, api.validate, &data, "session"); err != nil {
		return err
	}

	sess, err := api.svc.Open(ctx.Request().Context(), data)
	if err != nil && !core.IsFetchFailure(err) {
		return errors.Wrap(err, "opening session")
	}
	// a failed first load is reported in the state
	return ctx.JSON(http.StatusCreated, sess.State())
}

func (api *dashboardApi) retrieve(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.State())
}

func (api *dashboardApi) destroy(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Close(sess.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *dashboardApi) updateSelection(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data dashboard.Selection
	if err := bindAndValidate(ctx, api.validate, &data, "selection"); err != nil {
		return err
	}
	if err := sess.SetSelection(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.State())
}

func (api *dashboardApi) refresh(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err := sess.Refresh(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.State())
}

func (api *dashboardApi) queryReports(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	reports, err := sess.Reports()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *dashboardApi) retrieveReport(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	report, err := sess.Report(ctx.Param("kpiId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}
