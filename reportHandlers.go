package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/middlewares"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models/reports"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
)

// accessibleStation loads the station and applies the access policy for actor.
func (s *server) accessibleStation(c *gin.Context, actor *models.User, stationId int) (*models.Station, error) {
	station, err := models.GetStation(c.Request.Context(), s.db, stationId)
	if err != nil {
		return nil, err
	}
	if !models.CanAccessStation(actor, station) {
		return nil, fmt.Errorf("%w: no access to station %d", utils.ErrUnauthorized, stationId)
	}
	return station, nil
}

// stationScope resolves :stationId for the current actor. It writes the error
// response itself and returns ok=false on failure.
func (s *server) stationScope(c *gin.Context) (*models.User, *models.Station, bool) {
	actor, ok := currentActor(c)
	if !ok {
		return nil, nil, false
	}
	stationId, err := intParam(c, "stationId")
	if err != nil {
		middlewares.RespondError(c, err)
		return nil, nil, false
	}
	station, err := s.accessibleStation(c, actor, stationId)
	if err != nil {
		middlewares.RespondError(c, err)
		return nil, nil, false
	}
	return actor, station, true
}

func dateRangeQuery(c *gin.Context) (reports.DateRange, error) {
	var rng reports.DateRange
	if v := c.Query("from"); v != "" {
		t, err := utils.ParseBusinessDate(v)
		if err != nil {
			return rng, err
		}
		rng.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := utils.ParseBusinessDate(v)
		if err != nil {
			return rng, err
		}
		rng.To = &t
	}
	return rng, rng.Validate()
}

func handoverFilterQuery(c *gin.Context) (reports.HandoverFilter, error) {
	rng, err := dateRangeQuery(c)
	if err != nil {
		return reports.HandoverFilter{}, err
	}
	filter := reports.HandoverFilter{DateRange: rng}
	if v := c.Query("type"); v != "" {
		t := models.HandoverType(v)
		if !t.Valid() {
			return filter, fmt.Errorf("%w: invalid handover type %q", utils.ErrValidation, v)
		}
		filter.Type = &t
	}
	if v := c.Query("status"); v != "" {
		st := models.HandoverStatus(v)
		if !st.Valid() {
			return filter, fmt.Errorf("%w: invalid status %q", utils.ErrValidation, v)
		}
		filter.Status = &st
	}
	return filter, nil
}

func (s *server) stationHandovers(c *gin.Context) {
	_, station, ok := s.stationScope(c)
	if !ok {
		return
	}
	filter, err := handoverFilterQuery(c)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	var page models.PageInput
	if err := c.ShouldBindQuery(&page); err != nil {
		middlewares.RespondBindError(c, err)
		return
	}
	result, err := reports.StationHandovers(c.Request.Context(), s.db, station.ID, filter, page)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondOK(c, http.StatusOK, result)
}

func (s *server) cashFlowSummary(c *gin.Context) {
	_, station, ok := s.stationScope(c)
	if !ok {
		return
	}
	rng, err := dateRangeQuery(c)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	summary, err := reports.CashFlowSummaryReport(c.Request.Context(), s.db, station.ID, rng)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondOK(c, http.StatusOK, summary)
}

func (s *server) unconfirmedHandovers(c *gin.Context) {
	_, station, ok := s.stationScope(c)
	if !ok {
		return
	}
	rng, err := dateRangeQuery(c)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	report, err := reports.Unconfirmed(c.Request.Context(), s.db, station.ID, rng, s.now())
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	if report.Warning != "" {
		middlewares.RespondMessage(c, http.StatusOK, report, report.Warning)
		return
	}
	middlewares.RespondOK(c, http.StatusOK, report)
}

func (s *server) bankDepositReport(c *gin.Context) (*models.Station, *reports.BankDepositReport, bool) {
	actor, station, ok := s.stationScope(c)
	if !ok {
		return nil, nil, false
	}
	if !models.CanSettleHandover(actor.Role) {
		middlewares.RespondError(c, fmt.Errorf("%w: bank deposits are visible to owners only", utils.ErrUnauthorized))
		return nil, nil, false
	}
	rng, err := dateRangeQuery(c)
	if err != nil {
		middlewares.RespondError(c, err)
		return nil, nil, false
	}
	report, err := reports.BankDeposits(c.Request.Context(), s.db, station.ID, rng)
	if err != nil {
		middlewares.RespondError(c, err)
		return nil, nil, false
	}
	return station, report, true
}

func (s *server) bankDeposits(c *gin.Context) {
	_, report, ok := s.bankDepositReport(c)
	if !ok {
		return
	}
	middlewares.RespondOK(c, http.StatusOK, report)
}

// requireExport checks the station owner's plan. Plans belong to owners, so the
// lookup is not scoped to the caller's station.
func (s *server) requireExport(c *gin.Context, station *models.Station) bool {
	ctx := utils.SetSkipTenantScopeInContext(c.Request.Context())
	plan, err := models.GetPlan(ctx, s.db, station.OwnerId)
	if err != nil {
		middlewares.RespondError(c, err)
		return false
	}
	if !plan.AllowReportExport {
		middlewares.RespondError(c, fmt.Errorf("%w: report export requires an upgraded plan (current: %s)", utils.ErrFeatureNotInPlan, plan.Name))
		return false
	}
	return true
}

func (s *server) sendExcel(c *gin.Context, report reports.ExcelExporter, name string, stationId int) {
	data, err := reports.ExportExcel(report)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	filename := fmt.Sprintf("%s-station-%d-%s.xlsx", name, stationId, s.now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, reports.ExcelContentType, data)
}

func (s *server) exportCashFlowSummary(c *gin.Context) {
	_, station, ok := s.stationScope(c)
	if !ok {
		return
	}
	if !s.requireExport(c, station) {
		return
	}
	rng, err := dateRangeQuery(c)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	summary, err := reports.CashFlowSummaryReport(c.Request.Context(), s.db, station.ID, rng)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	s.sendExcel(c, summary, "cash-flow-summary", station.ID)
}

func (s *server) exportBankDeposits(c *gin.Context) {
	station, report, ok := s.bankDepositReport(c)
	if !ok {
		return
	}
	if !s.requireExport(c, station) {
		return
	}
	s.sendExcel(c, report, "bank-deposits", station.ID)
}

