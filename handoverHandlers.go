package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/middlewares"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models/reports"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/workflow"
)

type handoverDetail struct {
	Handover *models.CashHandover     `json:"handover"`
	Links    []models.CashHandoverLink `json:"links"`
}

func intParam(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", utils.ErrValidation, name)
	}
	return id, nil
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *server) createHandover(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input workflow.NewHandover
	if err := c.ShouldBindJSON(&input); err != nil {
		middlewares.RespondBindError(c, err)
		return
	}
	record, err := s.ledger.Create(c.Request.Context(), actor, input)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondMessage(c, http.StatusCreated, record, "handover recorded")
}

func (s *server) confirmHandover(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, err := intParam(c, "id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	var input workflow.ConfirmHandover
	if err := bindOptionalJSON(c, &input); err != nil {
		middlewares.RespondBindError(c, err)
		return
	}
	record, err := s.ledger.Confirm(c.Request.Context(), actor, id, input)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	message := "handover confirmed"
	if record.Status == models.HandoverStatusDisputed {
		message = fmt.Sprintf("handover disputed: difference %s", record.Difference.StringFixed(2))
	}
	middlewares.RespondMessage(c, http.StatusOK, record, message)
}

func (s *server) resolveHandover(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, err := intParam(c, "id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	var input workflow.ResolveHandover
	if err := c.ShouldBindJSON(&input); err != nil {
		middlewares.RespondBindError(c, err)
		return
	}
	record, err := s.ledger.ResolveDispute(c.Request.Context(), actor, id, input)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondMessage(c, http.StatusOK, record, "dispute resolved")
}

func (s *server) recordBankDeposit(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input workflow.NewBankDeposit
	if err := c.ShouldBindJSON(&input); err != nil {
		middlewares.RespondBindError(c, err)
		return
	}
	record, err := s.ledger.RecordBankDeposit(c.Request.Context(), actor, input)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	middlewares.RespondMessage(c, http.StatusCreated, record, "bank deposit recorded")
}

func (s *server) getHandover(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, err := intParam(c, "id")
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	ctx := c.Request.Context()
	record, err := models.GetHandover(ctx, s.db, id)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	if _, err := s.accessibleStation(c, actor, record.StationId); err != nil {
		middlewares.RespondError(c, err)
		return
	}
	links, err := models.Links(ctx, s.db, record.ID)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	if links == nil {
		links = []models.CashHandoverLink{}
	}
	middlewares.RespondOK(c, http.StatusOK, handoverDetail{Handover: record, Links: links})
}

func (s *server) pendingHandovers(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var stationId *int
	if raw := c.Query("station_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			middlewares.RespondError(c, fmt.Errorf("%w: station_id must be a positive integer", utils.ErrValidation))
			return
		}
		if _, err := s.accessibleStation(c, actor, id); err != nil {
			middlewares.RespondError(c, err)
			return
		}
		stationId = &id
	}
	records, err := reports.PendingForUser(c.Request.Context(), s.db, actor, stationId)
	if err != nil {
		middlewares.RespondError(c, err)
		return
	}
	if records == nil {
		records = []models.CashHandover{}
	}
	middlewares.RespondOK(c, http.StatusOK, records)
}
