package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"grnsync/internal/models"

	"github.com/gin-gonic/gin"
)

const defaultSummariesLimit = 20

type SummaryProvider interface {
	GetRunSummaries(ctx context.Context, limit int) ([]models.RunSummary, error)
}

type SummariesController struct {
	service SummaryProvider
}

type SummariesResponse struct {
	Summaries []models.RunSummary `json:"summaries"`
}

func NewSummariesController(service SummaryProvider) (*SummariesController, error) {
	if service == nil {
		return nil, errors.New("summary service is nil")
	}

	return &SummariesController{service: service}, nil
}

func (c *SummariesController) RegisterRoutes(router *gin.Engine) error {
	if c == nil {
		return errors.New("summaries controller is nil")
	}
	if router == nil {
		return errors.New("router is nil")
	}

	router.GET("/summaries", c.getSummaries)
	return nil
}

func (c *SummariesController) getSummaries(ctx *gin.Context) {
	limit := defaultSummariesLimit
	if value := ctx.Query("n"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid summaries limit"})
			return
		}
		limit = parsed
	}

	summaries, err := c.service.GetRunSummaries(ctx.Request.Context(), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load summaries"})
		return
	}

	ctx.JSON(http.StatusOK, SummariesResponse{Summaries: summaries})
}
