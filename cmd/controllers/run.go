package controllers

import (
	"context"
	"errors"
	"net/http"

	"grnsync/internal/models"

	"github.com/gin-gonic/gin"
)

type RunService interface {
	Run(ctx context.Context) (models.RunSummary, error)
}

type RunController struct {
	service RunService
}

func NewRunController(service RunService) (*RunController, error) {
	if service == nil {
		return nil, errors.New("pipeline service is nil")
	}

	return &RunController{service: service}, nil
}

func (c *RunController) RegisterRoutes(router *gin.Engine) error {
	if c == nil {
		return errors.New("run controller is nil")
	}
	if router == nil {
		return errors.New("router is nil")
	}

	router.POST("/run", c.run)
	return nil
}

// run triggers one complete ingestion pass. Partial failure is a normal
// outcome: the response is the run summary, and its overall_success flag
// carries the verdict.
func (c *RunController) run(ctx *gin.Context) {
	summary, err := c.service.Run(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to run pipeline"})
		return
	}

	ctx.JSON(http.StatusOK, summary)
}
