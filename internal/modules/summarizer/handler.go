package summarizer

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yoola/core/internal/pkg/response"
)

// ModelLister is the part of Client the models route needs.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

type Handler struct{ models ModelLister }

// NewHandler serves the model list of models. A nil lister answers 503.
func NewHandler(models ModelLister) *Handler { return &Handler{models: models} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/models", h.listModels)
}

// GET /models
func (h *Handler) listModels(c *gin.Context) {
	if h.models == nil {
		response.ServiceUnavailable(c, errNoProvider.Error())
		return
	}
	items, err := h.models.ListModels(c.Request.Context())
	switch {
	case err == nil:
		response.OK(c, items)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(c, err.Error())
	default:
		response.BadGateway(c, err.Error())
	}
}
