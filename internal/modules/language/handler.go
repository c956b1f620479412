package language

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yoola/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/languages", h.list)
}

// GET /languages
func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNoCatalog) {
			response.ServiceUnavailable(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}
