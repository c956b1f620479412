package summary

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoola/core/internal/pkg/response"
)

// statusClientClosedRequest is nginx's code for a client that hung up first.
const statusClientClosedRequest = 499

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/get_summary", h.getSummary)

	g := rg.Group("/summary")
	g.POST("", h.postSummary)
	g.GET("/lookup", h.lookupSummary)
	g.POST("/lookup", h.lookupSummary)
	g.POST("/create", h.createSummary)
	g.GET("/template", h.getTemplate)
	g.GET("/llm-format", h.getLLMFormat)
}

// POST /summary
func (h *Handler) postSummary(c *gin.Context) {
	var dto summaryRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.respondGetOrCreate(c, dto.toRequest())
}

// GET /get_summary?content=...&language=...&domain=...&url=...
func (h *Handler) getSummary(c *gin.Context) {
	var dto summaryRequestDTO
	if err := c.ShouldBindQuery(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.respondGetOrCreate(c, dto.toRequest())
}

func (h *Handler) respondGetOrCreate(c *gin.Context, req Request) {
	result, err := h.svc.GetOrCreate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, result)
}

// GET|POST /summary/lookup
func (h *Handler) lookupSummary(c *gin.Context) {
	var dto summaryRequestDTO
	var err error
	if c.Request.Method == http.MethodPost {
		err = c.ShouldBindJSON(&dto)
	} else {
		err = c.ShouldBindQuery(&dto)
	}
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.Lookup(c.Request.Context(), dto.Content, dto.Domain, dto.Language)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, result)
}

// POST /summary/create
func (h *Handler) createSummary(c *gin.Context) {
	var dto createSummaryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), Request{
		Content:  dto.Content,
		Domain:   dto.Domain,
		URL:      dto.URL,
		Language: dto.Language,
	}, dto.Summary, dto.IsReviewed)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, result)
}

// GET /summary/template?domain=...&url=...&language=...
func (h *Handler) getTemplate(c *gin.Context) {
	var q templateQueryDTO
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, NewTemplate(q.Domain, q.URL, NormalizeLanguage(q.Language)))
}

// GET /summary/llm-format?language=...
func (h *Handler) getLLMFormat(c *gin.Context) {
	response.OK(c, NewLLMFormat(NormalizeLanguage(c.Query("language"))))
}

func writeError(c *gin.Context, err error) {
	var invalid *InvalidSummaryError
	switch {
	case errors.Is(err, ErrEmptyContent):
		response.BadRequest(c, "content is required")
	case errors.Is(err, ErrNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrSummaryUnavailable):
		response.BadGateway(c, err.Error())
	case errors.As(err, &invalid):
		response.UnprocessableEntity(c, invalid.Error())
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(c, err.Error())
	case errors.Is(err, context.Canceled):
		response.Error(c, statusClientClosedRequest, "request canceled")
	default:
		response.InternalError(c, err)
	}
}
