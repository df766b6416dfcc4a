package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/gigflow/internal/http/middleware"
	"github.com/nurpe/gigflow/internal/realtime"
	"github.com/nurpe/gigflow/internal/service"
)

type Services struct {
	Gigs    *service.GigService
	Bids    *service.BidService
	Hiring  *service.HiringCoordinator
	Exports *service.ExportService
	Sockets *realtime.WebsocketServer
	Streams *realtime.StreamServer
}

type Handler struct {
	gigs    *service.GigService
	bids    *service.BidService
	hiring  *service.HiringCoordinator
	exports *service.ExportService
	sockets *realtime.WebsocketServer
	streams *realtime.StreamServer
	log     zerolog.Logger
}

func NewHandler(svc Services, log zerolog.Logger) *Handler {
	return &Handler{
		gigs:    svc.Gigs,
		bids:    svc.Bids,
		hiring:  svc.Hiring,
		exports: svc.Exports,
		sockets: svc.Sockets,
		streams: svc.Streams,
		log:     log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	public := router.Group("/api")
	public.GET("/gigs", h.listGigs)
	public.GET("/gigs/:id", h.getGig)

	protected := router.Group("/")
	protected.Use(authMiddleware)
	protected.POST("/api/gigs", h.createGig)
	protected.GET("/api/gigs/:id/bids/export", h.exportBids)
	protected.POST("/api/bids", h.createBid)
	protected.GET("/api/bids/:id", h.listBids)
	protected.PATCH("/api/bids/:id/hire", h.hire)
	protected.GET("/api/bids/:id/confirmation", h.hireConfirmation)
	protected.GET("/api/events", h.events)
	protected.GET("/ws", h.websocket)
}

type createGigRequest struct {
	Title       string  `json:"title" binding:"required,notblank,max=200"`
	Description string  `json:"description" binding:"required,notblank,max=5000"`
	Budget      float64 `json:"budget" binding:"required,gt=0"`
}

type createBidRequest struct {
	GigID   string  `json:"gigId" binding:"required,uuid"`
	Message string  `json:"message" binding:"required,notblank,max=2000"`
	Price   float64 `json:"price" binding:"required,gt=0"`
}

func (h *Handler) listGigs(c *gin.Context) {
	gigs, err := h.gigs.ListOpen(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gigs)
}

func (h *Handler) getGig(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	gig, err := h.gigs.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gig)
}

func (h *Handler) createGig(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createGigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gig, err := h.gigs.Create(c.Request.Context(), service.CreateGigInput{
		Principal:   principal,
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gig)
}

func (h *Handler) createBid(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	gigID, err := uuid.Parse(strings.TrimSpace(req.GigID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gigId"})
		return
	}

	bid, err := h.bids.Create(c.Request.Context(), service.CreateBidInput{
		Principal: principal,
		GigID:     gigID,
		Message:   req.Message,
		Price:     req.Price,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bid)
}

// listBids serves GET /api/bids/:id where id is the gig.
func (h *Handler) listBids(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	gigID, ok := parseID(c, "id")
	if !ok {
		return
	}

	bids, err := h.bids.ListForGig(c.Request.Context(), principal, gigID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, bids)
}

func (h *Handler) hire(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	bidID, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.hiring.Hire(c.Request.Context(), service.HireInput{
		Principal: principal,
		BidID:     bidID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Freelancer hired successfully",
		"gig":     result.Gig,
		"bid":     result.Bid,
	})
}

func (h *Handler) exportBids(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	gigID, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.exports.BidsWorkbook(c.Request.Context(), principal, gigID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

func (h *Handler) hireConfirmation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	bidID, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.exports.HireConfirmation(c.Request.Context(), principal, bidID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

func (h *Handler) events(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	h.streams.Serve(c, principal.UserID)
}

func (h *Handler) websocket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	if err := h.sockets.Serve(c.Writer, c.Request, principal.UserID); err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(param)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}
