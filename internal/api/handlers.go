package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mediachat/internal/gemini"
	"mediachat/internal/media"
	"mediachat/internal/models"
	"mediachat/internal/service/chat"
)

// Per-kind upload caps, applied unless the global config cap is tighter.
var maxUploadBytes = map[models.MediaKind]int64{
	models.KindDocument: 10 << 20,
	models.KindImage:    10 << 20,
	models.KindAudio:    20 << 20,
	models.KindVideo:    100 << 20,
}

// Handler wires HTTP routes to the per-slot interaction flow.
type Handler struct {
	chat      *chat.Service
	defaults  models.GenerationParams
	maxUpload int64 // global cap in bytes, 0 = per-kind caps only
}

// NewHandler constructs a Handler instance.
func NewHandler(service *chat.Service, defaults models.GenerationParams, maxUploadBytes int64) *Handler {
	return &Handler{
		chat:      service,
		defaults:  defaults,
		maxUpload: maxUploadBytes,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/slots", h.listSlots)
	slot := api.Group("/slots/:slot")
	slot.POST("/files", h.uploadFiles)
	slot.POST("/messages", h.sendMessage)
	slot.GET("/messages", h.getTranscript)
	slot.POST("/reset", h.resetSlot)
}

func (h *Handler) slotParam(c *gin.Context) (models.Slot, bool) {
	slot, err := models.ParseSlot(c.Param("slot"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return slot, true
}

// listSlots backs the media-kind selector and the parameter panel.
func (h *Handler) listSlots(c *gin.Context) {
	slots := make([]gin.H, 0, len(models.Slots))
	for _, slot := range models.Slots {
		slots = append(slots, gin.H{
			"id":               slot,
			"kind":             slot.Kind(),
			"extensions":       media.AllowedExtensions(slot),
			"multi_file":       slot.MultiFile(),
			"requires_polling": slot.RequiresPolling(),
			"max_upload_bytes": h.uploadLimit(slot.Kind()),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"slots":    slots,
		"defaults": h.defaults,
		"limits": gin.H{
			"temperature":       []float64{models.MinTemperature, models.MaxTemperature},
			"top_p":             []float64{models.MinTopP, models.MaxTopP},
			"max_output_tokens": []int{models.MinMaxTokens, models.MaxMaxTokens},
		},
	})
}

func (h *Handler) uploadLimit(kind models.MediaKind) int64 {
	limit := maxUploadBytes[kind]
	if h.maxUpload > 0 && (limit == 0 || h.maxUpload < limit) {
		limit = h.maxUpload
	}
	return limit
}

func (h *Handler) uploadFiles(c *gin.Context) {
	slot, ok := h.slotParam(c)
	if !ok {
		return
	}
	limit := h.uploadLimit(slot.Kind())
	if limit == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slot does not accept file uploads"})
		return
	}
	if err := c.Request.ParseMultipartForm(limit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	form := c.Request.MultipartForm
	headers := form.File["file"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	uploads := make([]chat.Upload, 0, len(headers))
	var closers []interface{ Close() error }
	defer func() {
		for _, cl := range closers {
			cl.Close()
		}
	}()
	for _, header := range headers {
		if header.Size > limit {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
			return
		}
		closers = append(closers, f)

		buf := make([]byte, 512)
		n, _ := f.Read(buf)
		if _, err := f.Seek(0, 0); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "read file failed"})
			return
		}
		if !media.SniffAllowed(slot, http.DetectContentType(buf[:n])) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file content"})
			return
		}
		uploads = append(uploads, chat.Upload{Name: header.Filename, Data: f})
	}

	attachments, err := h.chat.Attach(c.Request.Context(), slot, uploads)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attachments": attachments})
}

type messageRequest struct {
	Content         string   `json:"content"`
	Reset           bool     `json:"reset"`
	Temperature     *float32 `json:"temperature"`
	TopP            *float32 `json:"top_p"`
	MaxOutputTokens *int32   `json:"max_output_tokens"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	slot, ok := h.slotParam(c)
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	params := h.defaults
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		params.TopP = *req.TopP
	}
	if req.MaxOutputTokens != nil {
		params.MaxOutputTokens = *req.MaxOutputTokens
	}
	if err := params.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.chat.Ask(c.Request.Context(), slot, req.Content, &params, req.Reset)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{"reply": reply}
	if reply.Usage != nil {
		resp["usage"] = reply.Usage
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getTranscript(c *gin.Context) {
	slot, ok := h.slotParam(c)
	if !ok {
		return
	}
	transcript := h.chat.Transcript(slot)
	if transcript == nil {
		transcript = make([]*models.ChatMessage, 0)
	}
	c.JSON(http.StatusOK, gin.H{"messages": transcript})
}

func (h *Handler) resetSlot(c *gin.Context) {
	slot, ok := h.slotParam(c)
	if !ok {
		return
	}
	h.chat.Reset(c.Request.Context(), slot)
	c.Status(http.StatusNoContent)
}

// errorStatus maps the interaction error taxonomy onto HTTP statuses. Every
// slot error stays inline; nothing here crashes the process.
func errorStatus(err error) int {
	var (
		uploadErr     *gemini.UploadError
		processingErr *gemini.AssetProcessingError
		inferenceErr  *gemini.InferenceError
	)
	switch {
	case errors.As(err, &uploadErr):
		return http.StatusBadGateway
	case errors.As(err, &processingErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &inferenceErr):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
