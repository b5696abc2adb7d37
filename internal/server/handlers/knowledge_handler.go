package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/bots"
	"github.com/AubakirovArman/tomoru-sub000/internal/knowledge"
)

type KnowledgeHandler struct {
	knowledge *knowledge.Service
	bots      *bots.Service
	logger    *zap.Logger
}

func NewKnowledgeHandler(kbSvc *knowledge.Service, botSvc *bots.Service, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledge: kbSvc,
		bots:      botSvc,
		logger:    logger.With(zap.String("handler", "knowledge")),
	}
}

type knowledgeBaseRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *KnowledgeHandler) Create(c *gin.Context) {
	var req knowledgeBaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kb, err := h.knowledge.Create(c.Request.Context(), currentUserID(c), req.Name)
	if err != nil {
		h.logger.Error("Failed to create knowledge base", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, kb)
}

func (h *KnowledgeHandler) List(c *gin.Context) {
	kbs, err := h.knowledge.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logger.Error("Failed to list knowledge bases", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"knowledge_bases": kbs})
}

func (h *KnowledgeHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("kbID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid knowledge base id"})
		return
	}

	if err := h.knowledge.Delete(c.Request.Context(), id, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadFile accepts a multipart form with a single "file" field and
// pushes it into the knowledge base's vector store.
func (h *KnowledgeHandler) UploadFile(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("kbID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid knowledge base id"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	if err := h.knowledge.UploadFile(c.Request.Context(), currentUserID(c), id, fileHeader.Filename, data); err != nil {
		h.logger.Error("Failed to upload file",
			zap.Error(err),
			zap.Int64("kb_id", id),
			zap.String("file_name", fileHeader.Filename))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "uploaded"})
}

// Bind attaches a knowledge base to a bot; Unbind detaches it. Both
// re-sync the assistant's file-search resources.
func (h *KnowledgeHandler) Bind(c *gin.Context) {
	botID, kbID, ok := h.bindParams(c)
	if !ok {
		return
	}

	if err := h.bots.BindKnowledgeBase(c.Request.Context(), currentUserID(c), botID, kbID); err != nil {
		h.logger.Error("Failed to bind knowledge base",
			zap.Error(err),
			zap.Int64("bot_id", botID),
			zap.Int64("kb_id", kbID))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "bound"})
}

func (h *KnowledgeHandler) Unbind(c *gin.Context) {
	botID, kbID, ok := h.bindParams(c)
	if !ok {
		return
	}

	if err := h.bots.UnbindKnowledgeBase(c.Request.Context(), currentUserID(c), botID, kbID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unbound"})
}

func (h *KnowledgeHandler) bindParams(c *gin.Context) (int64, int64, bool) {
	botID, err := strconv.ParseInt(c.Param("botID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bot id"})
		return 0, 0, false
	}
	kbID, err := strconv.ParseInt(c.Param("kbID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid knowledge base id"})
		return 0, 0, false
	}
	return botID, kbID, true
}
