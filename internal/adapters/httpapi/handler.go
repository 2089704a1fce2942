// Package httpapi is the read-mostly status surface next to the websocket
// channels: server info, health, the ledger dump, the derived context, and
// the model-selection pair.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PabloGalante/threeway-relay/internal/app/relay"
	"github.com/PabloGalante/threeway-relay/internal/domain"
	"github.com/PabloGalante/threeway-relay/internal/ledger"
)

type Handler struct {
	serverName string
	ledger     *ledger.Ledger
	peers      domain.Registry
	engine     *relay.Engine
}

func NewHandler(serverName string, l *ledger.Ledger, peers domain.Registry, engine *relay.Engine) *Handler {
	return &Handler{
		serverName: serverName,
		ledger:     l,
		peers:      peers,
		engine:     engine,
	}
}

// Register mounts the status routes on the router.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.handleRoot)
	r.GET("/health", h.handleHealth)
	r.GET("/history", h.handleHistory)
	r.GET("/context", h.handleContext)
	r.GET("/models", h.handleListModels)
	r.POST("/models", h.handleSwitchModel)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type connectionsResponse struct {
	Phone  bool `json:"phone"`
	Cursor bool `json:"cursor"`
}

type messageResponse struct {
	Sender      string `json:"sender"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	Timestamp   string `json:"timestamp"`
}

type contextResponse struct {
	Category         string   `json:"category"`
	LastUserQuestion string   `json:"last_user_question,omitempty"`
	LastPeerReply    string   `json:"last_peer_reply,omitempty"`
	RecentKeywords   []string `json:"recent_keywords"`
}

type modelsResponse struct {
	Models []string `json:"models"`
	Active string   `json:"active"`
}

type switchModelRequest struct {
	Model string `json:"model"`
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func (h *Handler) handleRoot(c *gin.Context) {
	_, active := h.engine.Models()
	c.JSON(http.StatusOK, gin.H{
		"message":     h.serverName,
		"status":      "running",
		"connections": h.connections(),
		"model":       active,
	})
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().Format(time.RFC3339),
		"connections": h.connections(),
	})
}

func (h *Handler) handleHistory(c *gin.Context) {
	msgs := h.ledger.All()
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			Sender:      string(m.Sender),
			Content:     m.Content,
			MessageType: m.Kind,
			Timestamp:   m.Timestamp.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (h *Handler) handleContext(c *gin.Context) {
	convCtx := h.ledger.Context()
	c.JSON(http.StatusOK, contextResponse{
		Category:         string(convCtx.Category),
		LastUserQuestion: convCtx.LastUserQuestion,
		LastPeerReply:    convCtx.LastPeerReply,
		RecentKeywords:   ledger.DedupKeywords(convCtx.RecentKeywords),
	})
}

func (h *Handler) handleListModels(c *gin.Context) {
	names, active := h.engine.Models()
	c.JSON(http.StatusOK, modelsResponse{Models: names, Active: active})
}

func (h *Handler) handleSwitchModel(c *gin.Context) {
	var req switchModelRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Model == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model is required"})
		return
	}

	if err := h.engine.SwitchModel(req.Model); err != nil {
		if errors.Is(err, relay.ErrUnknownModel) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	names, active := h.engine.Models()
	c.JSON(http.StatusOK, modelsResponse{Models: names, Active: active})
}

func (h *Handler) connections() connectionsResponse {
	return connectionsResponse{
		Phone:  h.peers.IsConnected(domain.RolePhone),
		Cursor: h.peers.IsConnected(domain.RoleCursor),
	}
}
