package ws

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/PabloGalante/threeway-relay/internal/app/relay"
	"github.com/PabloGalante/threeway-relay/internal/domain"
	"github.com/PabloGalante/threeway-relay/internal/observability"
)

// Clients connect from phones, extensions, and test scripts on arbitrary
// origins; the relay carries no credentials, so every origin is allowed.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler exposes the two duplex role channels and runs their receive loops.
type Handler struct {
	log      *slog.Logger
	registry *Registry
	engine   *relay.Engine
}

func NewHandler(registry *Registry, engine *relay.Engine) *Handler {
	return &Handler{
		log:      observability.ForComponent("ws"),
		registry: registry,
		engine:   engine,
	}
}

// Register mounts the role endpoints on the router.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/ws/phone", h.serve(domain.RolePhone))
	r.GET("/ws/cursor", h.serve(domain.RoleCursor))
}

func (h *Handler) serve(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Warn("upgrade failed", "role", role, "error", err)
			return
		}

		h.registry.Accept(role, conn)
		h.readLoop(c, role, conn)
	}
}

// readLoop services one connection until transport error or close. Any
// receive failure drops the slot and terminates only this role's loop; the
// peer's loop is untouched. The role must re-connect to resume.
func (h *Handler) readLoop(c *gin.Context, role domain.Role, conn *websocket.Conn) {
	defer h.registry.DropConn(role, conn)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.log.Info("connection closed", "role", role, "error", err)
			return
		}
		h.engine.HandleInbound(c.Request.Context(), role, payload)
	}
}
