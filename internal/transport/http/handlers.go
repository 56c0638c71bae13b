package http

import (
	"net/http"
	"strings"

	"github.com/dkeye/Interview/internal/app"
	"github.com/dkeye/Interview/internal/config"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/gin-gonic/gin"
)

// Handlers serve the static collaborator endpoints the participant needs
// next to the relay: ICE servers, the problem catalog and room occupancy.
type Handlers struct {
	Cfg *config.Config
	Hub *app.Hub
}

func NewHandlers(cfg *config.Config, hub *app.Hub) *Handlers {
	return &Handlers{Cfg: cfg, Hub: hub}
}

func (h *Handlers) Register(api *gin.RouterGroup) {
	api.GET("/ice-servers", h.handleICEServers)
	api.GET("/problems", h.handleProblems)
	api.GET("/rooms", h.handleRooms)
	api.GET("/rooms/:id", h.handleRoom)
}

func (h *Handlers) handleICEServers(c *gin.Context) {
	servers := h.Cfg.ICEServers
	if servers == nil {
		servers = []config.ICEServer{}
	}
	c.JSON(http.StatusOK, servers)
}

func (h *Handlers) handleProblems(c *gin.Context) {
	problems := h.Cfg.Problems
	if problems == nil {
		problems = []domain.Problem{}
	}
	c.JSON(http.StatusOK, problems)
}

func (h *Handlers) handleRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.Hub.RoomList())
}

func (h *Handlers) handleRoom(c *gin.Context) {
	id := c.Param("id")
	if id == "" || strings.Contains(id, "/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid room id"})
		return
	}
	c.JSON(http.StatusOK, h.Hub.Room(domain.RoomID(id)))
}
