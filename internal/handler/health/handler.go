package health

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/genie-widget/pkg/utils"
)

// SessionCounter reports how many widget sessions are open.
type SessionCounter interface {
	Count() int
}

// Handler 健康检查的HTTP处理器
type Handler struct {
	answerEndpoint string
	serializeSends bool
	sessions       SessionCounter
}

// New 创建健康检查处理器
func New(answerEndpoint string, serializeSends bool, sessions SessionCounter) *Handler {
	return &Handler{
		answerEndpoint: answerEndpoint,
		serializeSends: serializeSends,
		sessions:       sessions,
	}
}

// RegisterRoutes 注册健康检查路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"answerEndpoint": h.answerEndpoint,
		"serializeSends": h.serializeSends,
		"sessions":       h.sessions.Count(),
	})
}
