package widget

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/genie-widget/internal/model/chat"
	chatservice "github.com/zhouzirui/genie-widget/internal/service/chat"
	"github.com/zhouzirui/genie-widget/pkg/utils"
)

// sessionView is the JSON form of a live widget session.
type sessionView struct {
	SessionID string       `json:"sessionId"`
	CreatedAt time.Time    `json:"createdAt"`
	Visible   bool         `json:"visible"`
	Input     string       `json:"input"`
	InFlight  int          `json:"inFlight"`
	Entries   []chat.Entry `json:"entries"`
}

// handleGetSession 查询会话中组件的当前状态
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	state, err := h.chatSvc.Snapshot(r.Context(), sessionID)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessionView{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
		Visible:   state.Visible,
		Input:     state.Input,
		InFlight:  state.InFlight,
		Entries:   state.Entries,
	})
}

func respondSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, chatservice.ErrSessionNotFound) {
		status = http.StatusNotFound
	}
	utils.RespondError(w, status, err.Error())
}
