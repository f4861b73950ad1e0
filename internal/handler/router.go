package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/genie-widget/internal/config"
	"github.com/zhouzirui/genie-widget/internal/handler/health"
	widgetHandler "github.com/zhouzirui/genie-widget/internal/handler/widget"
	middlewarePkg "github.com/zhouzirui/genie-widget/internal/middleware"
	"github.com/zhouzirui/genie-widget/internal/service/answer"
	chatService "github.com/zhouzirui/genie-widget/internal/service/chat"
	"github.com/zhouzirui/genie-widget/pkg/utils"
)

// Endpointer is implemented by Answer Service clients that know their URL.
type Endpointer interface {
	Endpoint() string
}

// NewRouter wires HTTP routes to the widget host.
func NewRouter(asker answer.Asker, chatSvc *chatService.Service, widgetCfg config.WidgetConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(log.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	endpoint := ""
	if e, ok := asker.(Endpointer); ok {
		endpoint = e.Endpoint()
	}

	widgets := widgetHandler.New(asker, chatSvc, widgetCfg)
	healthHandler := health.New(endpoint, widgetCfg.SerializeSends, chatSvc)

	r.Get("/", widgets.ServePage)

	r.Route("/api", func(api chi.Router) {
		healthHandler.RegisterRoutes(api)
		widgets.RegisterRoutes(api)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "Endpoint not found")
	})

	return r
}
