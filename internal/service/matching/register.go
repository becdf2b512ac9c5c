package matching

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/echomatch/echomatch/internal/app"
	"github.com/echomatch/echomatch/internal/server"
)

// Registrar ties the matching service into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the matching endpoints to the router.
func (reg *Registrar) Register(r chi.Router) {
	svc := NewService(reg.appCtx)

	r.Post("/swipes", swipeHandler(svc))
	r.Get("/likes/incoming", incomingLikesHandler(svc))
	r.Get("/likes/outgoing", outgoingLikesHandler(svc))
	r.Get("/matches", matchListHandler(svc))
}

type swipeRequest struct {
	ToUserID string `json:"to_user_id" validate:"required"`
	Action   string `json:"action" validate:"required,oneof=LIKE PASS"`
}

func swipeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req swipeRequest
		if err := server.DecodeValid(r, &req); err != nil {
			server.RespondError(w, err)
			return
		}

		result, err := svc.Swipe(r.Context(), server.UserID(r.Context()), req.ToUserID, req.Action)
		if err != nil {
			server.RespondError(w, err)
			return
		}
		server.RespondJSON(w, http.StatusOK, result)
	}
}

func incomingLikesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.ListPendingIncomingLikes(r.Context(), server.UserID(r.Context()))
		if err != nil {
			server.RespondError(w, err)
			return
		}
		server.RespondJSON(w, http.StatusOK, map[string]any{"likes": entries})
	}
}

func outgoingLikesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.ListOutgoingUnmatchedLikes(r.Context(), server.UserID(r.Context()))
		if err != nil {
			server.RespondError(w, err)
			return
		}
		server.RespondJSON(w, http.StatusOK, map[string]any{"likes": entries})
	}
}

func matchListHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.ListMatches(r.Context(), server.UserID(r.Context()))
		if err != nil {
			server.RespondError(w, err)
			return
		}
		server.RespondJSON(w, http.StatusOK, map[string]any{"matches": entries})
	}
}
