package nearby

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/echomatch/echomatch/internal/server"
)

type Registrar struct {
	svc *Service
}

func NewRegistrar(svc *Service) *Registrar { return &Registrar{svc: svc} }

func (reg *Registrar) Register(r chi.Router) {
	r.Post("/presence", reg.updatePresenceHandler)
}

type presenceRequest struct {
	Lat     *float64 `json:"lat" validate:"required"`
	Lng     *float64 `json:"lng" validate:"required"`
	Mode    string   `json:"mode" validate:"omitempty,oneof=track artist"`
	RadiusM float64  `json:"radius_m" validate:"omitempty,gt=0"`
}

func (reg *Registrar) updatePresenceHandler(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if err := server.DecodeValid(r, &req); err != nil {
		server.RespondError(w, err)
		return
	}

	result, err := reg.svc.UpdatePresence(r.Context(), UpdateRequest{
		UserID:  server.UserID(r.Context()),
		Lat:     *req.Lat,
		Lng:     *req.Lng,
		Mode:    req.Mode,
		RadiusM: req.RadiusM,
	})
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, result)
}
