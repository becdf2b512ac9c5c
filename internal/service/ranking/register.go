package ranking

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	svcErr "github.com/echomatch/echomatch/internal/errors"
	"github.com/echomatch/echomatch/internal/server"
)

type Registrar struct {
	svc *Service
}

func NewRegistrar(svc *Service) *Registrar { return &Registrar{svc: svc} }

func (reg *Registrar) Register(r chi.Router) {
	r.Post("/ranking/rebuild", reg.rebuildHandler)
	r.Get("/ranking/candidates/{userID}", reg.candidatesHandler)
}

func (reg *Registrar) rebuildHandler(w http.ResponseWriter, r *http.Request) {
	res, err := reg.svc.RebuildVectors(r.Context())
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, res)
}

func (reg *Registrar) candidatesHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	topK := 0
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			server.RespondError(w, svcErr.InvalidArgument("top_k must be a positive integer"))
			return
		}
		topK = n
	}

	candidates, err := reg.svc.RankCandidates(r.Context(), userID, topK)
	if err != nil {
		server.RespondError(w, err)
		return
	}
	server.RespondJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}
