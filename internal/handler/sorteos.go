package handler

import (
	"net/http"

	"bancas/internal/dto"
	"bancas/internal/model"
	"bancas/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SorteosHandler struct{ svc service.SorteoService }

func NewSorteosHandler(svc service.SorteoService) *SorteosHandler { return &SorteosHandler{svc: svc} }

func (h *SorteosHandler) Crear(c *gin.Context) {
	var req dto.CrearSorteoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	s, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *SorteosHandler) Obtener(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	s, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Transicion returns a handler moving the sorteo to next.
func (h *SorteosHandler) Transicion(next model.SorteoStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		s, err := h.svc.Transicionar(c.Request.Context(), id, next)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

func (h *SorteosHandler) Reprogramar(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ReprogramarSorteoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	s, err := h.svc.Reprogramar(c.Request.Context(), id, req.ScheduledAt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Evaluar records the evaluated results of a CLOSED sorteo.
//
// @Summary      Registrar resultados de un sorteo
// @Tags         sorteos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                   true "UUID del sorteo"
// @Param        body body dto.EvaluarSorteoRequest true "Resultados por jugada"
// @Success      200  {object} dto.EvaluacionResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/sorteos/{id}/evaluar [post]
func (h *SorteosHandler) Evaluar(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.EvaluarSorteoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resultados := make([]service.ResultadoJugada, 0, len(req.Resultados))
	for _, r := range req.Resultados {
		resultados = append(resultados, service.ResultadoJugada{
			JugadaID: uuid.MustParse(r.JugadaID),
			IsWinner: r.IsWinner,
			Payout:   r.Payout,
		})
	}
	resp, err := h.svc.Evaluar(c.Request.Context(), id, resultados)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
