package handler

import (
	"net/http"

	"bancas/internal/apierror"
	"bancas/internal/dto"
	"bancas/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RestriccionesHandler struct{ svc service.RestriccionService }

func NewRestriccionesHandler(svc service.RestriccionService) *RestriccionesHandler {
	return &RestriccionesHandler{svc: svc}
}

func (h *RestriccionesHandler) Crear(c *gin.Context) {
	var req dto.RestriccionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rule, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *RestriccionesHandler) Listar(c *gin.Context) {
	rules, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *RestriccionesHandler) Reemplazar(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.RestriccionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rule, err := h.svc.Reemplazar(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// Cutoff resolves the effective sales cutoff for an arbitrary scope.
func (h *RestriccionesHandler) Cutoff(c *gin.Context) {
	var q dto.CutoffQuery
	if !bindQueryAndValidate(c, &q) {
		return
	}
	// Empty or absent scopes parse to uuid.Nil, which matches no rule.
	userID, _ := uuid.Parse(q.UserID)
	ventanaID, _ := uuid.Parse(q.VentanaID)
	bancaID, _ := uuid.Parse(q.BancaID)

	minutes, err := h.svc.ResolverCutoff(c.Request.Context(), userID, ventanaID, bancaID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CutoffResponse{SalesCutoffMinutes: minutes})
}

// VentanaVenta tells the caller whether a sorteo at fecha/hora still sells.
func (h *RestriccionesHandler) VentanaVenta(c *gin.Context) {
	var q dto.VentanaVentaRequest
	if !bindQueryAndValidate(c, &q) {
		return
	}
	decision, err := h.svc.VentanaVenta(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, decision)
}
