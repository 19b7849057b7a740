package handler

import (
	"net/http"

	"bancas/internal/dto"
	"bancas/internal/service"

	"github.com/gin-gonic/gin"
)

type PagosHandler struct{ svc service.PagoService }

func NewPagosHandler(svc service.PagoService) *PagosHandler { return &PagosHandler{svc: svc} }

// Registrar godoc
// @Summary      Registrar pago de premio
// @Description  Paga total o parcialmente un ticket ganador. Una llave de idempotencia repetida devuelve el pago original con 200.
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                   true "UUID del ticket"
// @Param        body body dto.RegistrarPagoRequest true "Pago"
// @Success      201  {object} dto.PagoResponse
// @Success      200  {object} dto.PagoResponse
// @Failure      400  {object} apierror.Rejection
// @Failure      409  {object} apierror.Rejection
// @Router       /v1/tickets/{id}/pagos [post]
func (h *PagosHandler) Registrar(c *gin.Context) {
	ticketID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.RegistrarPagoRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.Registrar(c.Request.Context(), ticketID, actorFrom(c).UserID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// Revertir godoc
// @Summary      Revertir el último pago activo
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                  true "UUID del ticket"
// @Param        body body dto.RevertirPagoRequest false "Motivo"
// @Success      200  {object} dto.PagoResponse
// @Failure      409  {object} apierror.Rejection
// @Router       /v1/tickets/{id}/pagos/revertir [post]
func (h *PagosHandler) Revertir(c *gin.Context) {
	ticketID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.RevertirPagoRequest
	if !bindOptionalAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.Revertir(c.Request.Context(), ticketID, actorFrom(c).UserID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PagosHandler) Totales(c *gin.Context) {
	ticketID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Totales(c.Request.Context(), ticketID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PagosHandler) Historial(c *gin.Context) {
	ticketID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Historial(c.Request.Context(), ticketID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
