package handler

import (
	"net/http"

	"bancas/internal/apierror"
	"bancas/internal/dto"
	"bancas/internal/middleware"
	"bancas/internal/service"

	"github.com/gin-gonic/gin"
)

type TicketsHandler struct{ svc service.TicketService }

func NewTicketsHandler(svc service.TicketService) *TicketsHandler { return &TicketsHandler{svc: svc} }

// Crear godoc
// @Summary      Vender un ticket
// @Description  Verifica el estado del sorteo, la ventana de cierre de ventas y las jugadas antes de registrar el ticket.
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearTicketRequest true "Ticket"
// @Success      201  {object} dto.TicketResponse
// @Failure      409  {object} apierror.Rejection
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/tickets [post]
func (h *TicketsHandler) Crear(c *gin.Context) {
	var req dto.CrearTicketRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actor := actorFrom(c)
	// Vendedores always sell as themselves.
	if req.VendedorID != nil && actor.Rol == middleware.RolVendedor {
		c.JSON(http.StatusForbidden, apierror.New("Un vendedor no puede vender a nombre de otro"))
		return
	}

	resp, err := h.svc.Crear(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TicketsHandler) Obtener(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
