package handler

import (
	"net/http"

	"bancas/internal/apierror"
	"bancas/internal/dto"
	"bancas/internal/model"
	"bancas/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ComisionesHandler struct{ svc service.ComisionService }

func NewComisionesHandler(svc service.ComisionService) *ComisionesHandler {
	return &ComisionesHandler{svc: svc}
}

func actorParams(c *gin.Context) (model.ActorType, uuid.UUID, bool) {
	actorID, ok := parseIDParam(c, "actorId")
	if !ok {
		return "", uuid.Nil, false
	}
	return model.ActorType(c.Param("actorType")), actorID, true
}

// Guardar replaces the actor's policy. The body is the policy document
// itself; field checks run in the engine so every issue is reported.
func (h *ComisionesHandler) Guardar(c *gin.Context) {
	actorType, actorID, ok := actorParams(c)
	if !ok {
		return
	}
	var policy model.CommissionPolicyV1
	if err := c.ShouldBindJSON(&policy); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return
	}

	saved, err := h.svc.Guardar(c.Request.Context(), actorType, actorID, actorFrom(c).UserID, policy)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// Obtener answers 200 with a null body when the actor has no policy.
func (h *ComisionesHandler) Obtener(c *gin.Context) {
	actorType, actorID, ok := actorParams(c)
	if !ok {
		return
	}
	policy, err := h.svc.Obtener(c.Request.Context(), actorType, actorID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, policy)
}

func (h *ComisionesHandler) Reset(c *gin.Context) {
	actorType, actorID, ok := actorParams(c)
	if !ok {
		return
	}
	if err := h.svc.Reset(c.Request.Context(), actorType, actorID, actorFrom(c).UserID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ComisionesHandler) Resolver(c *gin.Context) {
	actorType, actorID, ok := actorParams(c)
	if !ok {
		return
	}
	var req dto.ResolverComisionRequest
	if !bindQueryAndValidate(c, &req) {
		return
	}
	var err error
	if req.MultiplierX, err = queryDecimal(c, "multiplierX"); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("multiplierX invalido"))
		return
	}
	if req.Amount, err = queryDecimal(c, "amount"); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("amount invalido"))
		return
	}

	res, err := h.svc.Resolver(c.Request.Context(), actorType, actorID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ResolverTicket is mounted under /v1/tickets/:id/comision?actorType=VENTANA.
func (h *ComisionesHandler) ResolverTicket(c *gin.Context) {
	ticketID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actorType := model.ActorType(c.DefaultQuery("actorType", string(model.ActorVentana)))
	resp, err := h.svc.ResolverTicket(c.Request.Context(), ticketID, actorType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func queryDecimal(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
