package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bancas/internal/dto"
	"bancas/internal/engine"
	"bancas/internal/middleware"
	"bancas/internal/model"
	"bancas/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubPagoService struct {
	registrar func(req dto.RegistrarPagoRequest) (*dto.PagoResponse, error)
	actor     uuid.UUID
	reversal  *dto.RevertirPagoRequest
}

func (s *stubPagoService) Registrar(_ context.Context, _, actorID uuid.UUID, req dto.RegistrarPagoRequest) (*dto.PagoResponse, error) {
	s.actor = actorID
	return s.registrar(req)
}

func (s *stubPagoService) Revertir(_ context.Context, _, _ uuid.UUID, req dto.RevertirPagoRequest) (*dto.PagoResponse, error) {
	s.reversal = &req
	return nil, engine.ErrSinPagoActivo
}

func (s *stubPagoService) Totales(context.Context, uuid.UUID) (*dto.TotalesPagoResponse, error) {
	return nil, service.ErrTicketNoEncontrado
}

func (s *stubPagoService) Historial(context.Context, uuid.UUID) (*dto.HistorialPagosResponse, error) {
	return &dto.HistorialPagosResponse{Pagos: []model.TicketPayment{}}, nil
}

type stubTicketService struct{ err error }

func (s *stubTicketService) Crear(context.Context, service.Actor, dto.CrearTicketRequest) (*dto.TicketResponse, error) {
	return nil, s.err
}

func (s *stubTicketService) Obtener(context.Context, uuid.UUID) (*dto.TicketResponse, error) {
	return nil, s.err
}

// ── Helpers ───────────────────────────────────────────────────────────────────

var testClaims = &middleware.JWTClaims{UserID: uuid.NewString(), Rol: middleware.RolVendedor}

func withClaims(c *gin.Context) {
	c.Set(middleware.ClaimsKey, testClaims)
	c.Next()
}

func newTestRouter(pagos service.PagoService, tickets service.TicketService) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler(), withClaims)
	ph := NewPagosHandler(pagos)
	th := NewTicketsHandler(tickets)
	r.POST("/v1/tickets", th.Crear)
	r.POST("/v1/tickets/:id/pagos", ph.Registrar)
	r.POST("/v1/tickets/:id/pagos/revertir", ph.Revertir)
	r.GET("/v1/tickets/:id/pagos/totales", ph.Totales)
	return r
}

func do(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func pagoBody(amount string) map[string]interface{} {
	return map[string]interface{}{"amountPaid": amount, "method": "cash", "idempotencyKey": "k1"}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestRegistrarPago_CreatedVsReplay(t *testing.T) {
	replayed := false
	svc := &stubPagoService{registrar: func(req dto.RegistrarPagoRequest) (*dto.PagoResponse, error) {
		return &dto.PagoResponse{
			Pago:     model.TicketPayment{AmountPaid: req.AmountPaid, IdempotencyKey: req.IdempotencyKey},
			Estado:   engine.StatusPartial,
			Replayed: replayed,
		}, nil
	}}
	r := newTestRouter(svc, &stubTicketService{})
	path := "/v1/tickets/" + uuid.NewString() + "/pagos"

	w := do(r, http.MethodPost, path, pagoBody("100.50"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, testClaims.UserID, svc.actor.String())

	var resp dto.PagoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Pago.AmountPaid.Equal(decimal.RequireFromString("100.50")))

	replayed = true
	w = do(r, http.MethodPost, path, pagoBody("100.50"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegistrarPago_RejectionEnvelope(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{engine.ErrMontoInvalido, http.StatusBadRequest, "MONTO_INVALIDO"},
		{engine.ErrTicketPagado, http.StatusConflict, "TICKET_PAGADO"},
		{engine.ErrTicketCerrado, http.StatusConflict, "TICKET_CERRADO"},
		{engine.ErrTicketNoGanador, http.StatusConflict, "TICKET_NO_GANADOR"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			svc := &stubPagoService{registrar: func(dto.RegistrarPagoRequest) (*dto.PagoResponse, error) {
				return nil, tc.err
			}}
			w := do(newTestRouter(svc, &stubTicketService{}), http.MethodPost, "/v1/tickets/"+uuid.NewString()+"/pagos", pagoBody("1"))
			assert.Equal(t, tc.status, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body["code"])
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestRegistrarPago_RequestValidation(t *testing.T) {
	svc := &stubPagoService{}
	r := newTestRouter(svc, &stubTicketService{})

	w := do(r, http.MethodPost, "/v1/tickets/not-a-uuid/pagos", pagoBody("1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/v1/tickets/"+uuid.NewString()+"/pagos",
		map[string]interface{}{"amountPaid": "1", "method": "bitcoin"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"method":"oneof"`)
	assert.Contains(t, w.Body.String(), `"idempotencyKey":"required"`)
}

func TestRevertirYTotales_ErrorMapping(t *testing.T) {
	r := newTestRouter(&stubPagoService{}, &stubTicketService{})
	id := uuid.NewString()

	w := do(r, http.MethodPost, "/v1/tickets/"+id+"/pagos/revertir", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SIN_PAGO_ACTIVO")

	w = do(r, http.MethodGet, "/v1/tickets/"+id+"/pagos/totales", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCrearTicket_ErrorMapping(t *testing.T) {
	body := map[string]interface{}{
		"sorteoId": uuid.NewString(),
		"jugadas":  []map[string]interface{}{{"type": "NUMERO", "number": "7", "amount": "10"}},
	}

	res := engine.ValidationResult{Errors: []engine.ValidationIssue{
		{Field: "jugadas[0].number", Message: "el número debe tener dos dígitos (00-99)", Value: "7"},
	}}
	w := do(newTestRouter(&stubPagoService{}, &stubTicketService{err: &service.ValidacionError{Result: res}}), http.MethodPost, "/v1/tickets", body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"jugadas[0].number"`)
	assert.Contains(t, w.Body.String(), `"issues"`)

	w = do(newTestRouter(&stubPagoService{}, &stubTicketService{err: &service.VentasCerradasError{Message: "Ventas cerradas"}}), http.MethodPost, "/v1/tickets", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "VENTAS_CERRADAS")

	// A vendedor cannot sell on behalf of someone else.
	body["vendedorId"] = uuid.NewString()
	w = do(newTestRouter(&stubPagoService{}, &stubTicketService{}), http.MethodPost, "/v1/tickets", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRevertirPago_ChunkedBody(t *testing.T) {
	svc := &stubPagoService{}
	r := newTestRouter(svc, &stubTicketService{})
	path := "/v1/tickets/" + uuid.NewString() + "/pagos/revertir"

	chunked := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Body = io.NopCloser(strings.NewReader(body))
		req.ContentLength = -1
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := chunked("")
	assert.Equal(t, http.StatusConflict, w.Code, "empty chunked body means no reason: %s", w.Body.String())
	require.NotNil(t, svc.reversal)
	assert.Nil(t, svc.reversal.Reason)

	w = chunked(`{"reason":"billete duplicado"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, svc.reversal.Reason)
	assert.Equal(t, "billete duplicado", *svc.reversal.Reason)

	w = chunked(`{"reason":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type stubSorteoService struct {
	resultados []service.ResultadoJugada
	err        error
}

func (s *stubSorteoService) Crear(context.Context, dto.CrearSorteoRequest) (*model.Sorteo, error) {
	return nil, s.err
}

func (s *stubSorteoService) Obtener(context.Context, uuid.UUID) (*model.Sorteo, error) {
	return nil, s.err
}

func (s *stubSorteoService) Transicionar(context.Context, uuid.UUID, model.SorteoStatus) (*model.Sorteo, error) {
	return nil, s.err
}

func (s *stubSorteoService) Reprogramar(context.Context, uuid.UUID, time.Time) (*model.Sorteo, error) {
	return nil, s.err
}

func (s *stubSorteoService) Evaluar(_ context.Context, id uuid.UUID, resultados []service.ResultadoJugada) (*dto.EvaluacionResponse, error) {
	s.resultados = resultados
	if s.err != nil {
		return nil, s.err
	}
	return &dto.EvaluacionResponse{
		Sorteo:           model.Sorteo{ID: id, Status: model.SorteoEvaluated},
		TicketsEvaluados: 1,
		TicketsGanadores: 1,
		TotalPremios:     decimal.RequireFromString("900"),
	}, nil
}

func (s *stubSorteoService) CerrarVencidos(context.Context) (int64, error) { return 0, s.err }

func TestEvaluarSorteo(t *testing.T) {
	svc := &stubSorteoService{}
	r := gin.New()
	r.Use(middleware.ErrorHandler(), withClaims)
	r.POST("/v1/sorteos/:id/evaluar", NewSorteosHandler(svc).Evaluar)
	path := "/v1/sorteos/" + uuid.NewString() + "/evaluar"

	ganadora, perdedora := uuid.New(), uuid.New()
	w := do(r, http.MethodPost, path, map[string]interface{}{
		"resultados": []map[string]interface{}{
			{"jugadaId": ganadora.String(), "isWinner": true, "payout": "900"},
			{"jugadaId": perdedora.String(), "isWinner": false},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, svc.resultados, 2)
	assert.Equal(t, ganadora, svc.resultados[0].JugadaID)
	assert.True(t, svc.resultados[0].IsWinner)
	require.NotNil(t, svc.resultados[0].Payout)
	assert.True(t, svc.resultados[0].Payout.Equal(decimal.RequireFromString("900")))
	assert.Equal(t, perdedora, svc.resultados[1].JugadaID)
	assert.Nil(t, svc.resultados[1].Payout)
	assert.Contains(t, w.Body.String(), `"ticketsGanadores":1`)

	w = do(r, http.MethodPost, path, map[string]interface{}{
		"resultados": []map[string]interface{}{{"jugadaId": "jugada-7", "isWinner": true}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"uuid"`)

	svc.err = service.ErrTransicionInvalida
	w = do(r, http.MethodPost, path, map[string]interface{}{"resultados": []interface{}{}})
	assert.Equal(t, http.StatusConflict, w.Code)

	svc.err = &service.ValidacionError{Result: engine.ValidationResult{
		Errors: []engine.ValidationIssue{{Field: "resultados[0].jugadaId", Message: "la jugada no pertenece al sorteo"}},
	}}
	w = do(r, http.MethodPost, path, map[string]interface{}{"resultados": []interface{}{}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "resultados[0].jugadaId")
}
