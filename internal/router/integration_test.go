//go:build integration

package router_test

// Runs the payment flow against real Postgres and Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bancas/internal/config"
	"bancas/internal/engine"
	"bancas/internal/infra"
	"bancas/internal/middleware"
	"bancas/internal/model"
	"bancas/internal/repository"
	"bancas/internal/router"
	"bancas/internal/worker"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key"

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func adminToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := middleware.JWTClaims{
		UserID:   userID.String(),
		Username: "admin-e2e",
		Rol:      middleware.RolAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

type testEnv struct {
	server  *httptest.Server
	db      *gorm.DB
	token   string
	eventos repository.EventoRepository
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pgC, err := tcPostgres.Run(ctx, "postgres:15-alpine",
		tcPostgres.WithDatabase("bancas_test"),
		tcPostgres.WithUsername("bancas"),
		tcPostgres.WithPassword("bancas"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(context.Background()) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                 8000,
		Env:                  "test",
		JWTSecret:            testSecret,
		DatabaseURL:          pgURL,
		RedisURL:             rdURL,
		WorkerPoolSize:       1,
		DefaultCutoffMinutes: engine.DefaultSalesCutoffMinutes,
		Timezone:             "America/Costa_Rica",
		LockBackend:          "redis",
		LockTTLSeconds:       10,
		RateLimitRPS:         1000,
		RateLimitBurst:       1000,
	}

	decimal.MarshalJSONWithoutQuotes = true

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	eventos := repository.NewEventoRepository(db)
	eventsCB := infra.NewCircuitBreaker(infra.DefaultBreakerConfig())
	worker.StartWorkerPool(ctx, rdb, worker.WorkerHandlers{
		worker.JobPagoEvento: worker.NewAuditWorker(eventos),
	}, cfg.WorkerPoolSize)

	r := router.New(router.Deps{
		Config:     cfg,
		DB:         db,
		Redis:      rdb,
		Locker:     infra.NewRedisLocker(rdb, cfg.LockTTL()),
		Dispatcher: worker.NewDispatcher(worker.NewRedisQueue(rdb), eventsCB),
		EventsCB:   eventsCB,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{
		server:  srv,
		db:      db,
		token:   adminToken(t, uuid.New()),
		eventos: eventos,
	}
}

// seedWinner sells a one-jugada ticket on a CLOSED sorteo and evaluates it
// through the API, so payments see what evaluation really writes.
func seedWinner(t *testing.T, env *testEnv, payout int64) *model.Ticket {
	t.Helper()
	ctx := context.Background()

	sorteo := &model.Sorteo{
		ID:          uuid.New(),
		LoteriaID:   uuid.New(),
		ScheduledAt: time.Now().Add(-time.Hour),
		Status:      model.SorteoClosed,
	}
	require.NoError(t, repository.NewSorteoRepository(env.db).Create(ctx, sorteo))

	ticket := &model.Ticket{
		ID:          uuid.New(),
		SorteoID:    sorteo.ID,
		LoteriaID:   sorteo.LoteriaID,
		VendedorID:  uuid.New(),
		VentanaID:   uuid.New(),
		BancaID:     uuid.New(),
		TotalAmount: decimal.NewFromInt(50),
		Jugadas: []model.Jugada{
			{Type: model.BetNumero, Number: "27", Amount: decimal.NewFromInt(50)},
		},
	}
	require.NoError(t, repository.NewTicketRepository(env.db).Create(ctx, ticket))

	resp := do(t, env.server, http.MethodPost, fmt.Sprintf("/v1/sorteos/%s/evaluar", sorteo.ID), jsonBody(t, map[string]any{
		"resultados": []map[string]any{
			{"jugadaId": ticket.Jugadas[0].ID.String(), "isWinner": true, "payout": payout},
		},
	}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var eval struct {
		Sorteo           model.Sorteo    `json:"sorteo"`
		TicketsGanadores int             `json:"ticketsGanadores"`
		TotalPremios     decimal.Decimal `json:"totalPremios"`
	}
	decodeJSON(t, resp, &eval)
	require.Equal(t, model.SorteoEvaluated, eval.Sorteo.Status)
	require.Equal(t, 1, eval.TicketsGanadores)
	require.True(t, eval.TotalPremios.Equal(decimal.NewFromInt(payout)))
	return ticket
}

type pagoBody struct {
	Pago struct {
		ID        string `json:"id"`
		IsPartial bool   `json:"isPartial"`
	} `json:"pago"`
	Totales  engine.PaymentTotals    `json:"totales"`
	Estado   engine.SettlementStatus `json:"estado"`
	Replayed bool                    `json:"replayed"`
}

func TestIntegration_PaymentLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	ticket := seedWinner(t, env, 1000)
	base := fmt.Sprintf("/v1/tickets/%s/pagos", ticket.ID)

	// 1. Partial payment
	resp := do(t, env.server, http.MethodPost, base, jsonBody(t, map[string]any{
		"amountPaid": 400, "method": "cash", "idempotencyKey": "k-1",
	}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var first pagoBody
	decodeJSON(t, resp, &first)
	assert.True(t, first.Pago.IsPartial)
	assert.Equal(t, engine.StatusPartial, first.Estado)
	assert.True(t, first.Totales.RemainingAmount.Equal(decimal.NewFromInt(600)))

	// 2. Same key replays the stored row
	resp = do(t, env.server, http.MethodPost, base, jsonBody(t, map[string]any{
		"amountPaid": 400, "method": "cash", "idempotencyKey": "k-1",
	}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var replay pagoBody
	decodeJSON(t, resp, &replay)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Pago.ID, replay.Pago.ID)

	// 3. Two concurrent payments for the whole remainder: exactly one lands
	var wg sync.WaitGroup
	statuses := make([]int, 2)
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := do(t, env.server, http.MethodPost, base, jsonBody(t, map[string]any{
				"amountPaid": 600, "method": "transfer", "idempotencyKey": fmt.Sprintf("k-race-%d", i),
			}), env.token)
			r.Body.Close()
			statuses[i] = r.StatusCode
		}(i)
	}
	wg.Wait()
	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusBadRequest}, statuses)

	resp = do(t, env.server, http.MethodGet, base+"/totales", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var totales struct {
		Totales engine.PaymentTotals    `json:"totales"`
		Estado  engine.SettlementStatus `json:"estado"`
	}
	decodeJSON(t, resp, &totales)
	assert.Equal(t, engine.StatusPaid, totales.Estado)
	assert.True(t, totales.Totales.TotalPaid.Equal(decimal.NewFromInt(1000)))
	assert.True(t, totales.Totales.IsFullyPaid)

	// 4. Reversal undoes the latest payment
	resp = do(t, env.server, http.MethodPost, base+"/revertir", jsonBody(t, map[string]any{
		"reason": "error de caja",
	}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rev pagoBody
	decodeJSON(t, resp, &rev)
	assert.Equal(t, engine.StatusPartial, rev.Estado)
	assert.True(t, rev.Totales.RemainingAmount.Equal(decimal.NewFromInt(600)))

	// 5. History keeps the reversed row
	resp = do(t, env.server, http.MethodGet, base, nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hist struct {
		Pagos []model.TicketPayment `json:"pagos"`
	}
	decodeJSON(t, resp, &hist)
	require.Len(t, hist.Pagos, 2)
	assert.False(t, hist.Pagos[0].IsReversed)
	assert.True(t, hist.Pagos[1].IsReversed)

	// 6. The worker pool writes one audit row per applied change
	require.Eventually(t, func() bool {
		evs, err := env.eventos.ListByTicket(context.Background(), ticket.ID)
		return err == nil && len(evs) == 3
	}, 15*time.Second, 200*time.Millisecond)
}

func TestIntegration_ReversedKeyCanBeReused(t *testing.T) {
	env := setupTestEnv(t)
	ticket := seedWinner(t, env, 500)
	base := fmt.Sprintf("/v1/tickets/%s/pagos", ticket.ID)

	body := map[string]any{"amountPaid": 500, "method": "cash", "idempotencyKey": "k-same"}

	resp := do(t, env.server, http.MethodPost, base, jsonBody(t, body), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, http.MethodPost, base+"/revertir", jsonBody(t, map[string]any{}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The partial unique index only covers active rows.
	resp = do(t, env.server, http.MethodPost, base, jsonBody(t, body), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var again pagoBody
	decodeJSON(t, resp, &again)
	assert.False(t, again.Replayed)
	assert.Equal(t, engine.StatusPaid, again.Estado)
}
