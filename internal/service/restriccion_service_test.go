package service

import (
	"context"
	"testing"
	"time"

	"bancas/internal/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestriccion_CrearYResolver(t *testing.T) {
	repo := &memRestriccionRepo{}
	svc := NewRestriccionService(repo, 5, time.UTC)
	ctx := context.Background()
	banca := uuid.New()

	rule, err := svc.Crear(ctx, dto.RestriccionRequest{BancaID: strPtr(banca.String()), SalesCutoffMinutes: intPtr(15)})
	require.NoError(t, err)
	assert.True(t, rule.IsActive, "isActive defaults to true")

	minutes, err := svc.ResolverCutoff(ctx, uuid.New(), uuid.New(), banca)
	require.NoError(t, err)
	assert.Equal(t, 15, minutes)

	minutes, err = svc.ResolverCutoff(ctx, uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 5, minutes)
}

func TestRestriccion_ScopeRequerido(t *testing.T) {
	svc := NewRestriccionService(&memRestriccionRepo{}, 5, time.UTC)
	_, err := svc.Crear(context.Background(), dto.RestriccionRequest{SalesCutoffMinutes: intPtr(10)})
	assert.ErrorIs(t, err, ErrScopeRequerido)
}

func TestRestriccion_ReemplazarEsTotal(t *testing.T) {
	repo := &memRestriccionRepo{}
	svc := NewRestriccionService(repo, 5, time.UTC)
	ctx := context.Background()
	user := uuid.New().String()

	rule, err := svc.Crear(ctx, dto.RestriccionRequest{UserID: &user, SalesCutoffMinutes: intPtr(20), Priority: 1})
	require.NoError(t, err)

	ventana := uuid.New().String()
	updated, err := svc.Reemplazar(ctx, rule.ID, dto.RestriccionRequest{VentanaID: &ventana, IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.Nil(t, updated.UserID)
	assert.Nil(t, updated.SalesCutoffMinutes)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 0, updated.Priority)

	_, err = svc.Reemplazar(ctx, uuid.New(), dto.RestriccionRequest{VentanaID: &ventana})
	assert.ErrorIs(t, err, ErrRestriccionNoEncontrada)
}

func TestRestriccion_VentanaVenta(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	svc := NewRestriccionService(&memRestriccionRepo{}, 5, loc).(*restriccionService)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 18, 57, 0, 0, loc) }
	ctx := context.Background()
	actor := Actor{UserID: uuid.New()}

	d, err := svc.VentanaVenta(ctx, actor, dto.VentanaVentaRequest{Fecha: "2025-03-10", Hora: "19:00"})
	require.NoError(t, err)
	assert.False(t, d.CanCreate)

	d, err = svc.VentanaVenta(ctx, actor, dto.VentanaVentaRequest{Fecha: "2025-03-10", Hora: "19:00", Minutes: intPtr(2)})
	require.NoError(t, err)
	assert.True(t, d.CanCreate)

	_, err = svc.VentanaVenta(ctx, actor, dto.VentanaVentaRequest{Fecha: "10/03/2025", Hora: "19:00"})
	assert.Error(t, err)
}
