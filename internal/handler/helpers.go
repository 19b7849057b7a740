package handler

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"bancas/internal/apierror"
	"bancas/internal/engine"
	"bancas/internal/infra"
	"bancas/internal/middleware"
	"bancas/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// Report fields by their wire name.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			if name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]; name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindOptionalAndValidate is bindAndValidate for bodies that may be absent.
// An empty body leaves req at its zero value whatever Content-Length says;
// chunked requests report -1 even when nothing follows.
func bindOptionalAndValidate(c *gin.Context, req interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindQueryAndValidate is bindAndValidate for query strings.
func bindQueryAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fieldPath(fe.Namespace())] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom maps the verified token onto the service's caller identity.
func actorFrom(c *gin.Context) service.Actor {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return service.Actor{}
	}
	userID, ventanaID, bancaID := claims.IDs()
	return service.Actor{UserID: userID, VentanaID: ventanaID, BancaID: bancaID, Rol: claims.Rol}
}

// writeError translates service and engine errors to HTTP. Anything it does
// not recognize is handed to middleware.ErrorHandler as a 500.
func writeError(c *gin.Context, err error) {
	var (
		pagoErr     *engine.PaymentRejectedError
		reversalErr *engine.ReversalRejectedError
		validErr    *service.ValidacionError
		cerradas    *service.VentasCerradasError
	)
	switch {
	case errors.As(err, &pagoErr):
		status := http.StatusConflict
		if pagoErr.Code == engine.CodeMontoInvalido || pagoErr.Code == engine.CodeMontoExcedeSaldo {
			status = http.StatusBadRequest
		}
		c.JSON(status, apierror.NewRejection(string(pagoErr.Code), pagoErr.Message))
	case errors.As(err, &reversalErr):
		c.JSON(http.StatusConflict, apierror.NewRejection(string(reversalErr.Code), reversalErr.Message))
	case errors.As(err, &validErr):
		c.JSON(http.StatusUnprocessableEntity, apierror.FromResult(validErr.Result))
	case errors.As(err, &cerradas):
		c.JSON(http.StatusConflict, apierror.NewRejection("VENTAS_CERRADAS", cerradas.Message))
	case errors.Is(err, service.ErrTicketNoEncontrado),
		errors.Is(err, service.ErrSorteoNoEncontrado),
		errors.Is(err, service.ErrRestriccionNoEncontrada):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrSorteoNoAbierto),
		errors.Is(err, service.ErrTransicionInvalida),
		errors.Is(err, service.ErrSorteoInmutable),
		errors.Is(err, service.ErrEvaluacionSinResultados),
		errors.Is(err, service.ErrPagoConcurrente):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrScopeRequerido),
		errors.Is(err, service.ErrActorInvalido):
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	case errors.Is(err, infra.ErrLockTimeout):
		c.JSON(http.StatusServiceUnavailable, apierror.New("Ticket ocupado, intente nuevamente"))
	default:
		_ = c.Error(err)
	}
}
