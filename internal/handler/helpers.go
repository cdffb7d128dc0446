package handler

import (
	"errors"
	"net/http"
	"reflect"

	"fuelpump/internal/apierror"
	"fuelpump/internal/middleware"
	"fuelpump/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal is validated as a number so min=0 / gt=0 tags work.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds the JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// sessionFrom builds the caller's tenant session from the JWT claims.
func sessionFrom(c *gin.Context) (service.Session, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
		return service.Session{}, false
	}
	tenant, err1 := uuid.Parse(claims.FuelPumpID)
	staff, err2 := uuid.Parse(claims.UserID)
	if err1 != nil || err2 != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
		return service.Session{}, false
	}
	return service.Session{FuelPumpID: tenant, StaffID: staff, Role: claims.Role}, true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service errors to status codes. Storage details are
// logged and replaced with a generic message.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	var perr *service.PersistenceError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(verr.Fields))
	case errors.Is(err, service.ErrShiftNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrShiftNotActive), errors.Is(err, service.ErrActiveShiftExists):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, apierror.New(err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()))
	case errors.Is(err, service.ErrDraftIncomplete):
		c.JSON(http.StatusServiceUnavailable, apierror.New(err.Error()))
	case errors.As(err, &perr):
		log.Error().
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("op", perr.Op).
			Err(perr.Err).
			Msg("persistence failure")
		msg := "failed to save changes, please try again"
		if perr.Op == "finalize_shift" {
			msg = "failed to end shift, please try again"
		}
		c.JSON(http.StatusInternalServerError, apierror.New(msg))
	default:
		_ = c.Error(err)
	}
}
