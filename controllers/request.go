package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/middleware"
	"go-storefront/services"
	"go-storefront/utils"
)

// RequestTimeout bounds the database work of a single request. It is set
// from configuration at startup.
var RequestTimeout = 10 * time.Second

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), RequestTimeout)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return utils.NewValidationError("Request body is required")
		}
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return utils.NewValidationError("Invalid input")
	}
	return nil
}

// pathID parses the named mux path variable as an ObjectID.
func pathID(r *http.Request, name, label string) (primitive.ObjectID, error) {
	id, err := utils.ParseObjectID(mux.Vars(r)[name])
	if err != nil {
		return primitive.NilObjectID, utils.NewValidationError("Invalid %s ID", label)
	}
	return id, nil
}

func callerFrom(r *http.Request) (services.Caller, error) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return services.Caller{}, utils.NewAuthError("Authentication required")
	}
	return services.CallerFromClaims(claims)
}

type messageResponse struct {
	Message string `json:"message"`
}
