package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/service"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// currentActor reads the identity set by the JWT middleware.
func currentActor(c echo.Context) (service.Actor, error) {
	id, okID := c.Get("user_id").(bson.ObjectID)
	role, okRole := c.Get("role").(model.Role)
	if !okID || !okRole {
		return service.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return service.Actor{ID: id, Role: role}, nil
}

// optionalActor is currentActor for routes that also serve anonymous
// callers.
func optionalActor(c echo.Context) *service.Actor {
	a, err := currentActor(c)
	if err != nil {
		return nil
	}
	return &a
}

// pathID parses the ObjectID in path parameter name.
func pathID(c echo.Context, name string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return bson.NilObjectID, &service.ValidationError{Field: name, Message: "invalid id"}
	}
	return id, nil
}

func parseObjectID(field, raw string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return bson.NilObjectID, &service.ValidationError{Field: field, Message: "invalid id"}
	}
	return id, nil
}

func queryInt64(c echo.Context, name string) int64 {
	n, _ := strconv.ParseInt(c.QueryParam(name), 10, 64)
	return n
}
