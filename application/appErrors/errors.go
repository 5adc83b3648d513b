package apperrors

import (
	"net/http"

	"facemark.io/infrastructure/logger"
	server_response "facemark.io/infrastructure/serverResponse"
)

func NotFoundError(ctx interface{}, message string) {
	server_response.Responder.Respond(ctx, http.StatusNotFound, message, nil, nil)
}

func AuthenticationError(ctx interface{}, message string) {
	server_response.Responder.Respond(ctx, http.StatusUnauthorized, message, nil, nil)
}

func CustomError(ctx interface{}, msg string) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest, msg, nil, nil)
}

func UnknownError(ctx interface{}, err error) {
	logger.Error("unexpected error surfaced to the ops api", logger.LoggerOptions{
		Key:  "error",
		Data: err,
	})
	server_response.Responder.Respond(ctx, http.StatusInternalServerError,
		"something went wrong. check the kiosk logs.", nil, nil)
}
