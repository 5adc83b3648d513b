package controller

import (
	"net/http"

	apperrors "facemark.io/application/appErrors"
	"facemark.io/application/services/kiosk"
	appsync "facemark.io/application/sync"
	"facemark.io/infrastructure/biometric"
	server_response "facemark.io/infrastructure/serverResponse"
	"github.com/gin-gonic/gin"
)

func GetHealth(ctx *gin.Context) {
	server_response.Responder.Respond(ctx, http.StatusOK, "kiosk healthy", map[string]any{
		"strategy":       biometric.Extractor.Strategy(),
		"sessionRunning": kiosk.Running(),
	}, nil)
}

func FlushSyncQueue(ctx *gin.Context) {
	delivered, err := appsync.DefaultGateway.FlushQueue()
	if err != nil {
		apperrors.UnknownError(ctx, err)
		return
	}
	server_response.Responder.Respond(ctx, http.StatusOK, "offline queue flushed", map[string]any{
		"delivered": delivered,
	}, nil)
}

func StartAttendanceSession(ctx *gin.Context) {
	if err := kiosk.StartSession(); err != nil {
		apperrors.CustomError(ctx, err.Error())
		return
	}
	server_response.Responder.Respond(ctx, http.StatusOK, "attendance session started", nil, nil)
}

func StopAttendanceSession(ctx *gin.Context) {
	if err := kiosk.StopSession(); err != nil {
		apperrors.CustomError(ctx, err.Error())
		return
	}
	server_response.Responder.Respond(ctx, http.StatusOK, "attendance session stopped", nil, nil)
}

func GetLastTransition(ctx *gin.Context) {
	transition := kiosk.LastTransition()
	if transition == nil {
		apperrors.NotFoundError(ctx, "no completed detection cycle yet")
		return
	}
	server_response.Responder.Respond(ctx, http.StatusOK, "last detection cycle", transition, nil)
}
