package routev1

import (
	"facemark.io/application/controller"
	"github.com/gin-gonic/gin"
)

func AttendanceRouter(router *gin.RouterGroup) {
	sessionRouter := router.Group("/session")
	{
		sessionRouter.POST("/start", controller.StartAttendanceSession)
		sessionRouter.POST("/stop", controller.StopAttendanceSession)
		sessionRouter.GET("/last", controller.GetLastTransition)
	}

	syncRouter := router.Group("/sync")
	{
		syncRouter.POST("/flush", controller.FlushSyncQueue)
	}
}
