package router

import (
	"github.com/labstack/echo/v4"

	"sitechat/internal/adapter/api/handler"
)

func SetupFileRouter(sites *echo.Group) {
	fileHandler := handler.GetFileHandler()

	sites.POST("/uploads", fileHandler.UploadFiles)
}
