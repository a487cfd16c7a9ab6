package http

import (
	"github.com/gin-gonic/gin"

	"docqa/internal/devserver"
	"docqa/internal/transport/http/handler"
	"docqa/internal/transport/http/middleware"
)

// NewRouter exposes the question-answering contract at the root path.
func NewRouter(app *devserver.App) *gin.Engine {
	if app.Config.GinMode != "" {
		gin.SetMode(app.Config.GinMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLog(app.Logger), gin.Recovery())
	router.MaxMultipartMemory = devserver.MaxUploadSize

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(app.Accounts)
	documentHandler := handler.NewDocumentHandler(app.Library)
	conversationHandler := handler.NewConversationHandler(app.Conversations)

	router.GET("/healthz", healthHandler.Check)
	router.POST("/token", authHandler.Login)
	router.POST("/register", authHandler.Register)

	authed := router.Group("/")
	authed.Use(middleware.AuthJWT(app.Accounts))
	authed.POST("/upload", documentHandler.Upload)
	authed.GET("/documents", documentHandler.List)
	authed.POST("/ask", conversationHandler.Ask)
	authed.GET("/conversations", conversationHandler.List)
	authed.GET("/conversations/:id", conversationHandler.Get)

	return router
}
