package httpapi

import "github.com/gin-gonic/gin"

// Register wires HTTP routes to handlers. authMW guards everything under /v1.
func Register(r gin.IRouter, h Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", h.Health)

	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		agentsGroup := v1.Group("/agents")
		agentsGroup.GET("", h.ListAgents)
		agentsGroup.POST("", h.CreateAgent)
		agentsGroup.GET("/:id", h.GetAgent)
		agentsGroup.PUT("/:id", h.UpdateAgent)
		agentsGroup.DELETE("/:id", h.DeleteAgent)
		agentsGroup.POST("/:id/calls", h.InitiateTestCall)
		agentsGroup.GET("/:id/executions", h.ListExecutions)

		an := v1.Group("/analytics")
		an.GET("/summary", h.AnalyticsSummary)
		an.GET("/timestamps", h.ExecutionTimestamps)
		an.GET("/calls-by-date", h.CallsByDate)

		v1.GET("/voices", h.ListVoices)
	}
}
