package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes 在 /api 路由组下注册曲目、标签帧和任务相关的路由。
func RegisterRoutes(router gin.IRouter, tracks *TrackHandler, frames *FrameHandler, jobs *JobHandler) {
	api := router.Group("/api")
	{
		// 音乐库相关路由
		api.GET("/tracks", tracks.ListTracks)
		api.POST("/tracks/refresh", tracks.RefreshTracks)
		api.GET("/tracks/:id", tracks.GetTrack)

		// 标签帧相关路由
		api.GET("/tracks/:id/frames", frames.GetFrames)
		api.PUT("/tracks/:id/frames/:index", frames.ReplaceFrame)

		// 异步任务
		api.GET("/jobs/:job_id", jobs.GetJob)
	}
}
