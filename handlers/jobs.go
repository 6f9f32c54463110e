package handlers

import (
	"net/http"
	"zero-tags/services"

	"github.com/gin-gonic/gin"
)

// JobHandler 负责查询异步任务的结果。
type JobHandler struct {
	jobs *services.JobStore
}

// NewJobHandler 创建一个新的 JobHandler 实例。
func NewJobHandler(jobs *services.JobStore) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GetJob 返回任务的当前状态，已完成的任务带有结果或错误信息。
// @Summary 查询异步任务
// @Tags jobs
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} services.Job "任务状态"
// @Failure 404 {object} APIError "任务不存在或已过期"
// @Router /api/jobs/{id} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	job, ok := h.jobs.Get(c.Param("job_id"))
	if !ok {
		c.JSON(http.StatusNotFound, NewNotFoundError("任务"))
		return
	}
	c.JSON(http.StatusOK, job)
}
