package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"zero-tags/logger"
	"zero-tags/middleware"
	"zero-tags/models"
	"zero-tags/services"
	"zero-tags/tagcodec"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	jobKindReadTags     = "read_tags"
	jobKindReplaceFrame = "replace_frame"
)

// FrameHandler 负责读取和修改曲目的标签帧。
type FrameHandler struct {
	library      services.Library
	tags         *services.TagService
	jobs         *services.JobStore
	musicDir     string
	writeVersion tagcodec.Version
}

// NewFrameHandler 创建一个新的 FrameHandler 实例。
// writeVersion 是请求没有指定版本时写回使用的版本。
func NewFrameHandler(library services.Library, tags *services.TagService, jobs *services.JobStore, musicDir string, writeVersion tagcodec.Version) *FrameHandler {
	return &FrameHandler{
		library:      library,
		tags:         tags,
		jobs:         jobs,
		musicDir:     musicDir,
		writeVersion: writeVersion,
	}
}

// replaceFrameRequest 是替换帧请求的 JSON 结构。
type replaceFrameRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Payload    string `json:"payload"`
	// Kind 为 auto、text 或 binary，缺省为 auto。
	Kind string `json:"kind"`
	// Version 缺省使用配置中的写入版本。
	Version versionParam `json:"version"`
}

// versionParam 是请求中的写入版本，接受数字 3、4，
// 也接受 "2.4"、"v2.3"、"ID3v2.4" 这样的字符串。0 和 null 表示未指定。
type versionParam tagcodec.Version

func (v *versionParam) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" || s == "0" {
		*v = 0
		return nil
	}
	parsed, err := tagcodec.ParseVersion(s)
	if err != nil {
		return fmt.Errorf("不支持写入版本 %s，只能是 3 或 4", s)
	}
	*v = versionParam(parsed)
	return nil
}

// GetFrames 处理读取曲目全部标签帧的请求。
// @Summary 读取标签帧
// @Description 按文件中的顺序返回所有帧，async=true 时返回任务 ID
// @Tags frames
// @Produce json
// @Param id path string true "曲目ID"
// @Param async query bool false "是否异步执行"
// @Success 200 {object} map[string]interface{} "帧记录列表"
// @Success 202 {object} services.Job "已提交的任务"
// @Failure 404 {object} APIError "曲目或文件未找到"
// @Failure 422 {object} APIError "标签格式错误"
// @Router /api/tracks/{id}/frames [get]
func (h *FrameHandler) GetFrames(c *gin.Context) {
	track, ok := h.resolve(c)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(c)

	if isAsync(c) {
		job := h.jobs.Create(jobKindReadTags, track.FilePath)
		err := h.tags.ReadTagsAsync(track.FilePath, func(records []models.FrameRecord, err error) {
			h.jobs.Complete(job.ID, records, err)
		})
		h.accepted(c, job, err)
		return
	}

	records, err := h.tags.ReadTags(c.Request.Context(), track.FilePath)
	if err != nil {
		logger.WithRequestID(requestID).Warnf("读取标签失败 %s: %v", track.FilePath, err)
		c.JSON(errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"track_id": track.ID,
		"total":    len(records),
		"frames":   records,
	})
}

// ReplaceFrame 处理替换或追加一个标签帧的请求。
// 下标在 (0, 帧数) 之间时替换该位置的帧，否则追加到末尾。
// @Summary 替换标签帧
// @Tags frames
// @Accept json
// @Produce json
// @Param id path string true "曲目ID"
// @Param index path int true "帧下标"
// @Param async query bool false "是否异步执行"
// @Success 200 {object} map[string]interface{} "修改后的曲目信息"
// @Success 202 {object} services.Job "已提交的任务"
// @Failure 400 {object} APIError "请求参数错误"
// @Failure 404 {object} APIError "曲目或文件未找到"
// @Failure 422 {object} APIError "标签格式错误"
// @Router /api/tracks/{id}/frames/{index} [put]
func (h *FrameHandler) ReplaceFrame(c *gin.Context) {
	requestID := middleware.GetRequestID(c)

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewBadRequestError("无效的帧下标"))
		return
	}

	var body replaceFrameRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, NewBadRequestError(fmt.Sprintf("无效的请求体: %v", err)))
		return
	}

	kind, err := models.ParsePayloadKind(body.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewBadRequestError(err.Error()))
		return
	}

	version := h.writeVersion
	if body.Version != 0 {
		version = tagcodec.Version(body.Version)
	}
	if !tagcodec.ValidFrameID(body.Identifier) {
		c.JSON(http.StatusBadRequest, NewBadRequestError(fmt.Sprintf("无效的帧 ID: %q", body.Identifier)))
		return
	}

	track, ok := h.resolve(c)
	if !ok {
		return
	}

	req := models.MutationRequest{
		Index:      index,
		Identifier: body.Identifier,
		Payload:    body.Payload,
		Kind:       kind,
	}
	entry := logger.WithRequestID(requestID).WithFields(logrus.Fields{
		"track_id":   track.ID,
		"index":      index,
		"identifier": body.Identifier,
	})

	if isAsync(c) {
		job := h.jobs.Create(jobKindReplaceFrame, track.FilePath)
		trackID := track.ID
		err := h.tags.ReplaceFrameAsync(track.FilePath, req, version, func(err error) {
			if err != nil {
				h.jobs.Complete(job.ID, nil, err)
				return
			}
			h.jobs.Complete(job.ID, h.library.Reload(trackID), nil)
		})
		h.accepted(c, job, err)
		return
	}

	if err := h.tags.ReplaceFrame(c.Request.Context(), track.FilePath, req, version); err != nil {
		entry.Warnf("替换标签帧失败: %v", err)
		c.JSON(errorResponse(err))
		return
	}

	updated := h.library.Reload(track.ID)
	if updated == nil {
		updated = track
	}
	entry.Info("标签帧已替换")
	c.JSON(http.StatusOK, gin.H{
		"track":   updated,
		"index":   index,
		"version": version.String(),
	})
}

// resolve 查找曲目并确认文件位于音乐目录之内。
func (h *FrameHandler) resolve(c *gin.Context) (*models.Track, bool) {
	track, ok := lookupTrack(c, h.library)
	if !ok {
		return nil, false
	}
	if !withinDir(track.FilePath, h.musicDir) {
		logger.WithRequestID(middleware.GetRequestID(c)).Warnf("安全警告: 拒绝访问 - 路径 %s 不在音乐目录 %s 内", track.FilePath, h.musicDir)
		c.JSON(http.StatusForbidden, NewForbiddenError("拒绝访问"))
		return nil, false
	}
	return track, true
}

// accepted 返回已提交的任务，提交失败时把任务标记为失败。
func (h *FrameHandler) accepted(c *gin.Context, job services.Job, err error) {
	if err != nil {
		h.jobs.Complete(job.ID, nil, err)
		logger.WithRequestID(middleware.GetRequestID(c)).Errorf("提交后台任务失败: %v", err)
		c.JSON(errorResponse(err))
		return
	}
	c.Header("Location", "/api/jobs/"+job.ID)
	c.JSON(http.StatusAccepted, job)
}

func isAsync(c *gin.Context) bool {
	async, _ := strconv.ParseBool(c.Query("async"))
	return async
}
