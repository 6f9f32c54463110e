package handlers

import (
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"zero-tags/logger"
	"zero-tags/middleware"
	"zero-tags/models"
	"zero-tags/services"

	"github.com/gin-gonic/gin"
)

var (
	// validIDPattern 验证曲目 ID 是否为 32 个十六进制字符（SHA256 哈希的前 16 字节）
	validIDPattern = regexp.MustCompile(models.ValidIDPattern())
)

// TrackHandler 负责处理与音乐库曲目相关的 API 请求。
type TrackHandler struct {
	library services.Library
}

// NewTrackHandler 创建一个新的 TrackHandler 实例。
func NewTrackHandler(library services.Library) *TrackHandler {
	return &TrackHandler{
		library: library,
	}
}

// ListTracks 处理获取所有曲目列表的请求。
// @Summary 获取所有曲目
// @Description 返回音乐目录中所有可用的曲目及其标签摘要
// @Tags tracks
// @Produce json
// @Success 200 {object} map[string]interface{} "成功返回曲目列表"
// @Failure 500 {object} APIError "服务器错误"
// @Router /api/tracks [get]
func (h *TrackHandler) ListTracks(c *gin.Context) {
	requestID := middleware.GetRequestID(c)

	tracks, err := h.library.Scan(c.Request.Context())
	if err != nil {
		logger.WithRequestID(requestID).Errorf("扫描音乐文件失败: %v", err)
		c.JSON(http.StatusInternalServerError, NewInternalError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  len(tracks),
		"tracks": tracks,
	})
}

// RefreshTracks 处理强制重新扫描音乐目录的请求。
// @Summary 刷新曲目列表
// @Tags tracks
// @Produce json
// @Success 200 {object} map[string]interface{} "刷新后的曲目数量"
// @Failure 500 {object} APIError "服务器错误"
// @Router /api/tracks/refresh [post]
func (h *TrackHandler) RefreshTracks(c *gin.Context) {
	requestID := middleware.GetRequestID(c)

	if err := h.library.Refresh(c.Request.Context()); err != nil {
		logger.WithRequestID(requestID).Errorf("刷新音乐库失败: %v", err)
		c.JSON(http.StatusInternalServerError, NewInternalError(err))
		return
	}

	total := h.library.GetTrackCount()
	logger.WithRequestID(requestID).Infof("音乐库已刷新，共 %d 个曲目", total)
	c.JSON(http.StatusOK, gin.H{"total": total})
}

// GetTrack 处理根据 ID 获取特定曲目信息的请求。
// @Summary 获取指定曲目信息
// @Tags tracks
// @Produce json
// @Param id path string true "曲目ID"
// @Success 200 {object} models.Track "成功返回曲目信息"
// @Failure 400 {object} APIError "请求参数错误"
// @Failure 404 {object} APIError "曲目未找到"
// @Failure 500 {object} APIError "服务器错误"
// @Router /api/tracks/{id} [get]
func (h *TrackHandler) GetTrack(c *gin.Context) {
	track, ok := lookupTrack(c, h.library)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, track)
}

// lookupTrack 校验路径参数中的曲目 ID 并从音乐库中查找曲目。
// 查找失败时已经写好错误响应，调用方直接返回即可。
func lookupTrack(c *gin.Context, library services.Library) (*models.Track, bool) {
	id := c.Param("id")
	requestID := middleware.GetRequestID(c)

	// 验证 ID 格式，防止路径遍历。
	if !validIDPattern.MatchString(id) {
		logger.WithRequestID(requestID).Warnf("无效的曲目 ID 格式: %s", id)
		c.JSON(http.StatusBadRequest, NewBadRequestError("无效的曲目 ID 格式"))
		return nil, false
	}

	// 先执行扫描以确保缓存是最新的。
	if _, err := library.Scan(c.Request.Context()); err != nil {
		logger.WithRequestID(requestID).Errorf("扫描音乐文件失败: %v", err)
		c.JSON(http.StatusInternalServerError, NewInternalError(err))
		return nil, false
	}

	track := library.GetTrackByID(id)
	if track == nil {
		logger.WithRequestID(requestID).Warnf("曲目未找到: %s", id)
		c.JSON(http.StatusNotFound, NewNotFoundError("曲目"))
		return nil, false
	}
	return track, true
}

// withinDir 判断 path 是否位于 dir 之内。
func withinDir(path, dir string) bool {
	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	cleanDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(cleanDir, cleanPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
