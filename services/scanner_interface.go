package services

import (
	"context"
	"zero-tags/models"
)

// Library 定义了音乐库的接口。
// 处理器通过它把曲目 ID 解析为音乐目录中的文件路径。
type Library interface {
	// Scan 扫描音乐目录并返回曲目列表。
	// 为了提高性能，实现应该缓存扫描结果。
	Scan(ctx context.Context) ([]*models.Track, error)

	// Refresh 强制执行一次新的扫描，并刷新曲目列表缓存。
	Refresh(ctx context.Context) error

	// Reload 在标签被修改后重新读取单个曲目的摘要。
	Reload(id string) *models.Track

	// GetTracks 返回当前缓存的曲目列表。
	GetTracks() []*models.Track

	// GetTrackCount 返回当前缓存的曲目数量。
	GetTrackCount() int

	// GetTrackByID 根据 ID 查找并返回指定的曲目。
	// 如果未找到曲目，则返回 nil。
	GetTrackByID(id string) *models.Track
}

var _ Library = (*MusicScanner)(nil)
