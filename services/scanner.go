package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"zero-tags/models"
)

// MusicScanner 负责扫描音乐目录并缓存曲目列表，供标签接口按 ID 定位文件。
type MusicScanner struct {
	directory        string
	supportedFormats []string
	tracks           []*models.Track
	byID             map[string]*models.Track
	mu               sync.RWMutex
	lastScan         time.Time
	cacheTTL         time.Duration
}

// NewMusicScanner 创建并返回一个新的 MusicScanner 实例。
func NewMusicScanner(directory string, supportedFormats []string, cacheTTLMinutes int) *MusicScanner {
	if len(supportedFormats) == 0 {
		supportedFormats = []string{".mp3"}
	}
	if cacheTTLMinutes <= 0 {
		cacheTTLMinutes = 5
	}
	return &MusicScanner{
		directory:        directory,
		supportedFormats: supportedFormats,
		tracks:           make([]*models.Track, 0),
		byID:             make(map[string]*models.Track),
		cacheTTL:         time.Duration(cacheTTLMinutes) * time.Minute,
	}
}

// Scan 扫描音乐目录并返回曲目列表。
// 缓存有效时直接返回缓存的副本，否则重新扫描。
func (s *MusicScanner) Scan(ctx context.Context) ([]*models.Track, error) {
	s.mu.RLock()
	if s.cacheValid() {
		tracks := s.copyTracks()
		s.mu.RUnlock()
		return tracks, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// 获取写锁后再次检查，等待期间其他 goroutine 可能已刷新缓存。
	if s.cacheValid() {
		return s.copyTracks(), nil
	}
	if err := s.scanInternal(ctx); err != nil {
		return nil, err
	}
	return s.copyTracks(), nil
}

func (s *MusicScanner) cacheValid() bool {
	return time.Since(s.lastScan) < s.cacheTTL && len(s.tracks) > 0
}

// copyTracks 返回曲目列表的副本，调用前必须持有锁。
func (s *MusicScanner) copyTracks() []*models.Track {
	tracks := make([]*models.Track, len(s.tracks))
	copy(tracks, s.tracks)
	return tracks
}

// scanInternal 是实际的扫描逻辑。
// 调用此函数前必须获取写锁。
func (s *MusicScanner) scanInternal(ctx context.Context) error {
	// 确保音乐目录存在。
	if _, err := os.Stat(s.directory); os.IsNotExist(err) {
		return fmt.Errorf("音乐目录不存在: %s", s.directory)
	}

	tracks := make([]*models.Track, 0)
	err := filepath.Walk(s.directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if s.supported(path) {
			tracks = append(tracks, models.NewTrack(path, info.Size()))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("扫描目录时出错: %w", err)
	}

	s.tracks = tracks
	s.byID = make(map[string]*models.Track, len(tracks))
	for _, track := range tracks {
		s.byID[track.ID] = track
	}
	s.lastScan = time.Now()
	return nil
}

func (s *MusicScanner) supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range s.supportedFormats {
		if ext == strings.ToLower(supported) {
			return true
		}
	}
	return false
}

// Refresh 强制执行一次新的扫描，并刷新曲目列表缓存。
func (s *MusicScanner) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanInternal(ctx)
}

// Reload 重新读取单个曲目的摘要信息，用于标签被修改之后。
// 曲目不在缓存中时返回 nil。
func (s *MusicScanner) Reload(id string) *models.Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byID[id]
	if !ok {
		return nil
	}
	size := old.FileSize
	if info, err := os.Stat(old.FilePath); err == nil {
		size = info.Size()
	}
	track := models.NewTrack(old.FilePath, size)
	for i, t := range s.tracks {
		if t.ID == id {
			s.tracks[i] = track
			break
		}
	}
	s.byID[id] = track
	return track
}

// GetTracks 返回当前缓存的曲目列表的副本。
func (s *MusicScanner) GetTracks() []*models.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyTracks()
}

// GetTrackCount 返回当前缓存的曲目数量。
func (s *MusicScanner) GetTrackCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

// GetTrackByID 根据 ID 查找曲目，未找到时返回 nil。
func (s *MusicScanner) GetTrackByID(id string) *models.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}
