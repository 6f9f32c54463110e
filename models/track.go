package models

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
)

const (
	// TrackIDLength 是曲目 ID 的字节长度（SHA256 哈希的前 16 字节）
	TrackIDLength = 16
)

// Track 描述音乐库中的一个音频文件及其标签摘要。
type Track struct {
	// ID 是曲目的唯一标识符，通过文件路径的 SHA256 哈希生成。
	ID string `json:"id"`
	// Title 优先取自标签，缺失时使用去掉扩展名的文件名。
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	// TagFormat 是文件中识别到的标签格式（如 ID3v2.3），没有标签时为空。
	TagFormat string `json:"tag_format"`
	// FilePath 是文件的绝对路径。
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
	// FileSize 是文件大小（字节）。
	FileSize   int64     `json:"file_size"`
	ModifiedAt time.Time `json:"modified_at"`
	// Format 是文件扩展名（如 .mp3）。
	Format string `json:"format"`
}

// NewTrack 根据文件路径和大小创建一个 Track，并尽量从标签中读取摘要信息。
func NewTrack(filePath string, fileSize int64) *Track {
	fileName := filepath.Base(filePath)
	ext := filepath.Ext(fileName)

	track := &Track{
		ID:         generateID(filePath),
		Title:      strings.TrimSuffix(fileName, ext),
		Artist:     "Unknown",
		Album:      "Unknown",
		FilePath:   filePath,
		FileName:   fileName,
		FileSize:   fileSize,
		ModifiedAt: time.Now(),
		Format:     strings.ToLower(ext),
	}
	if info, err := os.Stat(filePath); err == nil {
		track.ModifiedAt = info.ModTime()
	}

	file, err := os.Open(filePath)
	if err != nil {
		return track
	}
	metadata, metaErr := tag.ReadFrom(file)
	file.Close() // 立即关闭文件，避免扫描时积累文件句柄
	if metaErr != nil {
		return track
	}

	track.TagFormat = string(metadata.Format())
	if metadata.Title() != "" {
		track.Title = metadata.Title()
	}
	if metadata.Artist() != "" {
		track.Artist = metadata.Artist()
	}
	if metadata.Album() != "" {
		track.Album = metadata.Album()
	}
	return track
}

// generateID 使用文件路径的 SHA256 哈希值的前 16 字节生成曲目 ID。
func generateID(filePath string) string {
	hash := sha256.Sum256([]byte(filePath))
	return hex.EncodeToString(hash[:TrackIDLength])
}

// ValidIDPattern 返回用于验证曲目 ID 格式的正则表达式字符串
// ID 应为 32 个十六进制字符（16 字节的十六进制编码）
func ValidIDPattern() string {
	return `^[a-f0-9]{32}$`
}
