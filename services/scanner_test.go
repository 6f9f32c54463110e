package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	"zero-tags/models"
	"zero-tags/tagcodec"
)

// TestNewMusicScanner 测试 NewMusicScanner 是否能正确创建一个扫描器实例。
func TestNewMusicScanner(t *testing.T) {
	scanner := NewMusicScanner("/test/dir", []string{".mp3"}, 5)
	if scanner == nil {
		t.Fatal("期望扫描器被成功创建")
	}
	if scanner.directory != "/test/dir" {
		t.Errorf("期望目录为 /test/dir, 得到 %s", scanner.directory)
	}
	if scanner.cacheTTL != 5*time.Minute {
		t.Errorf("期望缓存 TTL 为 5m, 得到 %v", scanner.cacheTTL)
	}
}

// TestMusicScanner_Scan 测试 Scan 方法是否能正确扫描并识别音乐文件。
func TestMusicScanner_Scan(t *testing.T) {
	// 创建一个临时目录用于测试。
	tmpDir := t.TempDir()

	// 创建一些假的 MP3 文件。
	testFile1 := filepath.Join(tmpDir, "test1.mp3")
	testFile2 := filepath.Join(tmpDir, "test2.mp3")
	if err := os.WriteFile(testFile1, []byte("fake mp3 content"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(testFile2, []byte("another fake mp3"), 0644); err != nil {
		t.Fatal(err)
	}

	// 创建一个非 MP3 文件，这个文件应该被忽略。
	txtFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(txtFile, []byte("text"), 0644); err != nil {
		t.Fatal(err)
	}

	scanner := NewMusicScanner(tmpDir, []string{".mp3"}, 5)
	tracks, err := scanner.Scan(context.Background())

	if err != nil {
		t.Fatalf("扫描失败: %v", err)
	}

	if len(tracks) != 2 {
		t.Errorf("期望找到 2 首曲目, 得到 %d", len(tracks))
	}

	// 验证扫描到的曲目信息是否基本完整。
	for _, track := range tracks {
		if track.ID == "" {
			t.Error("曲目 ID 为空")
		}
		if track.FilePath == "" {
			t.Error("曲目 FilePath 为空")
		}
		if track.FileSize == 0 {
			t.Error("曲目 FileSize 为 0")
		}
	}
}

// TestMusicScanner_ScanCache 测试扫描器的缓存机制是否正常工作。
func TestMusicScanner_ScanCache(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.mp3")
	if err := os.WriteFile(testFile, []byte("fake mp3"), 0644); err != nil {
		t.Fatal(err)
	}

	scanner := NewMusicScanner(tmpDir, []string{".mp3"}, 5)

	// 第一次扫描，应该会执行实际的扫描操作。
	tracks1, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("第一次扫描失败: %v", err)
	}

	firstScanTime := scanner.lastScan

	// 立即进行第二次扫描，应该会命中缓存。
	tracks2, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("第二次扫描失败: %v", err)
	}

	// 验证 lastScan 时间戳没有改变，证明缓存被使用。
	if scanner.lastScan != firstScanTime {
		t.Error("缓存未生效，lastScan 时间已改变")
	}

	// 验证两次扫描返回的曲目数量相同。
	if len(tracks1) != len(tracks2) {
		t.Errorf("期望曲目数量相同, 得到 %d 和 %d", len(tracks1), len(tracks2))
	}
}

// TestMusicScanner_Refresh 测试 Refresh 方法是否能强制刷新缓存。
func TestMusicScanner_Refresh(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.mp3")
	if err := os.WriteFile(testFile, []byte("fake mp3"), 0644); err != nil {
		t.Fatal(err)
	}

	scanner := NewMusicScanner(tmpDir, []string{".mp3"}, 5)

	// 第一次扫描。
	_, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("第一次扫描失败: %v", err)
	}

	firstScanTime := scanner.lastScan

	// 等待一小段时间以确保时间戳会不同。
	time.Sleep(10 * time.Millisecond)

	// 手动刷新缓存。
	err = scanner.Refresh(context.Background())
	if err != nil {
		t.Fatalf("刷新失败: %v", err)
	}

	// 验证 lastScan 时间戳已被更新。
	if scanner.lastScan == firstScanTime {
		t.Error("Refresh 方法未能更新 lastScan 时间")
	}
}

// TestMusicScanner_ScanNonExistentDirectory 测试当扫描一个不存在的目录时是否返回错误。
func TestMusicScanner_ScanNonExistentDirectory(t *testing.T) {
	scanner := NewMusicScanner("/non/existent/directory", []string{".mp3"}, 5)

	_, err := scanner.Scan(context.Background())
	if err == nil {
		t.Error("期望在扫描不存在的目录时返回错误")
	}
}

// TestMusicScanner_GetTracks 测试 GetTracks 方法是否能正确返回曲目列表。
func TestMusicScanner_GetTracks(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.mp3")
	if err := os.WriteFile(testFile, []byte("fake mp3"), 0644); err != nil {
		t.Fatal(err)
	}

	scanner := NewMusicScanner(tmpDir, []string{".mp3"}, 5)

	// 在扫描前调用，应返回空列表。
	tracks := scanner.GetTracks()
	if len(tracks) != 0 {
		t.Errorf("期望在扫描前曲目数量为 0, 得到 %d", len(tracks))
	}

	// 在扫描后调用，应返回扫描到的曲目。
	scanner.Scan(context.Background())
	tracks = scanner.GetTracks()
	if len(tracks) != 1 {
		t.Errorf("期望在扫描后曲目数量为 1, 得到 %d", len(tracks))
	}
}

// TestMusicScanner_GetTrackCount 测试 GetTrackCount 方法是否能正确返回曲目数量。
func TestMusicScanner_GetTrackCount(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.mp3")
	if err := os.WriteFile(testFile, []byte("fake mp3"), 0644); err != nil {
		t.Fatal(err)
	}

	scanner := NewMusicScanner(tmpDir, []string{".mp3"}, 5)

	// 扫描前。
	count := scanner.GetTrackCount()
	if count != 0 {
		t.Errorf("期望在扫描前数量为 0, 得到 %d", count)
	}

	// 扫描后。
	scanner.Scan(context.Background())
	count = scanner.GetTrackCount()
	if count != 1 {
		t.Errorf("期望在扫描后数量为 1, 得到 %d", count)
	}
}

// TestMusicScanner_ConcurrentAccess 测试在并发访问下扫描器是否线程安全。
func TestMusicScanner_ConcurrentAccess(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.mp3")
	if err := os.WriteFile(testFile, []byte("fake mp3"), 0644); err != nil {
		t.Fatal(err)
	}

	scanner := NewMusicScanner(tmpDir, []string{".mp3"}, 5)

	// 使用 channel 来等待所有 goroutine 完成。
	done := make(chan bool, 3)

	// Goroutine 1: 持续调用 Scan。
	go func() {
		for i := 0; i < 10; i++ {
			scanner.Scan(context.Background())
			time.Sleep(1 * time.Millisecond)
		}
		done <- true
	}()

	// Goroutine 2: 持续调用 GetTracks。
	go func() {
		for i := 0; i < 10; i++ {
			scanner.GetTracks()
			time.Sleep(1 * time.Millisecond)
		}
		done <- true
	}()

	// Goroutine 3: 持续调用 GetTrackCount。
	go func() {
		for i := 0; i < 10; i++ {
			scanner.GetTrackCount()
			time.Sleep(1 * time.Millisecond)
		}
		done <- true
	}()

	// 等待所有测试 goroutine 执行完毕。
	for i := 0; i < 3; i++ {
		<-done
	}
}

// TestMusicScanner_GetTrackByID 测试按 ID 查找曲目。
func TestMusicScanner_GetTrackByID(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.mp3")
	if err := os.WriteFile(testFile, []byte("fake mp3"), 0644); err != nil {
		t.Fatal(err)
	}

	scanner := NewMusicScanner(tmpDir, []string{".mp3"}, 5)
	tracks, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("扫描失败: %v", err)
	}

	track := scanner.GetTrackByID(tracks[0].ID)
	if track == nil || track.FilePath != testFile {
		t.Errorf("期望找到 %s, 得到 %+v", testFile, track)
	}
	if scanner.GetTrackByID("0123456789abcdef0123456789abcdef") != nil {
		t.Error("不存在的 ID 应返回 nil")
	}
}

// TestMusicScanner_Reload 测试标签修改后重新读取曲目摘要。
func TestMusicScanner_Reload(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := writeTaggedFile(t, tmpDir, "reload.mp3", "Before")

	scanner := NewMusicScanner(tmpDir, []string{".mp3"}, 5)
	tracks, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("扫描失败: %v", err)
	}
	if tracks[0].Title != "Before" {
		t.Fatalf("期望标题 Before, 得到 %s", tracks[0].Title)
	}

	adapter := tagcodec.NewAdapter()
	tag := tagcodec.NewTag([]models.Frame{models.NewFrame("TIT2", models.TextContent{Text: "After"})})
	if err := adapter.Write(tag, testFile, tagcodec.Version23); err != nil {
		t.Fatalf("写入标签失败: %v", err)
	}

	track := scanner.Reload(tracks[0].ID)
	if track == nil || track.Title != "After" {
		t.Errorf("期望重新读取后的标题为 After, 得到 %+v", track)
	}
	if got := scanner.GetTrackByID(tracks[0].ID); got != track {
		t.Error("缓存中的曲目应被替换")
	}
	if scanner.Reload("missing") != nil {
		t.Error("不在缓存中的曲目应返回 nil")
	}
}

// TestMusicScanner_ScanCancelled 测试已取消的 context 会中止扫描。
func TestMusicScanner_ScanCancelled(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "a.mp3"), []byte("fake mp3"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scanner := NewMusicScanner(tmpDir, []string{".mp3"}, 5)
	if _, err := scanner.Scan(ctx); err == nil {
		t.Error("期望已取消的 context 导致扫描失败")
	}
}
