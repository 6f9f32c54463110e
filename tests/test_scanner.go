package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"zero-tags/services"
	"zero-tags/tagcodec"
)

func main() {
	fmt.Println("=== 测试音乐文件扫描和标签读取功能 ===")
	fmt.Println()

	// 指定要扫描的音乐目录，可以通过第一个参数覆盖。
	musicDir := "./music"
	if len(os.Args) > 1 {
		musicDir = os.Args[1]
	}

	fmt.Printf("扫描目录: %s\n", musicDir)
	fmt.Println()

	ctx := context.Background()
	scanner := services.NewMusicScanner(musicDir, []string{".mp3"}, 5)
	tags := services.NewTagService(tagcodec.NewAdapter(), nil)

	// 执行扫描操作。
	tracks, err := scanner.Scan(ctx)
	if err != nil {
		log.Fatalf("扫描失败: %v", err)
	}

	fmt.Println("扫描完成!")
	fmt.Printf("共找到 %d 个曲目\n", scanner.GetTrackCount())
	fmt.Println()

	if len(tracks) == 0 {
		fmt.Println("在指定目录中未找到 MP3 文件。")
		fmt.Printf("请确认音乐文件已放置在目录: %s\n", musicDir)
		return
	}

	for i, track := range tracks {
		fmt.Printf("%d. %s (%s)\n", i+1, track.Title, track.FileName)
		fmt.Printf("   大小: %.2f MB\n", float64(track.FileSize)/(1024*1024))

		frames, err := tags.Frames(ctx, track.FilePath)
		if err != nil {
			fmt.Printf("   读取标签失败: %v\n\n", err)
			continue
		}
		for j, record := range services.EncodeFrames(frames) {
			fmt.Printf("   [%d] %s %s\n", j, frames[j].Content.Kind(), record)
		}
		fmt.Println()
	}
}
