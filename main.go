package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"zero-tags/config"
	"zero-tags/handlers"
	"zero-tags/logger"
	"zero-tags/middleware"
	"zero-tags/services"
	"zero-tags/tagcodec"

	"github.com/gin-gonic/gin"
)

// shutdownTimeout 是优雅关闭时等待进行中请求的最长时间
const shutdownTimeout = 15 * time.Second

func main() {
	defaultPath := os.Getenv("ZERO_TAGS_CONFIG")
	if defaultPath == "" {
		defaultPath = "config.json"
	}
	configPath := flag.String("config", defaultPath, "配置文件路径（.json、.yaml、.yml 或 .toml）")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		// 没有配置文件时仍然应用 .env 和环境变量
		cfg, err = config.Load("")
	}
	if err != nil {
		logger.Warnf("加载配置文件失败，使用默认配置: %v", err)
		cfg = config.GetDefaultConfig()
	}

	// 初始化日志
	logFile, err := logger.Init(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		logger.Warnf("日志文件不可用: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	// 创建服务
	scanner := services.NewMusicScanner(
		cfg.Music.Directory,
		cfg.Music.SupportedFormats,
		cfg.Music.CacheTTLMinutes,
	)
	pool := services.NewWorkerPool(cfg.Tags.Workers, cfg.Tags.QueueSize)
	jobs := services.NewJobStore(cfg.Tags.JobTTLMinutes)
	tags := services.NewTagService(tagcodec.NewAdapter(tagcodec.WithPadding(cfg.Tags.Padding)), pool)

	// 创建 Gin 路由器
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.CORS(cfg.Server.CORSOrigins))

	// 健康检查端点
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Zero Tags Server is running",
		})
	})

	// 根路径
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "Zero Tags API",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /health - 健康检查",
				"GET /api/tracks - 获取所有曲目列表",
				"POST /api/tracks/refresh - 重新扫描音乐目录",
				"GET /api/tracks/:id - 获取指定曲目信息",
				"GET /api/tracks/:id/frames - 读取标签帧（?async=true 异步执行）",
				"PUT /api/tracks/:id/frames/:index - 替换或追加标签帧（?async=true 异步执行）",
				"GET /api/jobs/:id - 查询异步任务",
			},
		})
	})

	handlers.RegisterRoutes(router,
		handlers.NewTrackHandler(scanner),
		handlers.NewFrameHandler(scanner, tags, jobs, cfg.Music.Directory, tagcodec.Version(cfg.Tags.WriteVersion)),
		handlers.NewJobHandler(jobs),
	)

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("Zero Tags Server 启动中，服务地址: http://localhost:%d，音乐目录: %s", cfg.Server.Port, cfg.Music.Directory)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("收到退出信号，正在关闭服务器")
	case err := <-errChan:
		logger.Errorf("服务器启动失败: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("关闭服务器时出错: %v", err)
	}

	// 等待已提交的后台任务执行完毕
	pool.Close()
	logger.Info("服务器已关闭")
}
