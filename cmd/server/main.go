// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aira-go/internal/config"
	"aira-go/internal/handler"
	"aira-go/internal/middleware"
	"aira-go/internal/model"
	"aira-go/internal/repository"
	"aira-go/internal/service"
	"aira-go/pkg/ai"
	"aira-go/pkg/database"
	"aira-go/pkg/events"
	"aira-go/pkg/log"
	"aira-go/pkg/sentiment"
	"aira-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("logger initialized")

	// 3. 初始化数据库、Redis 和 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	if err := database.DB.AutoMigrate(&model.User{}, &model.Chat{}); err != nil {
		log.Fatalf("failed to migrate database schema: %v", err)
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	events.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	userRepository := repository.NewUserRepository(database.DB)
	chatRepository := repository.NewChatRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TokenExpireDays)
	aiClient := ai.NewClient(cfg.AI)
	classifier := sentiment.New()
	userService := service.NewUserService(userRepository, jwtManager)
	chatService := service.NewChatService(chatRepository, userRepository, aiClient, classifier)

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 7. 注册路由
	authHandler := handler.NewAuthHandler(userService)
	chatHandler := handler.NewChatHandler(chatService)
	debugHandler := handler.NewDebugHandler(aiClient)

	// 健康检查与诊断接口不鉴权
	r.GET("/", debugHandler.Health)
	r.GET("/debug/ai", debugHandler.Probe)
	r.GET("/debug/gemini", debugHandler.Probe) // 早期客户端使用的旧路径，保留兼容

	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)

		authed := auth.Group("/")
		authed.Use(middleware.AuthMiddleware(jwtManager))
		{
			authed.POST("/logout", authHandler.Logout)
		}
	}

	chat := r.Group("/chat")
	chat.Use(middleware.AuthMiddleware(jwtManager))
	{
		chat.POST("", chatHandler.Send)
		chat.POST("/create", chatHandler.Create)
		chat.GET("/:userId", chatHandler.History)
		chat.PUT("/update/:chatId", chatHandler.Update)
		chat.DELETE("/delete/:chatId", chatHandler.Delete)
		chat.DELETE("/clear/:userId", chatHandler.Clear)
	}

	// 8. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to serve HTTP: %s", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received, stopping server...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("failed to shut down HTTP server: %v", err)
	}

	events.Close()
	log.Info("server stopped gracefully")
}
