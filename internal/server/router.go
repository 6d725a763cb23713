package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mercyogalo/bookStore/internal/auth"
	"github.com/mercyogalo/bookStore/internal/config"
	"github.com/mercyogalo/bookStore/internal/metrics"
	"github.com/mercyogalo/bookStore/internal/models"
	"github.com/mercyogalo/bookStore/internal/mw"
	"github.com/mercyogalo/bookStore/internal/service"
	"github.com/mercyogalo/bookStore/internal/ws"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
// Registry 由进程顶层构造并注入，停服时由调用方 Clear。
func SetupRouter(cfg config.Config, db *gorm.DB, registry *ws.Registry) *gin.Engine {
	reviewSvc := service.NewReviewService(db, cfg.ReviewMaxLen)
	userSvc := service.NewUserService(db, cfg)
	bookSvc := service.NewBookService(db, registry)
	likeSvc := service.NewLikeService(db)
	favSvc := service.NewFavoriteService(db)
	broker := ws.NewBroker(registry, reviewSvc)
	h := NewHandler(userSvc, bookSvc, reviewSvc, likeSvc, favSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.RefreshToken)

	// 评论快照接口不要求登录，书页首屏直接读。
	api.GET("/reviews/:bookId", h.ListReviews)

	// 需要 Bearer Token 的业务接口。
	authed := api.Group("")
	authed.Use(auth.AuthMiddleware(cfg, db))

	authed.POST("/reviews/:bookId", h.CreateReview)
	authed.DELETE("/reviews/:reviewId", h.DeleteReview)

	authed.GET("/book", h.ListBooks)
	authed.GET("/book/:id", h.GetBook)
	authed.POST("/book/:id/like", h.ToggleLike)
	authed.GET("/book/:id/likes", h.GetLikes)

	authorOnly := authed.Group("")
	authorOnly.Use(auth.RequireRole(models.RoleAuthor))
	authorOnly.POST("/book", h.CreateBook)
	authorOnly.PUT("/book/:id", h.UpdateBook)
	authorOnly.DELETE("/book/:id", h.DeleteBook)

	authed.POST("/favorites/:bookId", h.AddFavorite)
	authed.GET("/favorites", h.ListFavorites)
	authed.DELETE("/favorites/:bookId", h.RemoveFavorite)

	r.GET("/ws", ws.Serve(broker, db, cfg))

	return r
}
