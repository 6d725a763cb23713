package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mercyogalo/bookStore/internal/auth"
	"github.com/mercyogalo/bookStore/internal/service"
	"github.com/rs/zerolog/log"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	userSvc   *service.UserService
	bookSvc   *service.BookService
	reviewSvc *service.ReviewService
	likeSvc   *service.LikeService
	favSvc    *service.FavoriteService
}

func NewHandler(userSvc *service.UserService, bookSvc *service.BookService, reviewSvc *service.ReviewService, likeSvc *service.LikeService, favSvc *service.FavoriteService) *Handler {
	return &Handler{userSvc: userSvc, bookSvc: bookSvc, reviewSvc: reviewSvc, likeSvc: likeSvc, favSvc: favSvc}
}

// Register 处理用户注册请求。
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}
	if len(req.Name) < 2 || len(req.Name) > 64 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid name"})
		return
	}
	if len(req.Password) < 4 || len(req.Password) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid password"})
		return
	}
	result, err := h.userSvc.Register(req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"message": "email taken"})
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		default:
			log.Error().Err(err).Str("email", req.Email).Msg("register")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to create user"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// Login 处理用户登录请求。
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}
	result, err := h.userSvc.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("login")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"user": gin.H{
			"id":    result.User.ID,
			"name":  result.User.Name,
			"email": result.User.Email,
			"role":  result.User.Role,
		},
	})
}

// RefreshToken 处理 token 刷新请求。
func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}
	result, err := h.userSvc.RefreshTokens(req.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("refresh token")
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": result.AccessToken, "refresh_token": result.RefreshToken})
}

// CreateBook 处理录入新书请求，仅 author 角色可用。
func (h *Handler) CreateBook(c *gin.Context) {
	var req service.BookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}
	book, err := h.bookSvc.Create(req, auth.GetUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		log.Error().Err(err).Str("user_id", auth.GetUserID(c)).Msg("create book")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to create book"})
		return
	}
	c.JSON(http.StatusCreated, book)
}

// ListBooks 处理书籍列表请求。
func (h *Handler) ListBooks(c *gin.Context) {
	books, err := h.bookSvc.List(100)
	if err != nil {
		log.Error().Err(err).Msg("list books")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list books"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

// GetBook 处理单本书请求。
func (h *Handler) GetBook(c *gin.Context) {
	book, err := h.bookSvc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "book not found"})
			return
		}
		log.Error().Err(err).Str("book_id", c.Param("id")).Msg("get book")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to get book"})
		return
	}
	c.JSON(http.StatusOK, book)
}

// UpdateBook 处理更新书籍请求，仅创建者本人可用。
func (h *Handler) UpdateBook(c *gin.Context) {
	var req service.BookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}
	book, err := h.bookSvc.Update(c.Param("id"), req, auth.GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "book not found"})
		case errors.Is(err, service.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"message": "you can only update your own book"})
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		default:
			log.Error().Err(err).Str("book_id", c.Param("id")).Msg("update book")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to update book"})
		}
		return
	}
	c.JSON(http.StatusOK, book)
}

// DeleteBook 处理删除书籍请求，仅创建者本人可用。
func (h *Handler) DeleteBook(c *gin.Context) {
	err := h.bookSvc.Delete(c.Param("id"), auth.GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "book not found"})
		case errors.Is(err, service.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"message": "you can only delete your own book"})
		default:
			log.Error().Err(err).Str("book_id", c.Param("id")).Msg("delete book")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to delete book"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "book deleted successfully"})
}

// ToggleLike 处理点赞/取消点赞请求。
func (h *Handler) ToggleLike(c *gin.Context) {
	result, err := h.likeSvc.Toggle(c.Param("id"), auth.GetUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "book not found"})
			return
		}
		log.Error().Err(err).Str("book_id", c.Param("id")).Msg("toggle like")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to toggle like"})
		return
	}
	msg := "Unliked"
	if result.Liked {
		msg = "Liked"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "liked": result.Liked})
}

// GetLikes 处理点赞数查询请求。
func (h *Handler) GetLikes(c *gin.Context) {
	counts, err := h.likeSvc.Counts(c.Param("id"), auth.GetUserID(c))
	if err != nil {
		log.Error().Err(err).Str("book_id", c.Param("id")).Msg("get likes")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to get likes"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

// AddFavorite 处理收藏请求。
func (h *Handler) AddFavorite(c *gin.Context) {
	err := h.favSvc.Add(c.Param("bookId"), auth.GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyFavorite):
			c.JSON(http.StatusBadRequest, gin.H{"message": "book already in favorites"})
		case errors.Is(err, service.ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "book not found"})
		default:
			log.Error().Err(err).Str("book_id", c.Param("bookId")).Msg("add favorite")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to add favorite"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "successfully favorited this book"})
}

// ListFavorites 返回当前用户的收藏列表。
func (h *Handler) ListFavorites(c *gin.Context) {
	favs, err := h.favSvc.List(auth.GetUserID(c))
	if err != nil {
		log.Error().Err(err).Msg("list favorites")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list favorites"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": favs})
}

// RemoveFavorite 处理取消收藏请求。
func (h *Handler) RemoveFavorite(c *gin.Context) {
	if err := h.favSvc.Remove(c.Param("bookId"), auth.GetUserID(c)); err != nil {
		log.Error().Err(err).Str("book_id", c.Param("bookId")).Msg("remove favorite")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to remove favorite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "book removed from favorites successfully"})
}

// ListReviews 返回一本书的全部评论快照，线程化、时间倒序。
// 不要求登录，书页首屏不依赖事件流连接。
func (h *Handler) ListReviews(c *gin.Context) {
	reviews, err := h.reviewSvc.ListByBook(c.Param("bookId"))
	if err != nil {
		log.Error().Err(err).Str("book_id", c.Param("bookId")).Msg("list reviews")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list reviews"})
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// CreateReview 同步创建评论，与 ws 的 newReview 意图写同一个存储。
// 作者身份取自登录态，不信任 payload。
func (h *Handler) CreateReview(c *gin.Context) {
	var req struct {
		Content  string  `json:"content"`
		Rating   int     `json:"rating"`
		ParentID *string `json:"parentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}
	user, ok := auth.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
		return
	}
	review, err := h.reviewSvc.Create(c.Param("bookId"), service.ReviewInput{
		UserID:   user.ID,
		UserName: user.Name,
		Content:  req.Content,
		Rating:   req.Rating,
		ParentID: req.ParentID,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		log.Error().Err(err).Str("book_id", c.Param("bookId")).Msg("create review")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to save review"})
		return
	}
	c.JSON(http.StatusCreated, service.NewReviewDTO(*review))
}

// DeleteReview 同步删除评论，授权语义与 ws 的 deleteReview 意图一致。
func (h *Handler) DeleteReview(c *gin.Context) {
	reviewID := c.Param("reviewId")
	if _, err := h.reviewSvc.Delete(reviewID, auth.GetUserID(c)); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "review not found"})
		case errors.Is(err, service.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"message": "you can only delete your own review"})
		default:
			log.Error().Err(err).Str("review_id", reviewID).Msg("delete review")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to delete review"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "review deleted successfully", "reviewId": reviewID})
}
