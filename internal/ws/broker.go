package ws

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/mercyogalo/bookStore/internal/metrics"
	"github.com/mercyogalo/bookStore/internal/models"
	"github.com/mercyogalo/bookStore/internal/service"
	"github.com/rs/zerolog/log"
)

// 入站意图与出站事件的封闭集合。意图在 Dispatch 边界统一校验，
// 各 handler 不再信任任意形状的 payload。
const (
	IntentJoinBook     = "joinBook"
	IntentLeaveBook    = "leaveBook"
	IntentNewReview    = "newReview"
	IntentDeleteReview = "deleteReview"

	EventReceiveReview = "receiveReview"
	EventReviewDeleted = "reviewDeleted"
	EventReviewError   = "reviewError"
)

// Intent 入站意图信封，按 Type 分发到对应字段。
type Intent struct {
	Type     string         `json:"type" validate:"required,oneof=joinBook leaveBook newReview deleteReview"`
	BookID   string         `json:"bookId" validate:"required"`
	Review   *ReviewPayload `json:"review"`
	ReviewID string         `json:"reviewId"`
	UserID   string         `json:"userId"`
}

// ReviewPayload 是 newReview 意图携带的评论内容。UserID 仅用于和
// 连接时确认过的身份交叉比对，不作为授权依据。
type ReviewPayload struct {
	UserID   string  `json:"userId" validate:"required"`
	UserName string  `json:"userName" validate:"required"`
	Content  string  `json:"content" validate:"required"`
	Rating   int     `json:"rating" validate:"omitempty,min=1,max=5"`
	ParentID *string `json:"parentId"`
}

// Event 出站事件信封。
type Event struct {
	Type     string             `json:"type"`
	Review   *service.ReviewDTO `json:"review,omitempty"`
	ReviewID string             `json:"reviewId,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// ReviewStore 是 broker 依赖的持久层切面，由 service.ReviewService 实现。
type ReviewStore interface {
	Create(bookID string, in service.ReviewInput) (*models.Review, error)
	Delete(reviewID, requesterID string) (*models.Review, error)
}

// Broker 把客户端发来的意图转成持久化写入加房间广播。
// 失败只回给发送者，不污染整个房间。
type Broker struct {
	registry *Registry
	store    ReviewStore
	validate *validator.Validate
}

func NewBroker(registry *Registry, store ReviewStore) *Broker {
	return &Broker{registry: registry, store: store, validate: validator.New()}
}

// Dispatch 处理一条入站意图。raw 解析或校验失败只回发送者一个
// reviewError，不做任何存储变更。
func (b *Broker) Dispatch(c *Client, raw []byte) {
	var in Intent
	if err := json.Unmarshal(raw, &in); err != nil {
		b.sendError(c, "Malformed intent")
		return
	}
	if err := b.validate.Struct(in); err != nil {
		b.sendError(c, "Malformed intent")
		return
	}

	switch in.Type {
	case IntentJoinBook:
		b.registry.Join(in.BookID, c)
	case IntentLeaveBook:
		b.registry.Leave(in.BookID, c)
	case IntentNewReview:
		b.handleNewReview(c, in)
	case IntentDeleteReview:
		b.handleDeleteReview(c, in)
	}
}

func (b *Broker) handleNewReview(c *Client, in Intent) {
	if in.Review == nil {
		b.sendError(c, "Review payload required")
		return
	}
	if err := b.validate.Struct(in.Review); err != nil {
		b.sendError(c, "Malformed review payload")
		return
	}
	// 身份在握手时就确认过了，payload 里的 userId 只做比对。
	if in.Review.UserID != c.userID {
		b.sendError(c, "Review user does not match session identity")
		return
	}
	review, err := b.store.Create(in.BookID, service.ReviewInput{
		UserID:   c.userID,
		UserName: in.Review.UserName,
		Content:  in.Review.Content,
		Rating:   in.Review.Rating,
		ParentID: in.Review.ParentID,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			b.sendError(c, err.Error())
			return
		}
		log.Error().Err(err).Str("book_id", in.BookID).Str("user_id", c.userID).Msg("ws save review")
		b.sendError(c, "Failed to save review")
		return
	}
	dto := service.NewReviewDTO(*review)
	metrics.WsReviewEventsTotal.Inc()
	b.broadcast(in.BookID, Event{Type: EventReceiveReview, Review: &dto})
}

func (b *Broker) handleDeleteReview(c *Client, in Intent) {
	if in.ReviewID == "" {
		b.sendError(c, "Review id required")
		return
	}
	if in.UserID != "" && in.UserID != c.userID {
		b.sendError(c, "Delete user does not match session identity")
		return
	}
	if _, err := b.store.Delete(in.ReviewID, c.userID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			b.sendError(c, "Review not found")
		case errors.Is(err, service.ErrNotOwner):
			b.sendError(c, "You can only delete your own review")
		default:
			log.Error().Err(err).Str("review_id", in.ReviewID).Str("user_id", c.userID).Msg("ws delete review")
			b.sendError(c, "Failed to delete review")
		}
		return
	}
	metrics.WsReviewEventsTotal.Inc()
	b.broadcast(in.BookID, Event{Type: EventReviewDeleted, ReviewID: in.ReviewID})
}

// Disconnect 把断开的会话从它所有的房间里清掉。
func (b *Broker) Disconnect(c *Client) {
	b.registry.LeaveAll(c)
}

func (b *Broker) broadcast(bookID string, evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("book_id", bookID).Msg("ws marshal event")
		return
	}
	b.registry.Broadcast(bookID, payload)
}

// sendError 只回发送者，不广播。慢客户端直接丢弃。
func (b *Broker) sendError(c *Client, msg string) {
	payload, err := json.Marshal(Event{Type: EventReviewError, Message: msg})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
