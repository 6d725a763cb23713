package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mercyogalo/bookStore/internal/auth"
	"github.com/mercyogalo/bookStore/internal/config"
	"github.com/mercyogalo/bookStore/internal/metrics"
	"github.com/mercyogalo/bookStore/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Client 是一条已认证的查看者会话。身份在握手时从 token 确定，
// 之后所有意图都以它为准。
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	userID    string
	name      string
	role      string
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve 升级 WebSocket 连接。Token 走 Authorization 头或 token 查询参数，
// 浏览器的 WebSocket API 带不了自定义头。连接成功后会话进入 connected
// 状态，尚未加入任何房间。
func Serve(broker *Broker, db *gorm.DB, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		token := c.Query("token")
		if token == "" && len(authz) > 7 && (authz[:7] == "Bearer " || authz[:7] == "bearer ") {
			token = authz[7:]
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := auth.ParseAccessToken(token, cfg.JWTSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		var user models.User
		if err := db.First(&user, "id = ?", claims.UserID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &Client{
			conn:      conn,
			send:      make(chan []byte, 256),
			sessionID: uuid.NewString(),
			userID:    user.ID,
			name:      user.Name,
			role:      user.Role,
		}
		metrics.WsConnections.Inc()
		log.Debug().Str("session_id", client.sessionID).Str("user_id", client.userID).Str("role", client.role).Msg("ws connect")

		go client.writePump()
		client.readPump(broker)
	}
}

// readPump 逐条读入意图交给 broker，连接断开时清理全部房间成员关系。
// 心跳超时的脏断连也走同一条路径。
func (c *Client) readPump(broker *Broker) {
	defer func() {
		broker.Disconnect(c)
		metrics.WsConnections.Dec()
		log.Debug().Str("session_id", c.sessionID).Str("user_id", c.userID).Msg("ws disconnect")
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(1 << 20) // 1MB
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		broker.Dispatch(c, data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
