package ws

import (
	"sync"
)

// Registry 维护 bookID 到在线客户端的映射。成员关系只存在于当前进程
// 内存里，不落库；多进程部署需要外部的扇出层，这里不做。
//
// 同一个客户端可以同时待在多本书的房间里（前端在多个书页之间切换时
// 先 leave 再 join，但顺序不保证），Join/Leave 都是幂等的。
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]map[*Client]struct{}
	byClient map[*Client]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]map[string]struct{}),
	}
}

// Join 把客户端加入一本书的房间，重复加入不会重复计数。
func (r *Registry) Join(bookID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := r.rooms[bookID]
	if room == nil {
		room = make(map[*Client]struct{})
		r.rooms[bookID] = room
	}
	room[c] = struct{}{}
	joined := r.byClient[c]
	if joined == nil {
		joined = make(map[string]struct{})
		r.byClient[c] = joined
	}
	joined[bookID] = struct{}{}
}

// Leave 把客户端移出一本书的房间，房间变空时回收。幂等。
func (r *Registry) Leave(bookID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(bookID, c)
}

func (r *Registry) leaveLocked(bookID string, c *Client) {
	if room, ok := r.rooms[bookID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(r.rooms, bookID)
		}
	}
	if joined, ok := r.byClient[c]; ok {
		delete(joined, bookID)
		if len(joined) == 0 {
			delete(r.byClient, c)
		}
	}
}

// LeaveAll 在断连时把客户端从它加入过的所有房间移出，
// 之后的广播不会再投递给它。
func (r *Registry) LeaveAll(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for bookID := range r.byClient[c] {
		if room, ok := r.rooms[bookID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(r.rooms, bookID)
			}
		}
	}
	delete(r.byClient, c)
}

// Online 返回一本书当前的在线查看人数，供 REST 接口复用。
func (r *Registry) Online(bookID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[bookID])
}

// Broadcast 把一条消息投递给房间内的全部成员（包括发送者自己）。
// 整个扇出在锁内完成，同一房间的广播因此是全序的：所有成员看到
// 的事件顺序一致。发送缓冲已满的慢客户端被直接移出房间，由心跳
// 超时负责断开它的连接。
func (r *Registry) Broadcast(bookID string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.rooms[bookID] {
		select {
		case c.send <- payload:
		default:
			r.leaveLocked(bookID, c)
		}
	}
}

// Clear 清空全部房间，停服时调用。
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = make(map[string]map[*Client]struct{})
	r.byClient = make(map[*Client]map[string]struct{})
}
