package ws

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/mercyogalo/bookStore/internal/models"
	"github.com/mercyogalo/bookStore/internal/service"
)

// fakeStore mimics the review store semantics without a database.
type fakeStore struct {
	seq     int
	reviews map[string]*models.Review
}

func newFakeStore() *fakeStore {
	return &fakeStore{reviews: make(map[string]*models.Review)}
}

func (f *fakeStore) Create(bookID string, in service.ReviewInput) (*models.Review, error) {
	if in.Content == "" {
		return nil, fmt.Errorf("%w: content required", service.ErrValidation)
	}
	rating := in.Rating
	if rating == 0 {
		rating = 5
	}
	f.seq++
	r := &models.Review{
		ID:        fmt.Sprintf("r%d", f.seq),
		BookID:    bookID,
		UserID:    in.UserID,
		UserName:  in.UserName,
		Content:   in.Content,
		Rating:    rating,
		ParentID:  in.ParentID,
		CreatedAt: time.Now(),
	}
	f.reviews[r.ID] = r
	return r, nil
}

func (f *fakeStore) Delete(reviewID, requesterID string) (*models.Review, error) {
	r, ok := f.reviews[reviewID]
	if !ok {
		return nil, service.ErrNotFound
	}
	if r.UserID != requesterID {
		return nil, service.ErrNotOwner
	}
	delete(f.reviews, reviewID)
	return r, nil
}

func dispatch(b *Broker, c *Client, intent any) {
	raw, _ := json.Marshal(intent)
	b.Dispatch(c, raw)
}

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case raw := <-c.send:
		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return evt
	default:
		t.Fatal("no event in send channel")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected event: %s", raw)
	default:
	}
}

func TestBroker_NewReviewBroadcastToRoom(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker(NewRegistry(), store)
	alice := newTestClient("u1", "Alice")
	bob := newTestClient("u2", "Bob")

	dispatch(broker, alice, map[string]any{"type": "joinBook", "bookId": "b1"})
	dispatch(broker, bob, map[string]any{"type": "joinBook", "bookId": "b1"})

	dispatch(broker, alice, map[string]any{
		"type":   "newReview",
		"bookId": "b1",
		"review": map[string]any{
			"userId":   "u1",
			"userName": "Alice",
			"content":  "Great read",
			"rating":   5,
		},
	})

	for _, c := range []*Client{alice, bob} {
		evt := recvEvent(t, c)
		if evt.Type != EventReceiveReview {
			t.Fatalf("event type = %q, want %q", evt.Type, EventReceiveReview)
		}
		if evt.Review == nil {
			t.Fatal("receiveReview event missing review payload")
		}
		if evt.Review.Content != "Great read" {
			t.Errorf("review content = %q, want %q", evt.Review.Content, "Great read")
		}
		if evt.Review.UserName != "Alice" {
			t.Errorf("review userName = %q, want Alice", evt.Review.UserName)
		}
		if evt.Review.Rating != 5 {
			t.Errorf("review rating = %d, want 5", evt.Review.Rating)
		}
	}
}

func TestBroker_NewReviewExactlyOneEventPerMember(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker(NewRegistry(), store)
	alice := newTestClient("u1", "Alice")

	// Joining twice must not double-deliver.
	dispatch(broker, alice, map[string]any{"type": "joinBook", "bookId": "b1"})
	dispatch(broker, alice, map[string]any{"type": "joinBook", "bookId": "b1"})

	dispatch(broker, alice, map[string]any{
		"type":   "newReview",
		"bookId": "b1",
		"review": map[string]any{"userId": "u1", "userName": "Alice", "content": "once"},
	})

	recvEvent(t, alice)
	assertNoEvent(t, alice)
}

func TestBroker_NewReviewValidationErrorToSenderOnly(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker(NewRegistry(), store)
	alice := newTestClient("u1", "Alice")
	bob := newTestClient("u2", "Bob")

	dispatch(broker, alice, map[string]any{"type": "joinBook", "bookId": "b1"})
	dispatch(broker, bob, map[string]any{"type": "joinBook", "bookId": "b1"})

	dispatch(broker, alice, map[string]any{
		"type":   "newReview",
		"bookId": "b1",
		"review": map[string]any{"userId": "u1", "userName": "Alice"},
	})

	evt := recvEvent(t, alice)
	if evt.Type != EventReviewError {
		t.Fatalf("event type = %q, want %q", evt.Type, EventReviewError)
	}
	assertNoEvent(t, bob)
	if len(store.reviews) != 0 {
		t.Errorf("store contains %d reviews, want 0", len(store.reviews))
	}
}

func TestBroker_NewReviewIdentityMismatchRejected(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker(NewRegistry(), store)
	alice := newTestClient("u1", "Alice")

	dispatch(broker, alice, map[string]any{"type": "joinBook", "bookId": "b1"})
	dispatch(broker, alice, map[string]any{
		"type":   "newReview",
		"bookId": "b1",
		"review": map[string]any{"userId": "u2", "userName": "Mallory", "content": "spoofed"},
	})

	evt := recvEvent(t, alice)
	if evt.Type != EventReviewError {
		t.Fatalf("event type = %q, want %q", evt.Type, EventReviewError)
	}
	if len(store.reviews) != 0 {
		t.Error("spoofed review reached the store")
	}
}

func TestBroker_DeleteReviewByOwnerBroadcasts(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker(NewRegistry(), store)
	alice := newTestClient("u1", "Alice")
	bob := newTestClient("u2", "Bob")

	dispatch(broker, alice, map[string]any{"type": "joinBook", "bookId": "b1"})
	dispatch(broker, bob, map[string]any{"type": "joinBook", "bookId": "b1"})

	review, err := store.Create("b1", service.ReviewInput{UserID: "u1", UserName: "Alice", Content: "mine"})
	if err != nil {
		t.Fatalf("seed review: %v", err)
	}

	dispatch(broker, alice, map[string]any{
		"type":     "deleteReview",
		"bookId":   "b1",
		"reviewId": review.ID,
		"userId":   "u1",
	})

	for _, c := range []*Client{alice, bob} {
		evt := recvEvent(t, c)
		if evt.Type != EventReviewDeleted {
			t.Fatalf("event type = %q, want %q", evt.Type, EventReviewDeleted)
		}
		if evt.ReviewID != review.ID {
			t.Errorf("reviewId = %q, want %q", evt.ReviewID, review.ID)
		}
	}
	if _, ok := store.reviews[review.ID]; ok {
		t.Error("review still in store after delete")
	}
}

func TestBroker_DeleteReviewByNonOwnerRejected(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker(NewRegistry(), store)
	alice := newTestClient("u1", "Alice")
	bob := newTestClient("u2", "Bob")

	dispatch(broker, alice, map[string]any{"type": "joinBook", "bookId": "b1"})
	dispatch(broker, bob, map[string]any{"type": "joinBook", "bookId": "b1"})

	review, err := store.Create("b1", service.ReviewInput{UserID: "u1", UserName: "Alice", Content: "mine"})
	if err != nil {
		t.Fatalf("seed review: %v", err)
	}

	dispatch(broker, bob, map[string]any{
		"type":     "deleteReview",
		"bookId":   "b1",
		"reviewId": review.ID,
		"userId":   "u2",
	})

	evt := recvEvent(t, bob)
	if evt.Type != EventReviewError {
		t.Fatalf("event type = %q, want %q", evt.Type, EventReviewError)
	}
	assertNoEvent(t, alice)
	if _, ok := store.reviews[review.ID]; !ok {
		t.Error("review deleted despite authorization failure")
	}
}

func TestBroker_DeleteMissingReviewNotFound(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker(NewRegistry(), store)
	alice := newTestClient("u1", "Alice")

	dispatch(broker, alice, map[string]any{"type": "joinBook", "bookId": "b1"})
	dispatch(broker, alice, map[string]any{
		"type":     "deleteReview",
		"bookId":   "b1",
		"reviewId": "missing",
	})

	evt := recvEvent(t, alice)
	if evt.Type != EventReviewError {
		t.Fatalf("event type = %q, want %q", evt.Type, EventReviewError)
	}
}

func TestBroker_UnjoinedIntentStillMutatesStore(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker(NewRegistry(), store)
	alice := newTestClient("u1", "Alice")

	// Alice never joined b1: the review is persisted, the broadcast
	// simply reaches nobody.
	dispatch(broker, alice, map[string]any{
		"type":   "newReview",
		"bookId": "b1",
		"review": map[string]any{"userId": "u1", "userName": "Alice", "content": "from outside"},
	})

	if len(store.reviews) != 1 {
		t.Fatalf("store contains %d reviews, want 1", len(store.reviews))
	}
	assertNoEvent(t, alice)
}

func TestBroker_LeaveBookStopsDelivery(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker(NewRegistry(), store)
	alice := newTestClient("u1", "Alice")
	bob := newTestClient("u2", "Bob")

	dispatch(broker, alice, map[string]any{"type": "joinBook", "bookId": "b1"})
	dispatch(broker, bob, map[string]any{"type": "joinBook", "bookId": "b1"})
	dispatch(broker, bob, map[string]any{"type": "leaveBook", "bookId": "b1"})

	dispatch(broker, alice, map[string]any{
		"type":   "newReview",
		"bookId": "b1",
		"review": map[string]any{"userId": "u1", "userName": "Alice", "content": "after leave"},
	})

	recvEvent(t, alice)
	assertNoEvent(t, bob)
}

func TestBroker_DisconnectLeavesAllRooms(t *testing.T) {
	store := newFakeStore()
	registry := NewRegistry()
	broker := NewBroker(registry, store)
	alice := newTestClient("u1", "Alice")

	dispatch(broker, alice, map[string]any{"type": "joinBook", "bookId": "b1"})
	dispatch(broker, alice, map[string]any{"type": "joinBook", "bookId": "b2"})

	broker.Disconnect(alice)

	if registry.Online("b1") != 0 || registry.Online("b2") != 0 {
		t.Error("disconnected session still member of a room")
	}
}

func TestBroker_MalformedIntent(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker(NewRegistry(), store)
	alice := newTestClient("u1", "Alice")

	broker.Dispatch(alice, []byte("not json"))
	evt := recvEvent(t, alice)
	if evt.Type != EventReviewError {
		t.Fatalf("event type = %q, want %q", evt.Type, EventReviewError)
	}

	// Unknown intent type fails envelope validation.
	dispatch(broker, alice, map[string]any{"type": "selfDestruct", "bookId": "b1"})
	evt = recvEvent(t, alice)
	if evt.Type != EventReviewError {
		t.Fatalf("event type = %q, want %q", evt.Type, EventReviewError)
	}
}
