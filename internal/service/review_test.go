package service

import (
	"strings"
	"testing"
	"time"

	"github.com/mercyogalo/bookStore/internal/models"
	"github.com/stretchr/testify/require"
)

// 校验分支都在落库之前返回，这些用例不需要数据库。
func TestReviewService_CreateValidation(t *testing.T) {
	svc := NewReviewService(nil, 500)

	tests := []struct {
		name   string
		bookID string
		in     ReviewInput
	}{
		{"missing book", "", ReviewInput{UserID: "u1", UserName: "Alice", Content: "x"}},
		{"missing user", "b1", ReviewInput{UserName: "Alice", Content: "x"}},
		{"missing user name", "b1", ReviewInput{UserID: "u1", Content: "x"}},
		{"empty content", "b1", ReviewInput{UserID: "u1", UserName: "Alice", Content: ""}},
		{"whitespace content", "b1", ReviewInput{UserID: "u1", UserName: "Alice", Content: "   \n\t "}},
		{"content over limit", "b1", ReviewInput{UserID: "u1", UserName: "Alice", Content: strings.Repeat("字", 501)}},
		{"rating too low", "b1", ReviewInput{UserID: "u1", UserName: "Alice", Content: "x", Rating: -1}},
		{"rating too high", "b1", ReviewInput{UserID: "u1", UserName: "Alice", Content: "x", Rating: 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			_, err := svc.Create(tt.bookID, tt.in)
			req.ErrorIs(err, ErrValidation)
		})
	}
}

func TestReviewService_ContentLimitConfigurable(t *testing.T) {
	req := require.New(t)
	svc := NewReviewService(nil, 10)

	_, err := svc.Create("b1", ReviewInput{UserID: "u1", UserName: "Alice", Content: strings.Repeat("a", 11)})
	req.ErrorIs(err, ErrValidation)
}

func strPtr(s string) *string { return &s }

func mkReview(id, bookID, parentID string, age time.Duration) models.Review {
	r := models.Review{
		ID:        id,
		BookID:    bookID,
		UserID:    "u1",
		UserName:  "Alice",
		Content:   "content " + id,
		Rating:    5,
		CreatedAt: time.Now().Add(-age),
	}
	if parentID != "" {
		r.ParentID = strPtr(parentID)
	}
	return r
}

func TestAssembleThreads_RepliesGroupedUnderParent(t *testing.T) {
	req := require.New(t)

	// Newest-first, as ListByBook queries it.
	flat := []models.Review{
		mkReview("r3", "b1", "r1", 1*time.Minute),
		mkReview("r2", "b1", "", 2*time.Minute),
		mkReview("r1", "b1", "", 3*time.Minute),
	}

	roots := assembleThreads(flat)

	req.Len(roots, 2)
	req.Equal("r2", roots[0].ID)
	req.Equal("r1", roots[1].ID)
	req.Empty(roots[0].Replies)
	req.Len(roots[1].Replies, 1)
	req.Equal("r3", roots[1].Replies[0].ID)
}

func TestAssembleThreads_OrphanReplyPromotedToRoot(t *testing.T) {
	req := require.New(t)

	flat := []models.Review{
		mkReview("r2", "b1", "gone", 1*time.Minute),
		mkReview("r1", "b1", "", 2*time.Minute),
	}

	roots := assembleThreads(flat)

	// The reply whose parent is missing from the result set is kept
	// as a root entry, not dropped.
	req.Len(roots, 2)
	req.Equal("r2", roots[0].ID)
	req.Equal("r1", roots[1].ID)
}

func TestAssembleThreads_NewestFirstPreserved(t *testing.T) {
	req := require.New(t)

	flat := []models.Review{
		mkReview("r3", "b1", "", 1*time.Minute),
		mkReview("r2", "b1", "", 2*time.Minute),
		mkReview("r1", "b1", "", 3*time.Minute),
	}

	roots := assembleThreads(flat)

	req.Len(roots, 3)
	req.Equal([]string{"r3", "r2", "r1"}, []string{roots[0].ID, roots[1].ID, roots[2].ID})
}

func TestAssembleThreads_Empty(t *testing.T) {
	require.Empty(t, assembleThreads(nil))
}

func TestNewReviewDTO(t *testing.T) {
	req := require.New(t)

	r := mkReview("r1", "b1", "r0", time.Minute)
	dto := NewReviewDTO(r)

	req.Equal("r1", dto.ID)
	req.Equal("b1", dto.BookID)
	req.Equal("u1", dto.UserID)
	req.Equal("Alice", dto.UserName)
	req.Equal(5, dto.Rating)
	req.NotNil(dto.ParentID)
	req.Equal("r0", *dto.ParentID)
	req.NotNil(dto.Replies, "replies must marshal as [] not null")
}
