package v1

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/usevoxlog/voxlog/store"
)

const maxCommentLength = 8 * 1024

// CreateCommentRequest is the body of POST /api/entries/:uid/comments.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CommentView is the API representation of a comment.
type CommentView struct {
	UID       string `json:"uid"`
	EntryUID  string `json:"entryUid"`
	CreatorID int32  `json:"creatorId"`
	Content   string `json:"content"`
	CreatedTs int64  `json:"createdTs"`
}

// ListCommentsResponse is the body of GET /api/entries/:uid/comments.
type ListCommentsResponse struct {
	Comments []*CommentView `json:"comments"`
}

func convertComment(comment *store.Comment, entryUID string) *CommentView {
	return &CommentView{
		UID:       comment.UID,
		EntryUID:  entryUID,
		CreatorID: comment.CreatorID,
		Content:   comment.Content,
		CreatedTs: comment.CreatedTs,
	}
}

// findSharedEntry resolves :uid without creator scoping. An entry's uid is
// unguessable and doubles as its share token, so anyone holding it may read
// and write comments. Writes the error response itself and reports done=true.
func (s *APIV1Service) findSharedEntry(c echo.Context) (entry *store.JournalEntry, done bool, err error) {
	uid := c.Param("uid")
	if uid == "" {
		return nil, true, validationError(c, FieldError{Field: "uid", Error: "uid is required"})
	}
	entry, lookupErr := s.Store.GetJournalEntry(c.Request().Context(), &store.FindJournalEntry{UID: &uid})
	if lookupErr != nil {
		slog.Error("failed to fetch entry", "uid", uid, "error", lookupErr)
		return nil, true, internalError(c)
	}
	if entry == nil {
		return nil, true, notFound(c, "entry not found")
	}
	return entry, false, nil
}

// CreateComment handles POST /api/entries/:uid/comments. The entry owner gets
// an email notification; delivery happens off the request path and a failure
// never affects the response.
func (s *APIV1Service) CreateComment(c echo.Context) error {
	request := &CreateCommentRequest{}
	if err := c.Bind(request); err != nil {
		return validationError(c, FieldError{Field: "body", Error: "malformed JSON body"})
	}
	if request.Content == "" {
		return validationError(c, FieldError{Field: "content", Error: "content is required"})
	}
	if len(request.Content) > maxCommentLength {
		return validationError(c, FieldError{Field: "content", Error: "content exceeds 8KB"})
	}

	entry, done, err := s.findSharedEntry(c)
	if done {
		return err
	}

	comment, err := s.Store.CreateComment(c.Request().Context(), &store.Comment{
		EntryID:   entry.ID,
		CreatorID: userIDFromContext(c),
		Content:   request.Content,
	})
	if err != nil {
		slog.Error("failed to create comment", "entryUID", entry.UID, "error", err)
		return internalError(c)
	}

	go s.notifyEntryOwner(entry, comment)

	return c.JSON(http.StatusCreated, convertComment(comment, entry.UID))
}

// ListComments handles GET /api/entries/:uid/comments.
func (s *APIV1Service) ListComments(c echo.Context) error {
	entry, done, err := s.findSharedEntry(c)
	if done {
		return err
	}

	comments, err := s.Store.ListComments(c.Request().Context(), &store.FindComment{EntryID: &entry.ID})
	if err != nil {
		slog.Error("failed to list comments", "entryUID", entry.UID, "error", err)
		return internalError(c)
	}

	response := &ListCommentsResponse{Comments: []*CommentView{}}
	for _, comment := range comments {
		response.Comments = append(response.Comments, convertComment(comment, entry.UID))
	}
	return c.JSON(http.StatusOK, response)
}

// notifyTimeout bounds the owner lookup plus the SMTP exchange for one
// notification.
const notifyTimeout = 30 * time.Second

// notifyEntryOwner emails the entry owner about a new comment. Runs detached
// from the request, so it uses its own context.
func (s *APIV1Service) notifyEntryOwner(entry *store.JournalEntry, comment *store.Comment) {
	if !s.EmailSender.Enabled() || comment.CreatorID == entry.CreatorID {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	owner, err := s.Store.GetUser(ctx, &store.FindUser{ID: &entry.CreatorID})
	if err != nil || owner == nil || owner.Email == "" {
		slog.Warn("skipping comment notification, owner not resolvable", "entryUID", entry.UID, "error", err)
		return
	}
	subject := "New comment on your journal entry"
	body := fmt.Sprintf("Someone commented on your entry:\n\n%s", comment.Content)
	if err := s.EmailSender.Send(ctx, owner.Email, subject, body); err != nil {
		slog.Warn("failed to send comment notification", "entryUID", entry.UID, "error", err)
	}
}
