// Package blog is the resource client for posts: paginated listing, reads,
// and the author-only mutations. Server errors arrive pre-normalized by the
// api client; this package only adds resource-level sentinels on top.
package blog

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"blogclient/internal/api"
	"blogclient/internal/session"
)

var (
	ErrFetch     = errors.New("fetch failed")
	ErrNotFound  = errors.New("post not found")
	ErrCreate    = errors.New("create failed")
	ErrUpdate    = errors.New("update failed")
	ErrDelete    = errors.New("delete failed")
	ErrNotAuthor = errors.New("only the author can modify this post")
)

var validate = validator.New()

type postInput struct {
	Title   string `validate:"required"`
	Content string `validate:"required"`
}

// identity is the slice of the session manager this package needs for the
// courtesy author check.
type identity interface {
	Current() (session.Session, bool)
}

type Service struct {
	api      *api.Client
	identity identity
}

func NewService(client *api.Client, identity identity) *Service {
	return &Service{api: client, identity: identity}
}

type listResponse struct {
	Count   int    `json:"count"`
	Results []Post `json:"results"`
}

// List fetches one 1-indexed page. Total pages is count/pageSize rounded
// up; an empty collection still counts as one page.
func (s *Service) List(ctx context.Context, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var resp listResponse
	path := fmt.Sprintf("/blogs/?page=%d&page_size=%d", page, pageSize)
	if err := s.api.Get(ctx, path, &resp); err != nil {
		return Page{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	totalPages := 1
	if resp.Count > 0 {
		totalPages = (resp.Count + pageSize - 1) / pageSize
	}
	return Page{
		Items:      resp.Results,
		PageNumber: page,
		TotalPages: totalPages,
		TotalCount: resp.Count,
	}, nil
}

// Get fetches a single post. A 404 — whether the id is gone or never
// existed — surfaces as ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (Post, error) {
	var post Post
	if err := s.api.Get(ctx, fmt.Sprintf("/blogs/%d/", id), &post); err != nil {
		if api.IsNotFound(err) {
			return Post{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return Post{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return post, nil
}

// Create posts a new entry. The server assigns the id, author, and
// timestamps; authentication is enforced by the server's 401, not here.
func (s *Service) Create(ctx context.Context, title, content string) (Post, error) {
	if err := validate.Struct(postInput{Title: title, Content: content}); err != nil {
		return Post{}, fmt.Errorf("%w: title and content are required", ErrCreate)
	}

	var post Post
	body := map[string]string{"title": title, "content": content}
	if err := s.api.Post(ctx, "/blogs/", body, &post); err != nil {
		return Post{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}
	return post, nil
}

// Update rewrites a post's title and content. Before spending a round trip
// on the PUT it fetches the post and compares authors: a mismatch with the
// current session is refused locally. The server's check stays
// authoritative either way.
func (s *Service) Update(ctx context.Context, id int64, title, content string) (Post, error) {
	if err := validate.Struct(postInput{Title: title, Content: content}); err != nil {
		return Post{}, fmt.Errorf("%w: title and content are required", ErrUpdate)
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if sess, ok := s.identity.Current(); ok && existing.AuthorID != sess.UserID {
		return Post{}, fmt.Errorf("%w: post %d belongs to %s", ErrNotAuthor, id, existing.AuthorUsername)
	}

	var post Post
	body := map[string]string{"title": title, "content": content}
	if err := s.api.Put(ctx, fmt.Sprintf("/blogs/%d/", id), body, &post); err != nil {
		return Post{}, fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	return post, nil
}

// Delete removes a post. Deleting an already-deleted id is an error, not a
// silent success.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.api.Delete(ctx, fmt.Sprintf("/blogs/%d/", id)); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}
	return nil
}
