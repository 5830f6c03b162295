package blog

import "time"

// Post is a blog post as the API serializes it. Author and the timestamps
// are server-assigned and immutable from the client's point of view.
type Post struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	AuthorID       int64     `json:"author"`
	AuthorUsername string    `json:"author_username"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Page is one page of the server-paginated post collection. PageNumber is
// 1-indexed. An empty collection is a single empty page: TotalPages is
// never zero, so page numbers shown to users always start at 1.
type Page struct {
	Items      []Post
	PageNumber int
	TotalPages int
	TotalCount int
}
