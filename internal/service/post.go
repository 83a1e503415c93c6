package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"blogapi/internal/apperr"
	"blogapi/internal/logger"
	"blogapi/internal/model"
	"blogapi/internal/repository"
	"blogapi/internal/storage"
)

const defaultAuthorsLimit = 10

var (
	errPostExists      = apperr.New(apperr.ErrConstraintViolation, "Post already exist")
	errPostNotFound    = apperr.New(apperr.ErrNotFound, "Post not found")
	errCoverNotFound   = apperr.New(apperr.ErrNotFound, "Cover image not found")
	errInvalidPostID   = apperr.New(apperr.ErrInvalidInput, "invalid data provided")
	errCoversDisabled  = apperr.New(apperr.ErrInvalidInput, "Cover images are not enabled")
	errEmptyUpdate     = apperr.New(apperr.ErrInvalidInput, "nothing to update")
	errUnsupportedFile = apperr.New(apperr.ErrInvalidInput, "coverImage must be a PNG, JPEG, GIF or WEBP image")
)

// postSearchFields are matched by the search term of List.
var postSearchFields = []string{"title", "content", "tags"}

var coverTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

type CreatePostInput struct {
	Title       string   `json:"title" form:"title" validate:"required"`
	Content     string   `json:"content" form:"content" validate:"required"`
	Tags        []string `json:"tags" form:"tags"`
	IsPublished bool     `json:"isPublished" form:"isPublished"`
}

// UpdatePostInput holds the fields to change. Nil fields are left alone.
type UpdatePostInput struct {
	Title       *string   `json:"title" validate:"omitnil,min=1"`
	Content     *string   `json:"content" validate:"omitnil,min=1"`
	Tags        *[]string `json:"tags"`
	IsPublished *bool     `json:"isPublished"`
}

// CoverUpload is an image attached to a new post.
type CoverUpload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

type ListPostsQuery struct {
	Page   int
	Limit  int
	Search string
}

type AuthorsQuery struct {
	Page  int
	Limit int
}

// AuthorsPage lists users that wrote at least one post.
type AuthorsPage struct {
	Data        []model.User `json:"data"`
	Total       int          `json:"total"`
	CurrentPage int          `json:"currentPage"`
	TotalPages  int          `json:"totalPages"`
}

// PostService defines the use cases for blog posts.
type PostService interface {
	// Create stores a post written by author. When cover is set the image is
	// uploaded first and removed again if the post cannot be saved.
	Create(ctx context.Context, author primitive.ObjectID, in CreatePostInput, cover *CoverUpload) (*model.Post, error)
	// List returns one page of posts with their author's name.
	List(ctx context.Context, q ListPostsQuery) (*repository.PaginationResult[model.Post], error)
	Authors(ctx context.Context, q AuthorsQuery) (*AuthorsPage, error)
	Get(ctx context.Context, id string) (*model.Post, error)
	// Update and Delete only touch posts written by author.
	Update(ctx context.Context, author primitive.ObjectID, id string, in UpdatePostInput) (*model.Post, error)
	Delete(ctx context.Context, author primitive.ObjectID, id string) error
	// Cover streams the cover image of a post. The caller closes the reader.
	Cover(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error)
}

type postService struct {
	posts repository.PostRepository
	users repository.UserRepository
	// store is nil when cover images are disabled.
	store storage.Storage
	now   func() time.Time
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository, store storage.Storage) PostService {
	return &postService{posts: posts, users: users, store: store, now: time.Now}
}

func (s *postService) Create(ctx context.Context, author primitive.ObjectID, in CreatePostInput, cover *CoverUpload) (*model.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	post := &model.Post{
		Title:       in.Title,
		Content:     in.Content,
		Author:      model.RefTo[model.User](author),
		Tags:        cleanTags(in.Tags),
		IsPublished: in.IsPublished,
	}
	if in.IsPublished {
		at := s.now().UTC()
		post.PublishedAt = &at
	}

	if cover != nil {
		key, err := s.uploadCover(ctx, cover)
		if err != nil {
			return nil, err
		}
		post.CoverImage = key
	}

	stored, err := s.posts.Create(ctx, post)
	if err != nil {
		if post.CoverImage != "" {
			s.removeCover(ctx, post.CoverImage)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errPostExists
		}
		return nil, err
	}
	return stored, nil
}

func (s *postService) uploadCover(ctx context.Context, cover *CoverUpload) (string, error) {
	if s.store == nil {
		return "", errCoversDisabled
	}
	if cover.Reader == nil {
		return "", apperr.New(apperr.ErrInvalidInput, "coverImage should not be empty")
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(cover.ContentType, ";", 2)[0]))
	if !coverTypes[contentType] {
		return "", errUnsupportedFile
	}

	key := filepath.ToSlash(filepath.Join("posts", uuid.New().String()+strings.ToLower(filepath.Ext(cover.Filename))))
	info, err := s.store.Put(ctx, key, cover.Reader, storage.PutObjectOptions{
		Size:        cover.Size,
		ContentType: contentType,
		Metadata:    map[string]string{"original-filename": cover.Filename},
	})
	if err != nil {
		return "", fmt.Errorf("upload cover: %w", err)
	}
	return info.Key, nil
}

// removeCover is best effort; a leftover object is only logged.
func (s *postService) removeCover(ctx context.Context, key string) {
	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		logger.From(ctx).Warn("cover image cleanup failed",
			zap.String("key", key),
			logger.Err(err),
		)
	}
}

func (s *postService) List(ctx context.Context, q ListPostsQuery) (*repository.PaginationResult[model.Post], error) {
	return s.posts.FindWithPagination(ctx, repository.Filter{}, repository.FindOptions{
		Page:       q.Page,
		Limit:      q.Limit,
		Search:     strings.TrimSpace(q.Search),
		Conditions: postSearchFields,
		Populate: []repository.Populate{{
			Path:       "author",
			Collection: model.UsersCollection,
			Select:     []string{"fullName"},
		}},
	})
}

func (s *postService) Authors(ctx context.Context, q AuthorsQuery) (*AuthorsPage, error) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultAuthorsLimit
	}
	if limit > repository.MaxLimit {
		limit = repository.MaxLimit
	}

	ids, err := s.posts.DistinctAuthors(ctx)
	if err != nil {
		return nil, err
	}

	// Distinct author ids are paged in memory. Pages past the end are empty;
	// the offset is only computed for pages that exist so it cannot overflow.
	totalPages := (len(ids) + limit - 1) / limit
	start := len(ids)
	if page <= totalPages {
		start = (page - 1) * limit
	}
	end := min(start+limit, len(ids))

	authors := []model.User{}
	if start < end {
		authors, err = s.users.Find(ctx, repository.In("_id", ids[start:end]), repository.FindOptions{
			Projection: repository.Include("fullName"),
		})
		if err != nil {
			return nil, err
		}
	}

	return &AuthorsPage{
		Data:        authors,
		Total:       len(ids),
		CurrentPage: page,
		TotalPages:  totalPages,
	}, nil
}

func (s *postService) Get(ctx context.Context, id string) (*model.Post, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, errInvalidPostID
	}
	post, err := s.posts.FindByID(ctx, id, repository.FindOptions{})
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errPostNotFound
	}
	return post, nil
}

func (s *postService) Update(ctx context.Context, author primitive.ObjectID, id string, in UpdatePostInput) (*model.Post, error) {
	postID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errInvalidPostID
	}
	in.Title = trimmed(in.Title)
	in.Content = trimmed(in.Content)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	patch := repository.Update{}
	if in.Title != nil {
		patch["title"] = *in.Title
	}
	if in.Content != nil {
		patch["content"] = *in.Content
	}
	if in.Tags != nil {
		patch["tags"] = cleanTags(*in.Tags)
	}
	if in.IsPublished != nil {
		patch["isPublished"] = *in.IsPublished
		if *in.IsPublished {
			patch["publishedAt"] = s.now().UTC()
		}
	}
	if len(patch) == 0 {
		return nil, errEmptyUpdate
	}

	post, err := s.posts.Update(ctx, ownedBy(postID, author), patch)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errPostNotFound
	}
	return post, nil
}

func (s *postService) Delete(ctx context.Context, author primitive.ObjectID, id string) error {
	postID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errInvalidPostID
	}

	post, err := s.posts.FindOne(ctx, ownedBy(postID, author), repository.FindOptions{
		Projection: repository.Include("coverImage"),
	})
	if err != nil {
		return err
	}
	if post == nil {
		return errPostNotFound
	}

	deleted, err := s.posts.DeleteOne(ctx, ownedBy(postID, author))
	if err != nil {
		return err
	}
	if !deleted {
		return errPostNotFound
	}
	if post.CoverImage != "" {
		s.removeCover(ctx, post.CoverImage)
	}
	return nil
}

func (s *postService) Cover(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	if post.CoverImage == "" || s.store == nil {
		return nil, storage.ObjectInfo{}, errCoverNotFound
	}
	rc, info, err := s.store.Get(ctx, post.CoverImage)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, errCoverNotFound
		}
		return nil, storage.ObjectInfo{}, fmt.Errorf("read cover: %w", err)
	}
	return rc, info, nil
}

func ownedBy(postID, author primitive.ObjectID) repository.Filter {
	return repository.And(repository.ByID(postID), repository.Eq("author", author))
}

// cleanTags trims tags and drops empty ones.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
