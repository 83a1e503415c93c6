package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"blogapi/internal/apperr"
	"blogapi/internal/http/middleware"
	"blogapi/internal/model"
	"blogapi/internal/service"
)

const coverField = "coverImage"

func currentUser(c *fiber.Ctx) (*model.User, error) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	return user, nil
}

// CreatePost stores a post written by the signed-in user. The body is JSON,
// or multipart/form-data when a cover image is attached.
//
// @Summary Create Post
// @Tags v1/posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param body body service.CreatePostInput true "post"
// @Param coverImage formData file false "cover image (PNG, JPEG, GIF or WEBP)"
// @Success 201 {object} successPayload{data=model.Post}
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Router /v1/posts [post]
func CreatePost(svc service.PostService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := currentUser(c)
		if err != nil {
			return err
		}
		var in service.CreatePostInput
		if err := parseBody(c, &in); err != nil {
			return err
		}

		var cover *service.CoverUpload
		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			if fh, err := c.FormFile(coverField); err == nil {
				f, err := fh.Open()
				if err != nil {
					return apperr.New(apperr.ErrInvalidInput, "cannot open uploaded file")
				}
				defer f.Close()
				cover = &service.CoverUpload{
					Reader:      f,
					Filename:    fh.Filename,
					ContentType: fh.Header.Get(fiber.HeaderContentType),
					Size:        fh.Size,
				}
			}
		}

		post, err := svc.Create(c.UserContext(), user.ID, in, cover)
		if err != nil {
			return err
		}
		return respond(c, fiber.StatusCreated, "Post created successfully", post)
	}
}

// ListPosts returns one page of posts.
//
// @Summary Get all posts
// @Tags v1/posts
// @Produce json
// @Security BearerAuth
// @Param page query int false "page number" default(1)
// @Param limit query int false "page size" default(20)
// @Param search query string false "case-insensitive search over title, content and tags"
// @Success 200 {object} successPayload{data=repository.PaginationResult[model.Post]}
// @Failure 400 {object} errorPayload
// @Router /v1/posts [get]
func ListPosts(svc service.PostService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := queryInt(c, "page")
		if err != nil {
			return err
		}
		limit, err := queryInt(c, "limit")
		if err != nil {
			return err
		}
		res, err := svc.List(c.UserContext(), service.ListPostsQuery{
			Page:   page,
			Limit:  limit,
			Search: c.Query("search"),
		})
		if err != nil {
			return err
		}
		return respond(c, fiber.StatusOK, "Post fetched successfully", res)
	}
}

// ListAuthors returns the users that wrote at least one post.
//
// @Summary Get all Authors
// @Tags v1/posts
// @Produce json
// @Security BearerAuth
// @Param page query int false "page number" default(1)
// @Param limit query int false "page size" default(10)
// @Success 200 {object} successPayload{data=service.AuthorsPage}
// @Router /v1/posts/authors [get]
func ListAuthors(svc service.PostService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := queryInt(c, "page")
		if err != nil {
			return err
		}
		limit, err := queryInt(c, "limit")
		if err != nil {
			return err
		}
		res, err := svc.Authors(c.UserContext(), service.AuthorsQuery{Page: page, Limit: limit})
		if err != nil {
			return err
		}
		return respond(c, fiber.StatusOK, "Authors fetched successfully", res)
	}
}

// GetPost returns a single post.
//
// @Summary Get single post
// @Tags v1/posts
// @Produce json
// @Security BearerAuth
// @Param postId path string true "post id"
// @Success 200 {object} successPayload{data=model.Post}
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /v1/posts/{postId} [get]
func GetPost(svc service.PostService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		post, err := svc.Get(c.UserContext(), c.Params("postId"))
		if err != nil {
			return err
		}
		return respond(c, fiber.StatusOK, "Post fetched successfully", post)
	}
}

// UpdatePost changes a post of the signed-in user.
//
// @Summary Update post
// @Tags v1/posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postId path string true "post id"
// @Param body body service.UpdatePostInput true "fields to change"
// @Success 200 {object} successPayload{data=model.Post}
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /v1/posts/{postId} [patch]
func UpdatePost(svc service.PostService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := currentUser(c)
		if err != nil {
			return err
		}
		var in service.UpdatePostInput
		if err := parseBody(c, &in); err != nil {
			return err
		}
		post, err := svc.Update(c.UserContext(), user.ID, c.Params("postId"), in)
		if err != nil {
			return err
		}
		return respond(c, fiber.StatusOK, "Post updated successfully", post)
	}
}

// DeletePost removes a post of the signed-in user.
//
// @Summary Delete single post
// @Tags v1/posts
// @Produce json
// @Security BearerAuth
// @Param postId path string true "post id"
// @Success 200 {object} successPayload
// @Failure 404 {object} errorPayload
// @Router /v1/posts/{postId} [delete]
func DeletePost(svc service.PostService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := currentUser(c)
		if err != nil {
			return err
		}
		if err := svc.Delete(c.UserContext(), user.ID, c.Params("postId")); err != nil {
			return err
		}
		return respond(c, fiber.StatusOK, "Post deleted successfully", nil)
	}
}

// GetPostCover streams the cover image of a post.
//
// @Summary Get post cover image
// @Tags v1/posts
// @Produce image/png,image/jpeg,image/gif,image/webp
// @Security BearerAuth
// @Param postId path string true "post id"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Router /v1/posts/{postId}/cover [get]
func GetPostCover(svc service.PostService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, info, err := svc.Cover(c.UserContext(), c.Params("postId"))
		if err != nil {
			return err
		}
		if info.ContentType != "" {
			c.Set(fiber.HeaderContentType, info.ContentType)
		}
		if info.ETag != "" {
			c.Set(fiber.HeaderETag, info.ETag)
		}
		size := int(info.Size)
		if size <= 0 {
			size = -1
		}
		// fasthttp closes rc once the body is written.
		return c.Status(fiber.StatusOK).SendStream(rc, size)
	}
}
