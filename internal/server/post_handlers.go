package server

import (
	"io"
	"strings"

	"socially/internal/media"
	"socially/internal/models"
	"socially/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content string `json:"content" form:"content"`
	// Image is a base64 data URL. Multipart requests send the file as "image".
	Image string `json:"image" form:"-"`
}

type createCommentRequest struct {
	Content string `json:"content" form:"content"`
}

// GetFeed handles GET /api/posts
func (s *Server) GetFeed(c *fiber.Ctx) error {
	posts, err := s.postService.ListFeedPage(c.UserContext(), currentUserID(c), parsePagination(c))
	return respond(c, fiber.StatusOK, "posts", models.From(posts, err))
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("id"), currentUserID(c))
	return respond(c, fiber.StatusOK, "post", models.From(post, err))
}

// CreatePost handles POST /api/posts with either a JSON body carrying a
// base64 data URL or a multipart form with an "image" file.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	image, err := s.imageFromRequest(c, req.Image)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: currentUserID(c),
		Content:  req.Content,
		Image:    image,
	})
	return respond(c, fiber.StatusCreated, "post", models.From(post, err))
}

func (s *Server) imageFromRequest(c *fiber.Ctx, dataURL string) ([]byte, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("image")
		if err != nil {
			// The image part is optional.
			return nil, nil
		}
		if fh.Size > s.config.MediaMaxUploadBytes() {
			return nil, models.NewMediaUploadError(media.ErrTooLarge)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, models.NewMediaUploadError(err)
		}
		defer func() { _ = f.Close() }()
		data, err := io.ReadAll(io.LimitReader(f, s.config.MediaMaxUploadBytes()+1))
		if err != nil {
			return nil, models.NewMediaUploadError(err)
		}
		return data, nil
	}

	if strings.TrimSpace(dataURL) == "" {
		return nil, nil
	}
	data, err := media.DecodeDataURL(dataURL)
	if err != nil {
		return nil, models.NewMediaUploadError(err)
	}
	return data, nil
}

// ToggleLike handles POST /api/posts/:id/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	result, err := s.postService.ToggleLike(c.UserContext(), currentUserID(c), c.Params("id"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "liked": result.Liked, "post": result.Post})
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	comment, err := s.postService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:  currentUserID(c),
		PostID:  c.Params("id"),
		Content: req.Content,
	})
	return respond(c, fiber.StatusCreated, "comment", models.From(comment, err))
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	return respondOK(c, s.postService.DeletePost(c.UserContext(), currentUserID(c), c.Params("id")))
}
