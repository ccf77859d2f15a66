package handler

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"realtime-canvas/internal/auth"
	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/collab"
	"realtime-canvas/internal/repository"
	"realtime-canvas/internal/storage"
)

// ImageHandler image upload and download
type ImageHandler struct {
	images  *collab.ImageHandler
	repo    *repository.ImageRepository
	s3      *storage.S3Service
	maxSize int
}

// NewImageHandler creates an ImageHandler. A nil s3 keeps bytes inline.
func NewImageHandler(coord *collab.Coordinator, repo *repository.ImageRepository, s3 *storage.S3Service, maxSize int) *ImageHandler {
	return &ImageHandler{images: coord.Images(), repo: repo, s3: s3, maxSize: maxSize}
}

// UploadResponse upload reply
type UploadResponse struct {
	Success  bool   `json:"success"`
	NodeID   string `json:"nodeId"`
	FileName string `json:"fileName"`
}

// Upload stores a multipart image and places it on the canvas
func (h *ImageHandler) Upload(c *fiber.Ctx) error {
	roomID := c.FormValue("roomId")
	projectID := c.FormValue("projectId")
	userID := c.FormValue("userId")
	if authUser := auth.UserID(c); authUser != "" {
		userID = authUser
	}
	if roomID == "" || projectID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "roomId and projectId are required",
		})
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "image file is required",
		})
	}
	if h.maxSize > 0 && file.Size > int64(h.maxSize) {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "image is too large",
		})
	}
	mimeType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
			"error": "only image files are allowed",
		})
	}

	f, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to read image",
		})
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to read image",
		})
	}

	img := canvas.ImageRef{
		Base: canvas.Base{
			RoomID:    roomID,
			ProjectID: projectID,
			OwnerID:   userID,
		},
		FileName: file.Filename,
		MimeType: mimeType,
		Storage:  canvas.ImageInline,
	}
	if err := placementFromForm(c, &img.Base); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// inline and stored are exclusive: the row keeps either bytes or a key
	inline := data
	if h.s3 != nil {
		key := h.s3.ObjectKey(roomID, projectID, uuid.NewString(), file.Filename)
		if err := h.s3.Upload(c.UserContext(), key, mimeType, data); err != nil {
			log.Error().Err(err).Str("module", "handler.image").Str("room", roomID).Msg("s3 upload failed")
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "failed to store image",
			})
		}
		img.Storage = canvas.ImageStored
		img.FilePath = key
		inline = nil
	}

	registered, err := h.images.Register(c.UserContext(), img, inline)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	log.Info().
		Str("module", "handler.image").
		Str("room", roomID).
		Str("project", projectID).
		Str("node", registered.NodeID).
		Str("storage", string(registered.Storage)).
		Int("bytes", len(data)).
		Msg("image uploaded")

	return c.Status(fiber.StatusCreated).JSON(UploadResponse{
		Success:  true,
		NodeID:   registered.NodeID,
		FileName: registered.FileName,
	})
}

// placementFromForm reads the optional position and size JSON fields.
func placementFromForm(c *fiber.Ctx, b *canvas.Base) error {
	if raw := c.FormValue("position"); raw != "" {
		var p canvas.Point
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return errors.New("invalid position")
		}
		b.Position = p
	}
	if raw := c.FormValue("size"); raw != "" {
		var s canvas.Size
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return errors.New("invalid size")
		}
		b.Size = s
	}
	return nil
}

// Download serves the bytes of an inline image
func (h *ImageHandler) Download(c *fiber.Ctx) error {
	key := canvas.Key{
		RoomID:    c.Params("roomId"),
		ProjectID: c.Params("projectId"),
		NodeID:    c.Params("nodeId"),
	}

	data, mimeType, err := h.repo.LoadData(c.UserContext(), key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "image not found",
			})
		}
		log.Error().Err(err).Str("module", "handler.image").Str("node", key.NodeID).Msg("load image failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load image",
		})
	}

	c.Set(fiber.HeaderContentType, mimeType)
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	return c.Send(data)
}
