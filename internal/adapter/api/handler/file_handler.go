package handler

import (
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/labstack/echo/v4"

	"sitechat/internal/adapter/api/middleware"
	"sitechat/internal/domain/entity"
	"sitechat/internal/usecase"
	"sitechat/pkg/errors"
	"sitechat/pkg/logger"
	"sitechat/pkg/response"
)

const (
	maxFileSize   = 25 * 1024 * 1024
	maxUploadSize = 4 * maxFileSize
)

type FileHandler struct {
	messageUseCase *usecase.MessageUseCase
}

func NewFileHandler(messageUseCase *usecase.MessageUseCase) *FileHandler {
	return &FileHandler{
		messageUseCase: messageUseCase,
	}
}

// UploadFiles stores attachments ahead of a send and returns their URLs.
// An other_user_id form field targets the direct thread with that user.
func (h *FileHandler) UploadFiles(c echo.Context) error {
	user := middleware.CurrentUser(c)

	scope := entity.GroupScope(c.Param("siteId"))
	if otherID := c.FormValue("other_user_id"); otherID != "" {
		scope = entity.DirectScope(c.Param("siteId"), user.ID, otherID)
	}

	media, closeAll, err := readMedia(c)
	if err != nil {
		return response.Error(c, err)
	}
	defer closeAll()

	urls, err := h.messageUseCase.UploadAttachments(c.Request().Context(), user, scope, media)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]interface{}{
		"urls": urls,
	})
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// readMedia opens every file of the "files" and "file" form fields in order.
// The returned func closes them all.
func readMedia(c echo.Context) ([]entity.LocalMedia, func(), error) {
	if err := c.Request().ParseMultipartForm(maxUploadSize); err != nil {
		return nil, func() {}, errors.BadRequest("Invalid multipart form", err)
	}
	form := c.Request().MultipartForm

	var headers []*multipart.FileHeader
	headers = append(headers, form.File["files"]...)
	headers = append(headers, form.File["file"]...)

	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	media := make([]entity.LocalMedia, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxFileSize {
			closeAll()
			return nil, func() {}, errors.BadRequest(fmt.Sprintf("File %s exceeds %d MB", fh.Filename, maxFileSize/(1024*1024)), nil)
		}

		src, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, errors.BadRequest("Failed to open uploaded file", err)
		}
		opened = append(opened, src)

		logger.Debug("Received file: %s, size: %d bytes, type: %s", fh.Filename, fh.Size, fh.Header.Get("Content-Type"))
		media = append(media, entity.LocalMedia{
			Kind:     mediaKind(fh.Header.Get("Content-Type")),
			Filename: fh.Filename,
			Reader:   src,
		})
	}

	return media, closeAll, nil
}

func mediaKind(contentType string) entity.MessageType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return entity.MessageTypeImage
	case strings.HasPrefix(contentType, "video/"):
		return entity.MessageTypeVideo
	default:
		return entity.MessageTypeFile
	}
}
