// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/UnendingLoop/PostImageIntake/internal/model"
	"github.com/wb-go/wbf/ginext"
)

// FileField - единственное поле формы загрузки
const FileField = "file"

// multipart-обвязка и служебные поля поверх самого файла
const formOverhead int64 = 1 << 20

type ImageHandler struct {
	service ImageService
	maxBody int64
}

type ImageService interface {
	Upload(ctx context.Context, req *model.UploadRequest) (*model.StoredImage, error)
	Get(ctx context.Context, id string) (*model.StoredImage, error)
	LoadFile(ctx context.Context, id string) (io.ReadCloser, string, error)          // прям скачать файл
	GetList(ctx context.Context, req *model.ListRequest) ([]model.StoredImage, error) // получить список
}

func NewImageHandler(svc ImageService) *ImageHandler {
	return &ImageHandler{
		service: svc,
		maxBody: model.MaxUploadSize + formOverhead,
	}
}

func (h ImageHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

// Upload streams the multipart body: the part headers of "file" are handed to the service
// before a single byte of the file is read
func (h ImageHandler) Upload(ctx *ginext.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.maxBody)

	mr, err := ctx.Request.MultipartReader()
	if err != nil {
		respondError(ctx, model.ErrMissingFile)
		return
	}

	part, err := nextFilePart(mr)
	if err != nil {
		respondError(ctx, err)
		return
	}
	defer closeFileFlow(part)

	res, err := h.service.Upload(ctx.Request.Context(), &model.UploadRequest{
		ContentType: part.Header.Get("Content-Type"),
		Filename:    part.FileName(),
		Body:        part,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(201, map[string]any{
		"message": "image uploaded",
		"result":  res,
	})
}

func (h ImageHandler) GetAllImages(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		respondError(ctx, model.ErrIncorrectQuery)
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(200, res)
}

func (h ImageHandler) GetImage(ctx *ginext.Context) {
	res, err := h.service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(200, res)
}

func (h ImageHandler) LoadFile(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, cType, err := h.service.LoadFile(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	defer closeFileFlow(res)

	if cType == "" {
		cType = "application/octet-stream"
	}
	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		log.Printf("Failed to write response at byte %d for file id %q: %v", n, id, err)
	}
}

// nextFilePart skips everything up to the "file" part
func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return nil, model.ErrPayloadTooLarge
			}
			return nil, model.ErrMissingFile
		}
		if part.FormName() == FileField && part.FileName() != "" {
			return part, nil
		}
		closeFileFlow(part)
	}
}
