// Package service provides business-logic for the app: the image intake pipeline and lookups of stored images
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/UnendingLoop/PostImageIntake/internal/model"
	"github.com/UnendingLoop/PostImageIntake/internal/mwlogger"
	"github.com/UnendingLoop/PostImageIntake/internal/repository"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
)

type ImageService struct {
	repo      repository.ImageRepo
	publisher EventPublisher
	storage   ImageStorage
	analyzer  *Analyzer
	maxSize   int64
}

func NewImageService(imgRepo repository.ImageRepo, pub EventPublisher, strg ImageStorage, an *Analyzer) *ImageService {
	return &ImageService{
		repo:      imgRepo,
		publisher: pub,
		storage:   strg,
		analyzer:  an,
		maxSize:   model.MaxUploadSize,
	}
}

// EventPublisher - контракт для отправки событий о загруженных картинках
type EventPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// ImageStorage - контракт для работы с хранилищем
type ImageStorage interface {
	Delete(ctx context.Context, path string) error
	Get(ctx context.Context, path string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, name string, size int64, contentType string, r io.Reader) (string, error)
}

// Стратегия ретрая отправки события - запись уже закоммичена, поэтому долго не ждем
var retryStrategy = retry.Strategy{
	Attempts: 3,
	Delay:    200 * time.Millisecond,
	Backoff:  2,
}

// Upload runs every validation gate in order and persists the image only when all of them pass
func (c ImageService) Upload(ctx context.Context, req *model.UploadRequest) (*model.StoredImage, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	// 1 - заявленный тип, тело еще не читали
	if !isImageType(req.ContentType) {
		return nil, fmt.Errorf("%w: declared type %q", model.ErrUnsupportedType, req.ContentType)
	}

	// 2 - потолок по размеру
	data, err := readCapped(req.Body, c.maxSize)
	if err != nil {
		if !errors.Is(err, model.ErrPayloadTooLarge) {
			logger.Error().Err(err).Msg("Failed to read upload body")
		}
		return nil, err
	}

	// 3-6 - декодирование, размеры, цвет, лицо
	meta, err := c.analyzer.Analyze(ctx, data)
	if err != nil {
		if errors.Is(err, model.ErrCommon500) {
			logger.Error().Err(err).Str("filename", req.Filename).Msg("Image analysis failed")
		}
		return nil, err
	}

	// 7 - сохранение
	return c.persist(ctx, req.Filename, data, meta)
}

func (c ImageService) persist(ctx context.Context, filename string, data []byte, meta *model.ImageMetadata) (*model.StoredImage, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	uid := uuid.New()
	stored := uid.String() + fileExtension(filename, meta.Format)
	cType := mimetype.Detect(data).String()

	path, err := c.storage.Put(ctx, stored, int64(len(data)), cType, bytes.NewReader(data))
	if err != nil {
		logger.Error().Err(err).Str("stored_filename", stored).Msg("Failed to save image in Storage")
		return nil, model.ErrCommon500
	}

	newImage := &model.StoredImage{
		UID:              uid,
		FilePath:         path,
		StoredFilename:   stored,
		OriginalFilename: filename,
		FileSize:         int64(len(data)),
		ContentType:      cType,
	}

	if err := c.repo.Create(ctx, newImage); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Failed to create image record in DB, removing stored file")
		// откатываем файл: без записи в базе он никому не виден
		if dErr := c.storage.Delete(context.WithoutCancel(ctx), path); dErr != nil {
			logger.Error().Err(dErr).Str("path", path).Msg("INCONSISTENCY: file left in Storage without DB record")
		}
		return nil, model.ErrCommon500
	}

	c.notifyUploaded(ctx, newImage)

	return newImage, nil
}

func (c ImageService) notifyUploaded(ctx context.Context, img *model.StoredImage) {
	if c.publisher == nil {
		return
	}
	logger := mwlogger.LoggerFromContext(ctx)

	payload, err := json.Marshal(img)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal upload event")
		return
	}
	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(img.UID.String()), payload); err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish upload event for image %q", img.UID))
	}
}

func (c ImageService) GetList(ctx context.Context, req *model.ListRequest) ([]model.StoredImage, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch images list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c ImageService) Get(ctx context.Context, id string) (*model.StoredImage, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrImageNotFound) {
			return nil, err
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch image %q from DB", id))
		return nil, model.ErrCommon500
	}

	return res, nil
}

// LoadFile streams the stored bytes of image id back together with their content type
func (c ImageService) LoadFile(ctx context.Context, id string) (io.ReadCloser, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	res, err := c.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	// достаем из хранилища
	data, cType, err := c.storage.Get(ctx, res.FilePath)
	if err != nil {
		logger.Error().Err(err).Str("path", res.FilePath).Msg(fmt.Sprintf("Failed to fetch image %q from Storage", id))
		return nil, "", model.ErrCommon500
	}
	if cType == "" {
		cType = res.ContentType
	}
	return data, cType, nil
}
