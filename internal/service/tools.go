package service

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/UnendingLoop/PostImageIntake/internal/model"
)

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	// Валидируем поле типа сортировки - в запрос попадают только имена колонок из этого списка
	req.Sort = strings.TrimSpace(strings.ToLower(req.Sort))
	switch {
	case strings.Contains(req.Sort, model.BySize):
		req.Sort = "file_size"
	case strings.Contains(req.Sort, model.ByName):
		req.Sort = "original_filename"
	default:
		req.Sort = "created_at" // по дефолту ставим сортировку по времени создания
	}

	// Валадируем порядок
	req.Order = strings.TrimSpace(strings.ToLower(req.Order))
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	default:
		req.Order = "DESC" // по дефолту ставим сортировку "новое-выше"
	}
}

// isImageType checks the declared media type case-insensitively, parameters are ignored
func isImageType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

// readCapped reads at most limit bytes; one byte more means the payload is over the ceiling
func readCapped(r io.Reader, limit int64) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: empty payload", model.ErrDecodeFailed)
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("%w: request body exceeds %d bytes", model.ErrPayloadTooLarge, tooBig.Limit)
		}
		// клиент оборвал тело, multipart отдает это как ErrUnexpectedEOF
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: upload body is truncated", model.ErrDecodeFailed)
		}
		return nil, fmt.Errorf("%w: failed to read payload: %v", model.ErrCommon500, err)
	}

	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", model.ErrPayloadTooLarge, limit)
	}
	return data, nil
}

// fileExtension takes the suffix of the original filename; a missing or odd suffix falls back to the decoded format
func fileExtension(filename, format string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if isPlainExt(ext) {
		return ext
	}
	if fallback, ok := model.GetImageFileExt[format]; ok {
		return fallback
	}
	return ".img"
}

func isPlainExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 8 || ext[0] != '.' {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
