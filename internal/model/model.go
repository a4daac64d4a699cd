// Package model provides data-structs for internal app-usage
package model

import (
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

type ColorMode string

const (
	ColorGray  ColorMode = "grayscale"
	ColorFull  ColorMode = "color"
	ColorOther ColorMode = "other"
)

//---------------------

// UploadRequest lives only for the duration of one Upload call
type UploadRequest struct {
	ContentType string
	Filename    string
	Body        io.Reader
}

// ImageMetadata is derived from the decoded image and is never persisted on its own
type ImageMetadata struct {
	Width  int
	Height int
	Mode   ColorMode
	Size   int64
	Format string
}

type StoredImage struct {
	UID              uuid.UUID  `json:"id"`
	FilePath         string     `json:"file_path"`
	StoredFilename   string     `json:"stored_filename"`
	OriginalFilename string     `json:"original_filename"`
	FileSize         int64      `json:"file_size"`
	ContentType      string     `json:"content_type"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

// Region - bounding box of one detected face, X/Y point to the top-left corner
type Region struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Side  int     `json:"side"`
	Score float32 `json:"score"`
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	BySize    = "size"
	ByName    = "name"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// ------------------

var (
	ErrCommon500         error = errors.New("something went wrong. Try again later")   // 500
	ErrUnsupportedType   error = errors.New("only image files can be uploaded")        // 415
	ErrPayloadTooLarge   error = errors.New("file size must not exceed 5MB")           // 413
	ErrDecodeFailed      error = errors.New("file could not be decoded as an image")   // 400
	ErrImageTooSmall     error = errors.New("width and height must be at least 100px") // 400
	ErrNotColor          error = errors.New("image must be a color image")             // 400
	ErrNoSubjectDetected error = errors.New("image must contain a person")             // 400
	ErrMissingFile       error = errors.New("multipart field \"file\" is required")    // 400
	ErrIncorrectQuery    error = errors.New("incorrect query parameters")              // 400
	ErrIncorrectID       error = errors.New("incorrect image UUID")                    // 400
	ErrImageNotFound     error = errors.New("specified image UUID doesn't exist")      // 404
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrUnsupportedType, "UnsupportedType"},
	{ErrPayloadTooLarge, "PayloadTooLarge"},
	{ErrDecodeFailed, "DecodeFailed"},
	{ErrImageTooSmall, "ImageTooSmall"},
	{ErrNotColor, "NotColor"},
	{ErrNoSubjectDetected, "NoSubjectDetected"},
	{ErrMissingFile, "MissingFile"},
	{ErrIncorrectQuery, "IncorrectQuery"},
	{ErrIncorrectID, "IncorrectID"},
	{ErrImageNotFound, "ImageNotFound"},
}

// KindOf returns the rejection kind of err; anything unknown is an InternalError
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "InternalError"
}

//--------------------

const (
	MaxUploadSize int64 = 5 * 1024 * 1024
	MinSide             = 100
	MaxPixels     int64 = 40_000_000 // потолок по заявленным размерам, растр крупнее не декодируем
)

// GetImageFileExt - fallback extension by decoded format name when the original filename has none
var GetImageFileExt = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
	"bmp":  ".bmp",
	"tiff": ".tiff",
}
