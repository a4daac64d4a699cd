package transport

import (
	"errors"
	"io"
	"log"

	"github.com/UnendingLoop/PostImageIntake/internal/model"
	"github.com/wb-go/wbf/ginext"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrUnsupportedType):
		return 415
	case errors.Is(err, model.ErrPayloadTooLarge):
		return 413
	case errors.Is(err, model.ErrImageNotFound):
		return 404
	case errors.Is(err, model.ErrDecodeFailed),
		errors.Is(err, model.ErrImageTooSmall),
		errors.Is(err, model.ErrNotColor),
		errors.Is(err, model.ErrNoSubjectDetected),
		errors.Is(err, model.ErrMissingFile),
		errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID):
		return 400
	default:
		return 500
	}
}

// respondError never leaks internal details: 5xx always carries the generic message
func respondError(ctx *ginext.Context, err error) {
	code := errorCodeDefiner(err)
	msg := err.Error()
	if code >= 500 {
		msg = model.ErrCommon500.Error()
	}
	ctx.JSON(code, map[string]string{"error": msg, "kind": model.KindOf(err)})
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Handler failed to close fileflow:", err)
	}
}
