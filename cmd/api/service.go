package main

import (
	"context"
	"io"

	"github.com/UnendingLoop/PostImageIntake/internal/model"
	"github.com/wb-go/wbf/retry"
)

type ImageAPIService interface {
	Upload(ctx context.Context, req *model.UploadRequest) (*model.StoredImage, error)
	Get(ctx context.Context, id string) (*model.StoredImage, error)
	LoadFile(ctx context.Context, id string) (io.ReadCloser, string, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.StoredImage, error)
}

// NoopPublisher drops upload events when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(context.Context, retry.Strategy, []byte, []byte) error {
	return nil
}
