package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/PostImageIntake/internal/model"
	"github.com/gin-gonic/gin"
)

type mockImageService struct {
	uploadFn   func(ctx context.Context, req *model.UploadRequest) (*model.StoredImage, error)
	getFn      func(ctx context.Context, id string) (*model.StoredImage, error)
	loadFileFn func(ctx context.Context, id string) (io.ReadCloser, string, error)
	getListFn  func(ctx context.Context, req *model.ListRequest) ([]model.StoredImage, error)
}

func (m *mockImageService) Upload(ctx context.Context, req *model.UploadRequest) (*model.StoredImage, error) {
	return m.uploadFn(ctx, req)
}

func (m *mockImageService) Get(ctx context.Context, id string) (*model.StoredImage, error) {
	return m.getFn(ctx, id)
}

func (m *mockImageService) LoadFile(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return m.loadFileFn(ctx, id)
}

func (m *mockImageService) GetList(ctx context.Context, req *model.ListRequest) ([]model.StoredImage, error) {
	return m.getListFn(ctx, req)
}

func init() {
	gin.SetMode(gin.TestMode)
}
