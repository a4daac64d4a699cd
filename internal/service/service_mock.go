package service

import (
	"context"
	"image"
	"io"

	"github.com/UnendingLoop/PostImageIntake/internal/model"
	"github.com/wb-go/wbf/retry"
)

// MOCK RESPOSITORY

type mockRepo struct {
	createFn  func(ctx context.Context, img *model.StoredImage) error
	getFn     func(ctx context.Context, id string) (*model.StoredImage, error)
	getListFn func(ctx context.Context, req *model.ListRequest) ([]model.StoredImage, error)
}

func (m *mockRepo) Create(ctx context.Context, img *model.StoredImage) error {
	return m.createFn(ctx, img)
}

func (m *mockRepo) Get(ctx context.Context, id string) (*model.StoredImage, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.StoredImage, error) {
	return m.getListFn(ctx, req)
}

// MOCK STORAGE

type mockStorage struct {
	putFn    func(ctx context.Context, name string, size int64, ct string, r io.Reader) (string, error)
	getFn    func(ctx context.Context, path string) (io.ReadCloser, string, error)
	deleteFn func(ctx context.Context, path string) error
}

func (m *mockStorage) Put(ctx context.Context, name string, size int64, ct string, r io.Reader) (string, error) {
	return m.putFn(ctx, name, size, ct, r)
}

func (m *mockStorage) Get(ctx context.Context, path string) (io.ReadCloser, string, error) {
	return m.getFn(ctx, path)
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	return m.deleteFn(ctx, path)
}

// MOCK PUBLISHER

type mockPublisher struct {
	sendFn func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
	return m.sendFn(ctx, s, key, v)
}

// MOCK DETECTOR

type mockDetector struct {
	detectFn func(img image.Image) ([]model.Region, error)
}

func (m *mockDetector) Detect(img image.Image) ([]model.Region, error) {
	return m.detectFn(img)
}

func oneFace() *mockDetector {
	return &mockDetector{
		detectFn: func(img image.Image) ([]model.Region, error) {
			return []model.Region{{X: 10, Y: 10, Side: 40, Score: 20}}, nil
		},
	}
}

func noFaces() *mockDetector {
	return &mockDetector{
		detectFn: func(img image.Image) ([]model.Region, error) {
			return nil, nil
		},
	}
}
