// Package storage picks and connects the content store for uploaded images
package storage

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/UnendingLoop/PostImageIntake/internal/storage/localstorage"
	"github.com/UnendingLoop/PostImageIntake/internal/storage/miniostorage"
	"github.com/wb-go/wbf/config"
)

const (
	BackendLocal = "local"
	BackendMinio = "minio"
)

// ContentStore - write-once-by-name blob sink
type ContentStore interface {
	Put(ctx context.Context, name string, size int64, contentType string, r io.Reader) (string, error)
	Get(ctx context.Context, path string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, path string) error
}

// NewImgStorage connects the backend named by STORAGE_BACKEND; UPLOAD_ROOT is the fixed root for both
func NewImgStorage(cfg *config.Config, delay time.Duration) ContentStore {
	root := cfg.GetString("UPLOAD_ROOT")
	if root == "" {
		root = "uploads"
	}

	switch backend := cfg.GetString("STORAGE_BACKEND"); backend {
	case BackendMinio:
		return connectMinio(cfg, root, delay)
	case "", BackendLocal:
		strg, err := localstorage.NewLocalStorage(root)
		if err != nil {
			log.Fatalf("Failed to init local IMG-storage: %v", err)
		}
		log.Printf("Using local IMG-storage at %q", root)
		return strg
	default:
		log.Fatalf("Unknown STORAGE_BACKEND %q, expected %q or %q", backend, BackendLocal, BackendMinio)
		return nil
	}
}

func connectMinio(cfg *config.Config, root string, delay time.Duration) *miniostorage.MinioImageStorage {
	for {
		log.Println("Connecting to IMG-storage...")
		client, err := miniostorage.NewMinioClient(cfg, root)
		if err != nil {
			log.Printf("Failed to init connection to IMG-storage: %v\nNext retry in %v...", err, delay)
			time.Sleep(delay)
			continue
		}
		log.Println("Successfully connected IMG-storage!")
		return client
	}
}
