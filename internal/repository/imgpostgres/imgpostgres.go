package imgpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/UnendingLoop/PostImageIntake/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

// Create inserts one record and fills CreatedAt assigned by the DB
func (p PostgresRepo) Create(ctx context.Context, n *model.StoredImage) error {
	query := `INSERT INTO post_images (image_uid, file_path, stored_filename, original_filename, file_size, content_type)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING created_at`

	var created sql.NullTime
	if err := p.DB.QueryRowContext(ctx, query,
		n.UID,
		n.FilePath,
		n.StoredFilename,
		n.OriginalFilename,
		n.FileSize,
		n.ContentType).Scan(&created); err != nil {
		return err
	}
	if created.Valid {
		t := created.Time.UTC()
		n.CreatedAt = &t
	}
	return nil
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.StoredImage, error) {
	query := `SELECT image_uid, file_path, stored_filename, original_filename, file_size, content_type, created_at 
	FROM post_images 
	WHERE image_uid = $1`
	var image model.StoredImage

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&image.UID,
		&image.FilePath,
		&image.StoredFilename,
		&image.OriginalFilename,
		&image.FileSize,
		&image.ContentType,
		&image.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrImageNotFound
		default:
			return nil, err // 500
		}
	}
	return &image, nil
}

// GetList expects req.Sort and req.Order already normalized to a column name and ASC/DESC
func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.StoredImage, error) {
	query := fmt.Sprintf(`SELECT image_uid, file_path, stored_filename, original_filename, file_size, content_type, created_at 
	FROM post_images
	ORDER BY %s %s, image_uid %s
	LIMIT $1 
	OFFSET $2`, req.Sort, req.Order, req.Order) // image_uid - тайбрейкер, чтобы страницы не пересекались на одинаковых значениях

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	images := make([]model.StoredImage, 0, req.Limit)
	for rows.Next() {
		var image model.StoredImage
		if err := rows.Scan(&image.UID,
			&image.FilePath,
			&image.StoredFilename,
			&image.OriginalFilename,
			&image.FileSize,
			&image.ContentType,
			&image.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, image)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return images, nil
}
