package localstorage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) (*LocalImageStorage, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStorage(root)
	require.NoError(t, err)

	return s, root
}

func TestLocalStorage_PutGet_RoundTrip(t *testing.T) {
	s, root := newStorage(t)
	ctx := context.Background()
	payload := []byte("\x89PNG-some-bytes")

	path, err := s.Put(ctx, "abc.png", int64(len(payload)), "image/png", bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "abc.png"), path)

	rc, _, err := s.Get(ctx, path)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestLocalStorage_Put_WriteOnce(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "same.png", 1, "", bytes.NewReader([]byte("a")))
	require.NoError(t, err)

	_, err = s.Put(ctx, "same.png", 1, "", bytes.NewReader([]byte("b")))
	require.ErrorIs(t, err, os.ErrExist)
}

func TestLocalStorage_Put_NilReader(t *testing.T) {
	s, _ := newStorage(t)
	_, err := s.Put(context.Background(), "x.png", 0, "", nil)
	require.Error(t, err)
}

func TestLocalStorage_OutsideRoot(t *testing.T) {
	s, root := newStorage(t)
	ctx := context.Background()

	tests := []string{
		"../escape.png",
		filepath.Join(root, "..", "escape.png"),
		filepath.Join(root, "nested", "file.png"),
		"/etc/passwd",
	}

	for _, p := range tests {
		t.Run(p, func(t *testing.T) {
			_, _, err := s.Get(ctx, p)
			require.ErrorIs(t, err, ErrOutsideRoot)
			require.ErrorIs(t, s.Delete(ctx, p), ErrOutsideRoot)
		})
	}

	_, err := s.Put(ctx, "../escape.png", 1, "", bytes.NewReader([]byte("x")))
	require.ErrorIs(t, err, ErrOutsideRoot)
}

func TestLocalStorage_Delete(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	path, err := s.Put(ctx, "gone.png", 1, "", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, path))
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	// повторное удаление не ошибка
	require.NoError(t, s.Delete(ctx, path))
}
