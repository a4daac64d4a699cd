package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/UnendingLoop/PostImageIntake/internal/model"
	"github.com/UnendingLoop/PostImageIntake/internal/service"
	"github.com/UnendingLoop/PostImageIntake/internal/storage/localstorage"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"
)

func TestImageHandler_Ping(t *testing.T) {
	r := gin.New()
	h := NewImageHandler(nil)

	r.GET("/ping", func(c *gin.Context) {
		h.SimplePinger((*ginext.Context)(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "pong", body["message"])
}

type filePart struct {
	field    string
	filename string
	ctype    string
	content  []byte
}

func newUploadRequest(t *testing.T, fields map[string]string, file *filePart) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.filename))
		hdr.Set("Content-Type", file.ctype)
		fw, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = fw.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/post/upload/image", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serveUpload(h *ImageHandler, req *http.Request) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/post/upload/image", func(c *gin.Context) {
		h.Upload((*ginext.Context)(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestImageHandler_Upload(t *testing.T) {
	pngPart := &filePart{field: FileField, filename: "me.png", ctype: "image/png", content: []byte("img")}

	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		mock       *mockImageService
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{
			name: "success",
			req: func(t *testing.T) *http.Request {
				return newUploadRequest(t, nil, pngPart)
			},
			mock: &mockImageService{
				uploadFn: func(ctx context.Context, req *model.UploadRequest) (*model.StoredImage, error) {
					require.Equal(t, "image/png", req.ContentType)
					require.Equal(t, "me.png", req.Filename)
					data, err := io.ReadAll(req.Body)
					require.NoError(t, err)
					require.Equal(t, []byte("img"), data)
					return &model.StoredImage{UID: uuid.New(), FileSize: 3}, nil
				},
			},
			wantStatus: 201,
		},
		{
			name: "file after other fields",
			req: func(t *testing.T) *http.Request {
				return newUploadRequest(t, map[string]string{"title": "hello"}, pngPart)
			},
			mock: &mockImageService{
				uploadFn: func(ctx context.Context, req *model.UploadRequest) (*model.StoredImage, error) {
					return &model.StoredImage{UID: uuid.New()}, nil
				},
			},
			wantStatus: 201,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/post/upload/image", strings.NewReader(`{"file":"x"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			mock:       &mockImageService{},
			wantStatus: 400,
			wantKind:   "MissingFile",
		},
		{
			name: "missing file",
			req: func(t *testing.T) *http.Request {
				return newUploadRequest(t, map[string]string{"title": "hello"}, nil)
			},
			mock:       &mockImageService{},
			wantStatus: 400,
			wantKind:   "MissingFile",
		},
		{
			name: "file under a wrong field name",
			req: func(t *testing.T) *http.Request {
				return newUploadRequest(t, nil, &filePart{field: "image", filename: "me.png", ctype: "image/png", content: []byte("x")})
			},
			mock:       &mockImageService{},
			wantStatus: 400,
			wantKind:   "MissingFile",
		},
		{
			name: "unsupported type",
			req: func(t *testing.T) *http.Request {
				return newUploadRequest(t, nil, &filePart{field: FileField, filename: "cv.pdf", ctype: "application/pdf", content: []byte("%PDF")})
			},
			mock: &mockImageService{
				uploadFn: func(ctx context.Context, req *model.UploadRequest) (*model.StoredImage, error) {
					return nil, fmt.Errorf("%w: declared type %q", model.ErrUnsupportedType, req.ContentType)
				},
			},
			wantStatus: 415,
			wantKind:   "UnsupportedType",
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return newUploadRequest(t, nil, pngPart)
			},
			mock: &mockImageService{
				uploadFn: func(ctx context.Context, req *model.UploadRequest) (*model.StoredImage, error) {
					return nil, model.ErrPayloadTooLarge
				},
			},
			wantStatus: 413,
			wantKind:   "PayloadTooLarge",
		},
		{
			name: "validation rejection keeps detail",
			req: func(t *testing.T) *http.Request {
				return newUploadRequest(t, nil, pngPart)
			},
			mock: &mockImageService{
				uploadFn: func(ctx context.Context, req *model.UploadRequest) (*model.StoredImage, error) {
					return nil, fmt.Errorf("%w: got 99x100", model.ErrImageTooSmall)
				},
			},
			wantStatus: 400,
			wantKind:   "ImageTooSmall",
			wantMsg:    model.ErrImageTooSmall.Error() + ": got 99x100",
		},
		{
			name: "no subject",
			req: func(t *testing.T) *http.Request {
				return newUploadRequest(t, nil, pngPart)
			},
			mock: &mockImageService{
				uploadFn: func(ctx context.Context, req *model.UploadRequest) (*model.StoredImage, error) {
					return nil, model.ErrNoSubjectDetected
				},
			},
			wantStatus: 400,
			wantKind:   "NoSubjectDetected",
		},
		{
			name: "internal error hides detail",
			req: func(t *testing.T) *http.Request {
				return newUploadRequest(t, nil, pngPart)
			},
			mock: &mockImageService{
				uploadFn: func(ctx context.Context, req *model.UploadRequest) (*model.StoredImage, error) {
					return nil, fmt.Errorf("%w: image analysis panicked: runtime error", model.ErrCommon500)
				},
			},
			wantStatus: 500,
			wantKind:   "InternalError",
			wantMsg:    model.ErrCommon500.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveUpload(NewImageHandler(tt.mock), tt.req(t))
			require.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == 201 {
				var body struct {
					Message string            `json:"message"`
					Result  model.StoredImage `json:"result"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				require.Equal(t, "image uploaded", body.Message)
				require.NotEqual(t, uuid.Nil, body.Result.UID)
				return
			}

			body := decodeError(t, w)
			require.Equal(t, tt.wantKind, body["kind"])
			require.NotEmpty(t, body["error"])
			if tt.wantMsg != "" {
				require.Equal(t, tt.wantMsg, body["error"])
			}
		})
	}
}

func TestImageHandler_Upload_BodyLimit(t *testing.T) {
	h := NewImageHandler(&mockImageService{})
	h.maxBody = 64

	req := newUploadRequest(t, map[string]string{"padding": strings.Repeat("x", 1024)}, &filePart{
		field: FileField, filename: "me.png", ctype: "image/png", content: []byte("img"),
	})

	w := serveUpload(h, req)
	require.Equal(t, 413, w.Code)
	require.Equal(t, "PayloadTooLarge", decodeError(t, w)["kind"])
}

type detectorFunc func(img image.Image) ([]model.Region, error)

func (f detectorFunc) Detect(img image.Image) ([]model.Region, error) { return f(img) }

// через настоящий сервис и файловое хранилище
func TestImageHandler_Upload_EndToEnd(t *testing.T) {
	strg, err := localstorage.NewLocalStorage(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	repo := &memRepo{}
	det := detectorFunc(func(img image.Image) ([]model.Region, error) {
		return []model.Region{{Side: 50, Score: 15}}, nil
	})
	svc := service.NewImageService(repo, nil, strg, service.NewAnalyzer(det, 2, 5*time.Second))
	h := NewImageHandler(svc)

	src := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for i := range src.Pix {
		src.Pix[i] = uint8(i)
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, src, imaging.PNG))
	data := buf.Bytes()

	w := serveUpload(h, newUploadRequest(t, nil, &filePart{field: FileField, filename: "selfie.png", ctype: "image/png", content: data}))
	require.Equal(t, 201, w.Code, w.Body.String())

	var body struct {
		Result model.StoredImage `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, int64(len(data)), body.Result.FileSize)
	require.Equal(t, body.Result.UID.String()+".png", body.Result.StoredFilename)

	// скачиваем обратно
	r := gin.New()
	r.GET("/post/images/:id/file", func(c *gin.Context) {
		h.LoadFile((*ginext.Context)(c))
	})
	dl := httptest.NewRecorder()
	r.ServeHTTP(dl, httptest.NewRequest(http.MethodGet, "/post/images/"+body.Result.UID.String()+"/file", nil))
	require.Equal(t, 200, dl.Code)
	require.Equal(t, "image/png", dl.Header().Get("Content-Type"))
	require.Equal(t, data, dl.Body.Bytes())

	// тип не картинка - отказ без записи
	w = serveUpload(h, newUploadRequest(t, nil, &filePart{field: FileField, filename: "notes.txt", ctype: "text/plain", content: []byte("hi")}))
	require.Equal(t, 415, w.Code)
	require.Len(t, repo.rows, 1)

	// ч/б - отказ
	gray := image.NewGray(image.Rect(0, 0, 200, 200))
	buf.Reset()
	require.NoError(t, imaging.Encode(&buf, gray, imaging.PNG))
	w = serveUpload(h, newUploadRequest(t, nil, &filePart{field: FileField, filename: "gray.png", ctype: "image/png", content: buf.Bytes()}))
	require.Equal(t, 400, w.Code)
	require.Equal(t, "NotColor", decodeError(t, w)["kind"])
	require.Len(t, repo.rows, 1)
}

func TestImageHandler_Upload_TruncatedBody(t *testing.T) {
	strg, err := localstorage.NewLocalStorage(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	repo := &memRepo{}
	det := detectorFunc(func(img image.Image) ([]model.Region, error) {
		t.Error("detector must not run on a truncated upload")
		return nil, nil
	})
	h := NewImageHandler(service.NewImageService(repo, nil, strg, service.NewAnalyzer(det, 1, time.Second)))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="me.png"`, FileField))
	hdr.Set("Content-Type", "image/png")
	fw, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte("x"), 4096))
	require.NoError(t, err)
	// закрывающего boundary нет - клиент оборвал отправку

	req := httptest.NewRequest(http.MethodPost, "/post/upload/image", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	res := serveUpload(h, req)
	require.Equal(t, 400, res.Code)
	require.Equal(t, "DecodeFailed", decodeError(t, res)["kind"])
	require.Empty(t, repo.rows)
}

func TestImageHandler_GetAllImages(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		mock       *mockImageService
		wantStatus int
	}{
		{
			name:  "success",
			query: "?page=1&limit=10",
			mock: &mockImageService{
				getListFn: func(ctx context.Context, req *model.ListRequest) ([]model.StoredImage, error) {
					require.Equal(t, 10, req.Limit)
					return []model.StoredImage{{}}, nil
				},
			},
			wantStatus: 200,
		},
		{
			name:       "bad query",
			query:      "?page=abc",
			mock:       &mockImageService{},
			wantStatus: 400,
		},
		{
			name:  "service error",
			query: "",
			mock: &mockImageService{
				getListFn: func(ctx context.Context, req *model.ListRequest) ([]model.StoredImage, error) {
					return nil, model.ErrCommon500
				},
			},
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewImageHandler(tt.mock)

			r.GET("/post/images", func(c *gin.Context) {
				h.GetAllImages((*ginext.Context)(c))
			})

			req := httptest.NewRequest(http.MethodGet, "/post/images"+tt.query, nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)
			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestImageHandler_GetImage(t *testing.T) {
	tests := []struct {
		name       string
		mock       *mockImageService
		wantStatus int
	}{
		{
			name: "success",
			mock: &mockImageService{
				getFn: func(ctx context.Context, id string) (*model.StoredImage, error) {
					return &model.StoredImage{UID: uuid.MustParse(id)}, nil
				},
			},
			wantStatus: 200,
		},
		{
			name: "not found",
			mock: &mockImageService{
				getFn: func(ctx context.Context, id string) (*model.StoredImage, error) {
					return nil, model.ErrImageNotFound
				},
			},
			wantStatus: 404,
		},
		{
			name: "bad id",
			mock: &mockImageService{
				getFn: func(ctx context.Context, id string) (*model.StoredImage, error) {
					return nil, model.ErrIncorrectID
				},
			},
			wantStatus: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewImageHandler(tt.mock)

			r.GET("/post/images/:id", func(c *gin.Context) {
				h.GetImage((*ginext.Context)(c))
			})

			req := httptest.NewRequest(http.MethodGet, "/post/images/"+uuid.NewString(), nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)
			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestImageHandler_LoadFile(t *testing.T) {
	tests := []struct {
		name       string
		mock       *mockImageService
		wantStatus int
	}{
		{
			name: "success",
			mock: &mockImageService{
				loadFileFn: func(ctx context.Context, id string) (io.ReadCloser, string, error) {
					return io.NopCloser(bytes.NewReader([]byte("ok"))), "image/jpeg", nil
				},
			},
			wantStatus: 200,
		},
		{
			name: "not found",
			mock: &mockImageService{
				loadFileFn: func(ctx context.Context, id string) (io.ReadCloser, string, error) {
					return nil, "", model.ErrImageNotFound
				},
			},
			wantStatus: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewImageHandler(tt.mock)

			r.GET("/post/images/:id/file", func(c *gin.Context) {
				h.LoadFile((*ginext.Context)(c))
			})

			req := httptest.NewRequest(http.MethodGet, "/post/images/123/file", nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)
			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestErrorCodeDefiner(t *testing.T) {
	require.Equal(t, 415, errorCodeDefiner(model.ErrUnsupportedType))
	require.Equal(t, 413, errorCodeDefiner(model.ErrPayloadTooLarge))
	require.Equal(t, 400, errorCodeDefiner(model.ErrDecodeFailed))
	require.Equal(t, 400, errorCodeDefiner(fmt.Errorf("%w: x", model.ErrNotColor)))
	require.Equal(t, 404, errorCodeDefiner(model.ErrImageNotFound))
	require.Equal(t, 500, errorCodeDefiner(fmt.Errorf("%w: boom", model.ErrCommon500)))
	require.Equal(t, 500, errorCodeDefiner(io.ErrUnexpectedEOF))
}

// memRepo - in-memory metadata store for end-to-end tests
type memRepo struct {
	rows []model.StoredImage
}

func (m *memRepo) Create(_ context.Context, img *model.StoredImage) error {
	now := time.Now().UTC()
	img.CreatedAt = &now
	m.rows = append(m.rows, *img)
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (*model.StoredImage, error) {
	for _, r := range m.rows {
		if r.UID.String() == id {
			return &r, nil
		}
	}
	return nil, model.ErrImageNotFound
}

func (m *memRepo) GetList(_ context.Context, _ *model.ListRequest) ([]model.StoredImage, error) {
	return m.rows, nil
}
