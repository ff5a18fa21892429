package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Token: "test-token", Timeout: 5 * time.Second})
}

func TestParseMediaType(t *testing.T) {
	assert.Equal(t, MediaTypeImage, ParseMediaType("image/jpeg"))
	assert.Equal(t, MediaTypeImage, ParseMediaType("image/webp"))
	assert.Equal(t, MediaTypeVideo, ParseMediaType("video/mp4"))
	assert.Equal(t, MediaTypeUnknown, ParseMediaType("application/pdf"))
	assert.Equal(t, MediaTypeUnknown, ParseMediaType(""))
}

func TestGetPresignedURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/media/presign", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"upload_url":"https://storage/put","public_url":"https://cdn/video.mp4"}}`))
	})

	res := client.GetPresignedURL(context.Background(), PresignRequest{
		Filename:    "video.mp4",
		ContentType: "video/mp4",
		FileSize:    1024,
	})

	require.True(t, res.OK)
	require.NotNil(t, res.Data)
	assert.Equal(t, "https://storage/put", res.Data.UploadURL)
	assert.Equal(t, "https://cdn/video.mp4", res.Data.PublicURL)
}

func TestUploadMediaFile(t *testing.T) {
	t.Run("sends file, alt and thumbnail parts", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(32<<20))

			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			file.Close()
			assert.Equal(t, "photo.jpg", header.Filename)
			assert.Equal(t, "alt text", r.FormValue("alt"))

			thumb, thumbHeader, err := r.FormFile("thumbnail")
			require.NoError(t, err)
			thumb.Close()
			assert.Equal(t, "photo_thumb.jpg", thumbHeader.Filename)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true,"data":{"id":42,"url":"https://cdn/photo.jpg","media_type":"image","alt":"alt text"}}`))
		})

		res := client.UploadMediaFile(context.Background(), MediaUploadRequest{
			File:      FilePart{Name: "photo.jpg", ContentType: "image/jpeg", Data: []byte("jpegdata")},
			Alt:       "alt text",
			Thumbnail: &FilePart{Name: "photo_thumb.jpg", ContentType: "image/jpeg", Data: []byte("thumbdata")},
		})

		require.True(t, res.OK)
		require.NotNil(t, res.Data)
		assert.Equal(t, int64(42), res.Data.ID)
		assert.Equal(t, MediaTypeImage, res.Data.MediaType)
	})

	t.Run("surfaces backend error message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"success":false,"error":{"code":"INVALID_FILE","message":"unsupported format"}}`))
		})

		res := client.UploadMediaFile(context.Background(), MediaUploadRequest{
			File: FilePart{Name: "file.bin", Data: []byte("data")},
		})

		require.False(t, res.OK)
		assert.Nil(t, res.Data)
		assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
		assert.Equal(t, "unsupported format", res.Message)
	})

	t.Run("unreachable backend fails without panic", func(t *testing.T) {
		client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

		res := client.UploadMediaFile(context.Background(), MediaUploadRequest{
			File: FilePart{Name: "file.jpg", Data: []byte("data")},
		})

		require.False(t, res.OK)
		assert.Contains(t, res.Message, "backend unreachable")
	})
}

func TestConfirmPresignedUpload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "/media/confirm", r.URL.Path)
		assert.Equal(t, "https://cdn/video.mp4", r.FormValue("video"))
		assert.Equal(t, "my clip", r.FormValue("alt"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"id":7,"url":"https://cdn/video.mp4","media_type":"video","alt":"my clip"}}`))
	})

	res := client.ConfirmPresignedUpload(context.Background(), ConfirmRequest{
		VideoURL: "https://cdn/video.mp4",
		Alt:      "my clip",
	})

	require.True(t, res.OK)
	assert.Equal(t, int64(7), res.Data.ID)
	assert.Equal(t, MediaTypeVideo, res.Data.MediaType)
}

func TestGetMediaList(t *testing.T) {
	t.Run("returns full list", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/media", r.URL.Path)
			assert.Empty(t, r.URL.RawQuery)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true,"data":[{"id":1,"alt":"one"},{"id":2,"alt":"two"}]}`))
		})

		res := client.GetMediaList(context.Background())

		require.True(t, res.OK)
		require.Len(t, *res.Data, 2)
		assert.Equal(t, "one", (*res.Data)[0].Alt)
	})

	t.Run("null data is a failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true,"data":null}`))
		})

		res := client.GetMediaList(context.Background())
		require.False(t, res.OK)
	})
}

func TestUpdateMediaThumbnail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/media/42/thumbnail", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(32<<20))

		thumb, _, err := r.FormFile("thumbnail")
		require.NoError(t, err)
		thumb.Close()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"thumbnail_url":"https://cdn/new_thumb.jpg"}}`))
	})

	res := client.UpdateMediaThumbnail(context.Background(), 42, FilePart{
		Name: "new_thumb.jpg",
		Data: []byte("thumbdata"),
	})

	require.True(t, res.OK)
	assert.Equal(t, "https://cdn/new_thumb.jpg", res.Data.ThumbnailURL)
}

func TestPutFile(t *testing.T) {
	t.Run("sets content type and succeeds on 2xx", func(t *testing.T) {
		var gotContentType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			gotContentType = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client := NewClient(Config{BaseURL: "http://unused", Timeout: time.Second})
		err := client.PutFile(context.Background(), srv.URL, []byte("videodata"), "video/mp4")

		require.NoError(t, err)
		assert.Equal(t, "video/mp4", gotContentType)
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		client := NewClient(Config{BaseURL: "http://unused", Timeout: time.Second})
		err := client.PutFile(context.Background(), srv.URL, []byte("videodata"), "video/mp4")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage transfer failed")
	})
}
