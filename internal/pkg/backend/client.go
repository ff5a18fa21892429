package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 60 * time.Second

// Result is the uniform envelope every backend call resolves to.
// Callers branch on OK plus presence of Data; no error values cross
// this boundary for remote failures.
type Result[T any] struct {
	Data    *T
	Status  int
	OK      bool
	Message string // human-readable failure reason when !OK
}

func failure[T any](status int, message string) Result[T] {
	return Result[T]{Status: status, OK: false, Message: message}
}

// FilePart is an in-memory file attached to a multipart request.
type FilePart struct {
	Name        string
	ContentType string
	Data        []byte
}

// Client talks to the portfolio backend's media API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Config holds backend client configuration.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// NewClient creates a backend media API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// PresignRequest asks the backend for a direct-upload target.
type PresignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

// GetPresignedURL requests a time-limited direct PUT target for a large file.
func (c *Client) GetPresignedURL(ctx context.Context, req PresignRequest) Result[PresignData] {
	return doJSON[PresignData](c, ctx, http.MethodPost, "/media/presign", req)
}

// MediaUploadRequest is the small-file multipart upload payload.
type MediaUploadRequest struct {
	File      FilePart
	Alt       string
	Thumbnail *FilePart // optional
}

// UploadMediaFile uploads a small file in a single multipart request.
// The backend places the bytes in storage and registers the media record.
func (c *Client) UploadMediaFile(ctx context.Context, req MediaUploadRequest) Result[Media] {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	if err := writeFilePart(mw, "file", req.File); err != nil {
		return failure[Media](0, err.Error())
	}
	if err := mw.WriteField("alt", req.Alt); err != nil {
		return failure[Media](0, err.Error())
	}
	if req.Thumbnail != nil {
		if err := writeFilePart(mw, "thumbnail", *req.Thumbnail); err != nil {
			return failure[Media](0, err.Error())
		}
	}
	if err := mw.Close(); err != nil {
		return failure[Media](0, err.Error())
	}

	return doBody[Media](c, ctx, http.MethodPost, "/media", body, mw.FormDataContentType())
}

// ConfirmRequest registers a media record after a successful direct PUT.
type ConfirmRequest struct {
	VideoURL  string
	Alt       string
	Thumbnail *FilePart // optional
}

// ConfirmPresignedUpload tells the backend the direct PUT succeeded so it
// can register the media record. Must only be called after the PUT.
func (c *Client) ConfirmPresignedUpload(ctx context.Context, req ConfirmRequest) Result[Media] {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	if err := mw.WriteField("video", req.VideoURL); err != nil {
		return failure[Media](0, err.Error())
	}
	if err := mw.WriteField("alt", req.Alt); err != nil {
		return failure[Media](0, err.Error())
	}
	if req.Thumbnail != nil {
		if err := writeFilePart(mw, "thumbnail", *req.Thumbnail); err != nil {
			return failure[Media](0, err.Error())
		}
	}
	if err := mw.Close(); err != nil {
		return failure[Media](0, err.Error())
	}

	return doBody[Media](c, ctx, http.MethodPost, "/media/confirm", body, mw.FormDataContentType())
}

// GetMediaList fetches the user's full media listing. Filtering is
// entirely client-side; no parameters are sent.
func (c *Client) GetMediaList(ctx context.Context) Result[[]Media] {
	return doJSON[[]Media](c, ctx, http.MethodGet, "/media", nil)
}

// UpdateMediaThumbnail replaces the thumbnail of an already-uploaded media item.
func (c *Client) UpdateMediaThumbnail(ctx context.Context, mediaID int64, thumb FilePart) Result[ThumbnailUpdate] {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	if err := writeFilePart(mw, "thumbnail", thumb); err != nil {
		return failure[ThumbnailUpdate](0, err.Error())
	}
	if err := mw.Close(); err != nil {
		return failure[ThumbnailUpdate](0, err.Error())
	}

	path := "/media/" + strconv.FormatInt(mediaID, 10) + "/thumbnail"
	return doBody[ThumbnailUpdate](c, ctx, http.MethodPatch, path, body, mw.FormDataContentType())
}

// PutFile transfers raw bytes directly to a presigned storage URL,
// bypassing the backend. The Content-Type must match the file's MIME type.
func (c *Client) PutFile(ctx context.Context, uploadURL string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("storage transfer failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("storage transfer failed: %s: %s", resp.Status, string(b))
	}
	return nil
}

// envelope mirrors the backend's wire response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON[T any](c *Client, ctx context.Context, method, path string, payload any) Result[T] {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return failure[T](0, err.Error())
		}
		body = bytes.NewReader(raw)
	}
	return doBody[T](c, ctx, method, path, body, "application/json")
}

func doBody[T any](c *Client, ctx context.Context, method, path string, body io.Reader, contentType string) Result[T] {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return failure[T](0, err.Error())
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("method", method).Str("path", path).Msg("Backend request failed")
		return failure[T](0, "backend unreachable: "+err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure[T](resp.StatusCode, "failed to read backend response")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return failure[T](resp.StatusCode, "invalid backend response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		msg := "backend error (" + resp.Status + ")"
		if env.Error != nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		log.Warn().
			Int("status", resp.StatusCode).
			Str("method", method).
			Str("path", path).
			Str("message", msg).
			Msg("Backend call rejected")
		return failure[T](resp.StatusCode, msg)
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return failure[T](resp.StatusCode, "backend returned no data")
	}

	var data T
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return failure[T](resp.StatusCode, "malformed backend data")
	}

	return Result[T]{Data: &data, Status: resp.StatusCode, OK: true}
}

func writeFilePart(mw *multipart.Writer, field string, part FilePart) error {
	w, err := mw.CreateFormFile(field, part.Name)
	if err != nil {
		return err
	}
	_, err = w.Write(part.Data)
	return err
}
