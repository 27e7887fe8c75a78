package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"conexbot/internal/config"
	"conexbot/internal/entities"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MediaClient uploads files to the remote media storage API.
type MediaClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewMediaClient(cfg config.MediaConfig) *MediaClient {
	return &MediaClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (m *MediaClient) Upload(ctx context.Context, ownerEmail, filename, mimeType string, body io.Reader) (*entities.StoredObject, error) {
	if m.baseURL == "" {
		return nil, errors.New("media storage not configured")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("email", ownerEmail); err != nil {
		return nil, errors.Wrap(err, "write email field")
	}

	remoteName := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+escapeQuotes(remoteName)+`"`)
	header.Set("Content-Type", mimeType)
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, errors.Wrap(err, "create file part")
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, errors.Wrap(err, "copy file")
	}
	if err := form.Close(); err != nil {
		return nil, errors.Wrap(err, "close form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/media", &buf)
	if err != nil {
		return nil, errors.Wrap(err, "build upload request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("x-api-key", m.apiKey)

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "upload media")
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("media upload HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	obj, err := decodeStoredObject(raw)
	if err != nil {
		return nil, err
	}
	if obj.Filename == "" {
		obj.Filename = remoteName
	}
	if obj.MimeType == "" {
		obj.MimeType = mimeType
	}
	zap.L().Info("media uploaded",
		zap.String("owner", ownerEmail),
		zap.String("remote_id", obj.ID),
		zap.Int64("size", obj.Size))
	return obj, nil
}

// decodeStoredObject accepts the object at the top level or wrapped in
// "media" or "data".
func decodeStoredObject(raw []byte) (*entities.StoredObject, error) {
	var envelope struct {
		entities.StoredObject
		Media *entities.StoredObject `json:"media"`
		Data  *entities.StoredObject `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.Wrap(err, "decode media response")
	}
	obj := envelope.StoredObject
	if envelope.Media != nil {
		obj = *envelope.Media
	} else if envelope.Data != nil {
		obj = *envelope.Data
	}
	if obj.URL == "" {
		return nil, errors.New("media response has no url")
	}
	return &obj, nil
}

// Delete removes a remote object. An object the storage no longer knows
// about counts as deleted.
func (m *MediaClient) Delete(ctx context.Context, remoteID string) error {
	if m.baseURL == "" {
		return errors.New("media storage not configured")
	}
	if remoteID == "" {
		return errors.New("media has no remote id")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		m.baseURL+"/api/media/"+url.PathEscape(remoteID), nil)
	if err != nil {
		return errors.Wrap(err, "build delete request")
	}
	req.Header.Set("x-api-key", m.apiKey)

	resp, err := m.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "delete media")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		zap.L().Warn("remote media already gone", zap.String("remote_id", remoteID))
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return errors.Errorf("media delete HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

// DetectMIME sniffs the leading bytes of a file and falls back to the
// declared type when the content is not recognised.
func DetectMIME(head []byte, declared string) string {
	kind, err := filetype.Match(head)
	if err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
