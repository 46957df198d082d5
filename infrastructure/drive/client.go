package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"vidflow/domain/distribution"
	"vidflow/domain/export"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveService defines the Google Drive API operations the client needs.
// This allows mocking the Google Drive API in tests
type DriveService interface {
	ListFiles(ctx context.Context, query string, fields string, orderBy string) ([]*drive.File, error)
	UploadFile(ctx context.Context, fileName, mimeType, folderID string, content io.Reader) (*drive.File, error)
	DeleteFile(ctx context.Context, fileID string) error
	CreatePermission(ctx context.Context, fileID string, permission *drive.Permission) error
	StorageQuota(ctx context.Context) (*drive.AboutStorageQuota, error)
}

// GoogleDriveService is the production implementation using the Google Drive API
type GoogleDriveService struct {
	service *drive.Service
}

// ListFiles lists files matching the query
func (s *GoogleDriveService) ListFiles(ctx context.Context, query string, fields string, orderBy string) ([]*drive.File, error) {
	r, err := s.service.Files.List().
		Q(query).
		Fields(googleapi.Field("files(" + fields + ")")).
		OrderBy(orderBy).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return r.Files, nil
}

// UploadFile creates a file in folderID with the given content
func (s *GoogleDriveService) UploadFile(ctx context.Context, fileName, mimeType, folderID string, content io.Reader) (*drive.File, error) {
	meta := &drive.File{
		Name:     fileName,
		MimeType: mimeType,
		Parents:  []string{folderID},
	}
	return s.service.Files.Create(meta).
		Media(content, googleapi.ContentType(mimeType)).
		Fields("id, name, mimeType, size, webViewLink").
		Context(ctx).
		Do()
}

// DeleteFile permanently deletes a file
func (s *GoogleDriveService) DeleteFile(ctx context.Context, fileID string) error {
	return s.service.Files.Delete(fileID).Context(ctx).Do()
}

// CreatePermission grants a permission on a file
func (s *GoogleDriveService) CreatePermission(ctx context.Context, fileID string, permission *drive.Permission) error {
	_, err := s.service.Permissions.Create(fileID, permission).Context(ctx).Do()
	return err
}

// StorageQuota returns the account's storage limit and usage
func (s *GoogleDriveService) StorageQuota(ctx context.Context) (*drive.AboutStorageQuota, error) {
	about, err := s.service.About.Get().Fields("storageQuota").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return about.StorageQuota, nil
}

// Client uploads exported artifacts to a Drive folder
type Client struct {
	driveService DriveService
	folderID     string
	log          *logrus.Entry
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithDriveService sets a custom drive service (for testing)
func WithDriveService(svc DriveService) ClientOption {
	return func(c *Client) {
		c.driveService = svc
	}
}

// WithFolder sets the destination folder for Deliver
func WithFolder(folderID string) ClientOption {
	return func(c *Client) {
		c.folderID = folderID
	}
}

func newClient(opts []ClientOption) *Client {
	c := &Client{log: logrus.WithField("component", "drive")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient creates a Google Drive client authenticated with a service account.
// If no drive service option is provided, it initializes a real Google Drive service
func NewClient(ctx context.Context, credentialsPath string, opts ...ClientOption) (*Client, error) {
	c := newClient(opts)

	if c.driveService == nil {
		svc, err := newGoogleDriveService(ctx, credentialsPath)
		if err != nil {
			return nil, err
		}
		c.driveService = svc
	}

	return c, nil
}

// newGoogleDriveService creates a production Google Drive service
func newGoogleDriveService(ctx context.Context, credentialsPath string) (*GoogleDriveService, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(b, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive service: %w", err)
	}

	return &GoogleDriveService{service: srv}, nil
}

// ListFiles returns the non-trashed files in folderID sorted by name
func (c *Client) ListFiles(ctx context.Context, folderID string) ([]distribution.FileInfo, error) {
	return c.listFiles(ctx, folderID, "name")
}

// ListByAge returns the non-trashed files in folderID, oldest first
func (c *Client) ListByAge(ctx context.Context, folderID string) ([]distribution.FileInfo, error) {
	return c.listFiles(ctx, folderID, "createdTime")
}

func (c *Client) listFiles(ctx context.Context, folderID, orderBy string) ([]distribution.FileInfo, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	files, err := c.driveService.ListFiles(ctx, query, "id, name, mimeType, size, createdTime, webViewLink", orderBy)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var result []distribution.FileInfo
	for _, f := range files {
		result = append(result, distribution.FileInfo{
			ID:          f.Id,
			Name:        f.Name,
			MimeType:    f.MimeType,
			Size:        f.Size,
			CreatedTime: parseTime(f.CreatedTime),
			WebViewLink: f.WebViewLink,
		})
	}
	return result, nil
}

// GetStorageQuota reports the account's storage. An account without a limit
// reports all space as available.
func (c *Client) GetStorageQuota(ctx context.Context) (*distribution.StorageInfo, error) {
	quota, err := c.driveService.StorageQuota(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage quota: %w", err)
	}
	if quota.Limit == 0 {
		return &distribution.StorageInfo{UsedBytes: quota.Usage, AvailableBytes: math.MaxInt64}, nil
	}
	return &distribution.StorageInfo{
		TotalBytes:     quota.Limit,
		UsedBytes:      quota.Usage,
		AvailableBytes: quota.Limit - quota.Usage,
	}, nil
}

// DeletePermanently deletes a file without moving it to the trash
func (c *Client) DeletePermanently(ctx context.Context, fileID string) error {
	if err := c.driveService.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", fileID, err)
	}
	return nil
}

// Deliver uploads the artifact to the configured folder, replacing any file
// with the same name, and shares it with anyone holding the link.
func (c *Client) Deliver(ctx context.Context, artifact export.Artifact) (string, error) {
	if c.folderID == "" {
		return "", fmt.Errorf("no drive folder configured")
	}

	existing, err := c.ListFiles(ctx, c.folderID)
	if err != nil {
		return "", err
	}
	for _, f := range existing {
		if f.Name != artifact.Filename {
			continue
		}
		if err := c.driveService.DeleteFile(ctx, f.ID); err != nil {
			return "", fmt.Errorf("failed to replace %s: %w", f.Name, err)
		}
		c.log.WithField("file_id", f.ID).Info("replaced existing upload")
	}

	mimeType := artifact.MimeType
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	uploaded, err := c.driveService.UploadFile(ctx, artifact.Filename, mimeType, c.folderID, bytes.NewReader(artifact.Bytes))
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", artifact.Filename, err)
	}

	if err := c.driveService.CreatePermission(ctx, uploaded.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}); err != nil {
		return "", fmt.Errorf("failed to share %s: %w", artifact.Filename, err)
	}

	c.log.WithFields(logrus.Fields{
		"file_id": uploaded.Id,
		"name":    uploaded.Name,
		"bytes":   len(artifact.Bytes),
	}).Info("artifact uploaded")

	if uploaded.WebViewLink != "" {
		return uploaded.WebViewLink, nil
	}
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", uploaded.Id), nil
}

// parseTime parses a Google Drive timestamp string
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Ensure Client implements the delivery and storage ports
var (
	_ export.Downloader         = (*Client)(nil)
	_ distribution.DriveClient = (*Client)(nil)
)
