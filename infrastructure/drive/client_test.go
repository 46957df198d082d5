package drive

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"vidflow/domain/export"

	"google.golang.org/api/drive/v3"
)

// mockDriveService is a mock implementation for testing
type mockDriveService struct {
	files          []*drive.File
	shouldFail     bool
	failError      error
	uploadErr      error
	permissionErr  error
	deletedFileIDs []string
	uploaded       []byte
	uploadedName   string
	uploadedMime   string
	uploadFolder   string
	permissions    []*drive.Permission
	quota          *drive.AboutStorageQuota
	orderBy        string
}

func (m *mockDriveService) ListFiles(ctx context.Context, query string, fields string, orderBy string) ([]*drive.File, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	m.orderBy = orderBy
	return m.files, nil
}

func (m *mockDriveService) StorageQuota(ctx context.Context) (*drive.AboutStorageQuota, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	return m.quota, nil
}

func (m *mockDriveService) UploadFile(ctx context.Context, fileName, mimeType, folderID string, content io.Reader) (*drive.File, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	m.uploaded = data
	m.uploadedName = fileName
	m.uploadedMime = mimeType
	m.uploadFolder = folderID
	return &drive.File{
		Id:          "uploaded-file-id",
		Name:        fileName,
		MimeType:    mimeType,
		Size:        int64(len(data)),
		WebViewLink: "https://drive.google.com/file/d/uploaded-file-id/view",
	}, nil
}

func (m *mockDriveService) DeleteFile(ctx context.Context, fileID string) error {
	if m.shouldFail {
		return m.failError
	}
	m.deletedFileIDs = append(m.deletedFileIDs, fileID)
	return nil
}

func (m *mockDriveService) CreatePermission(ctx context.Context, fileID string, permission *drive.Permission) error {
	if m.permissionErr != nil {
		return m.permissionErr
	}
	m.permissions = append(m.permissions, permission)
	return nil
}

func newTestClient(t *testing.T, mock *mockDriveService, folder string) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), "", WithDriveService(mock), WithFolder(folder))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestClient_ListFiles(t *testing.T) {
	testTime := time.Date(2025, 12, 28, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mock      *mockDriveService
		wantCount int
		wantErr   bool
		errMsg    string
	}{
		{
			name: "lists files successfully",
			mock: &mockDriveService{
				files: []*drive.File{
					{Id: "file-1", Name: "talk_speech.wav", MimeType: "audio/wav", Size: 1000, CreatedTime: testTime.Format(time.RFC3339)},
					{Id: "file-2", Name: "talk_music.mp4", MimeType: "video/mp4", Size: 9000, CreatedTime: "not-a-time"},
				},
			},
			wantCount: 2,
		},
		{
			name:      "returns empty list for empty folder",
			mock:      &mockDriveService{files: []*drive.File{}},
			wantCount: 0,
		},
		{
			name: "handles API error",
			mock: &mockDriveService{
				shouldFail: true,
				failError:  fmt.Errorf("googleapi: Error 403: permission denied"),
			},
			wantErr: true,
			errMsg:  "failed to list files",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.mock, "folder")

			files, err := client.ListFiles(context.Background(), "folder")
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(files) != tt.wantCount {
				t.Errorf("expected %d files, got %d", tt.wantCount, len(files))
			}
			if tt.wantCount == 2 {
				if !files[0].CreatedTime.Equal(testTime) {
					t.Errorf("CreatedTime = %v, want %v", files[0].CreatedTime, testTime)
				}
				if !files[1].CreatedTime.IsZero() {
					t.Error("unparseable time should be zero")
				}
			}
		})
	}
}

func TestClient_Deliver(t *testing.T) {
	mock := &mockDriveService{}
	client := newTestClient(t, mock, "exports-folder")

	link, err := client.Deliver(context.Background(), export.Artifact{
		Bytes:    []byte("OggS"),
		Filename: "talk_speech.ogg",
		MimeType: "audio/ogg; codecs=opus",
	})
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	if link != "https://drive.google.com/file/d/uploaded-file-id/view" {
		t.Errorf("link = %q", link)
	}
	if string(mock.uploaded) != "OggS" || mock.uploadFolder != "exports-folder" {
		t.Errorf("uploaded %q to %q", mock.uploaded, mock.uploadFolder)
	}
	if mock.uploadedMime != "audio/ogg" {
		t.Errorf("mime type = %q, want parameters stripped", mock.uploadedMime)
	}
	if len(mock.permissions) != 1 || mock.permissions[0].Type != "anyone" || mock.permissions[0].Role != "reader" {
		t.Errorf("permissions = %+v", mock.permissions)
	}
}

func TestClient_Deliver_ReplacesSameName(t *testing.T) {
	mock := &mockDriveService{
		files: []*drive.File{
			{Id: "old-wav", Name: "talk_speech.wav"},
			{Id: "other", Name: "talk_music.wav"},
		},
	}
	client := newTestClient(t, mock, "folder")

	if _, err := client.Deliver(context.Background(), export.Artifact{Filename: "talk_speech.wav", MimeType: "audio/wav"}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if len(mock.deletedFileIDs) != 1 || mock.deletedFileIDs[0] != "old-wav" {
		t.Errorf("deleted = %v, want [old-wav]", mock.deletedFileIDs)
	}
}

func TestClient_Deliver_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mock   *mockDriveService
		folder string
		errMsg string
	}{
		{"no folder", &mockDriveService{}, "", "no drive folder"},
		{"upload fails", &mockDriveService{uploadErr: fmt.Errorf("quota exceeded")}, "f", "failed to upload"},
		{"share fails", &mockDriveService{permissionErr: fmt.Errorf("forbidden")}, "f", "failed to share"},
		{"list fails", &mockDriveService{shouldFail: true, failError: fmt.Errorf("503")}, "f", "failed to list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.mock, tt.folder)
			_, err := client.Deliver(context.Background(), export.Artifact{Filename: "a.wav"})
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Deliver() error = %v, want %q", err, tt.errMsg)
			}
		})
	}
}

func TestNewClient_MissingCredentials(t *testing.T) {
	if _, err := NewClient(context.Background(), "/nonexistent/credentials.json"); err == nil {
		t.Error("expected error for missing credentials")
	}
	_, err := TokenSource(context.Background(), OAuthConfig{CredentialsFile: "/nonexistent/oauth.json"})
	if err == nil || !strings.Contains(err.Error(), "OAuth credentials") {
		t.Errorf("TokenSource() error = %v", err)
	}
}

func TestClient_GetStorageQuota(t *testing.T) {
	tests := []struct {
		name          string
		quota         *drive.AboutStorageQuota
		wantTotal     int64
		wantAvailable int64
	}{
		{"limited account", &drive.AboutStorageQuota{Limit: 15000, Usage: 12000}, 15000, 3000},
		{"unlimited account", &drive.AboutStorageQuota{Usage: 12000}, 0, math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &mockDriveService{quota: tt.quota}, "folder")
			info, err := client.GetStorageQuota(context.Background())
			if err != nil {
				t.Fatalf("GetStorageQuota() error = %v", err)
			}
			if info.TotalBytes != tt.wantTotal || info.AvailableBytes != tt.wantAvailable {
				t.Errorf("GetStorageQuota() = %+v", info)
			}
		})
	}
}

func TestClient_ListByAge(t *testing.T) {
	mock := &mockDriveService{files: []*drive.File{{Id: "a", Name: "old.mp4"}}}
	client := newTestClient(t, mock, "folder")

	files, err := client.ListByAge(context.Background(), "folder")
	if err != nil {
		t.Fatalf("ListByAge() error = %v", err)
	}
	if len(files) != 1 || mock.orderBy != "createdTime" {
		t.Errorf("ListByAge() = %v ordered by %q", files, mock.orderBy)
	}
	if err := client.DeletePermanently(context.Background(), "a"); err != nil {
		t.Fatalf("DeletePermanently() error = %v", err)
	}
	if len(mock.deletedFileIDs) != 1 {
		t.Errorf("deleted = %v", mock.deletedFileIDs)
	}
}
