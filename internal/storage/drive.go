package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveConfig points the Drive sink at a service account and a target folder.
type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
}

// DriveClient stores reports as files in one Google Drive folder.
// Object keys are used verbatim as file names.
type DriveClient struct {
	srv      *drive.Service
	folderID string
}

func NewDriveClient(ctx context.Context, cfg DriveConfig) (*DriveClient, error) {
	if strings.TrimSpace(cfg.CredentialsJSON) == "" {
		return nil, fmt.Errorf("drive credentials must be provided")
	}

	jwtConfig, err := google.JWTConfigFromJSON([]byte(cfg.CredentialsJSON), drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse drive credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive client: %w", err)
	}

	folderID := cfg.FolderID
	if folderID == "" {
		folderID = "root"
	}
	return &DriveClient{srv: srv, folderID: folderID}, nil
}

func (c *DriveClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", c.folderID)
	if prefix != "" {
		query += fmt.Sprintf(" and name contains '%s'", escapeQuery(prefix))
	}

	var results []ObjectInfo
	err := c.srv.Files.List().
		Q(query).
		Fields("nextPageToken, files(id, name, size)").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				if !strings.HasPrefix(f.Name, prefix) {
					continue
				}
				results = append(results, ObjectInfo{Key: f.Name, Size: f.Size})
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("drive list failed: %w", err)
	}
	return results, nil
}

func (c *DriveClient) DownloadObject(ctx context.Context, key, destPath string) error {
	fileID, err := c.findFile(ctx, key)
	if err != nil {
		return err
	}

	resp, err := c.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("unable to download %s: %w", key, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", destPath, err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

func (c *DriveClient) UploadObject(ctx context.Context, key string, data []byte) error {
	file := &drive.File{
		Name:    key,
		Parents: []string{c.folderID},
	}
	if _, err := c.srv.Files.Create(file).Media(bytes.NewReader(data)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("drive upload of %s failed: %w", key, err)
	}
	return nil
}

func (c *DriveClient) findFile(ctx context.Context, name string) (string, error) {
	result, err := c.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and name='%s' and trashed=false", c.folderID, escapeQuery(name))).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("error finding %s: %w", name, err)
	}
	if len(result.Files) == 0 {
		return "", fmt.Errorf("file not found: %s", name)
	}
	return result.Files[0].Id, nil
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}

var _ ObjectStorage = (*DriveClient)(nil)
