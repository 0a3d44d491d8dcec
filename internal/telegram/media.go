package telegram

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Downloader fetches Telegram file attachments into a local upload
// directory so they can be referenced by path in pane messages.
type Downloader struct {
	client *Client
	dir    string
}

// NewDownloader stores files under dir, in one subdirectory per day.
func NewDownloader(client *Client, dir string) *Downloader {
	return &Downloader{client: client, dir: dir}
}

// Download fetches the file identified by fileID and returns the local
// path it was saved to. name is the original filename when Telegram
// provides one; photos come without a name and get a .jpg stem.
func (d *Downloader) Download(fileID, name string) (string, error) {
	url, err := d.client.FileURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file %s: %w", fileID, err)
	}

	day := filepath.Join(d.dir, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(day, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	if name == "" {
		name = "photo.jpg"
	}
	dest := filepath.Join(day, fileID+"_"+filepath.Base(name))

	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %s", fileID, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("save %s: %w", fileID, err)
	}
	return dest, nil
}
