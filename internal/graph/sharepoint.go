package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"pricecase/internal/upload"
)

// SharePoint uploads into a folder of a document library.
type SharePoint struct {
	client  *Client
	siteID  string
	driveID string
	folder  string
}

func NewSharePoint(client *Client, siteID, driveID, folder string) *SharePoint {
	return &SharePoint{client: client, siteID: siteID, driveID: driveID, folder: strings.Trim(folder, "/")}
}

type driveItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	WebURL string `json:"webUrl"`
}

// Upload picks the first free versioned name and PUTs the file there. Simple
// upload is limited to 4 MB by Graph, which fits reports and run logs.
func (s *SharePoint) Upload(ctx context.Context, localPath, name string) (string, error) {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}

	for v := 1; v <= 100; v++ {
		candidate := upload.VersionedName(name, v)
		var existing driveItem
		err := s.client.getJSON(ctx, s.itemPath(candidate), &existing)
		if err == nil {
			continue
		}
		if !IsNotFound(err) {
			return "", fmt.Errorf("check %s: %w", candidate, err)
		}

		body, err := s.client.do(ctx, "PUT", s.itemPath(candidate)+":/content", content, "application/octet-stream")
		if err != nil {
			return "", fmt.Errorf("upload %s: %w", candidate, err)
		}
		var item driveItem
		if err := json.Unmarshal(body, &item); err == nil && item.WebURL != "" {
			return item.WebURL, nil
		}
		return candidate, nil
	}
	return "", fmt.Errorf("too many versions of file %s", name)
}

func (s *SharePoint) drivePath() string {
	if s.driveID == "" {
		return "sites/" + url.PathEscape(s.siteID) + "/drive"
	}
	if s.siteID == "" {
		return "drives/" + url.PathEscape(s.driveID)
	}
	return "sites/" + url.PathEscape(s.siteID) + "/drives/" + url.PathEscape(s.driveID)
}

func (s *SharePoint) itemPath(name string) string {
	segments := []string{}
	for _, part := range strings.Split(s.folder, "/") {
		if part != "" {
			segments = append(segments, url.PathEscape(part))
		}
	}
	segments = append(segments, url.PathEscape(name))
	return s.drivePath() + "/root:/" + strings.Join(segments, "/")
}
