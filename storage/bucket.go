package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Bucket storage configuration via environment variables:
// STORAGE_URL (e.g. https://project.example.co/storage/v1),
// STORAGE_SERVICE_KEY, AVATAR_BUCKET (optional, defaults to "avatars").

const defaultAvatarBucket = "avatars"

var bucketHTTP = &http.Client{Timeout: 30 * time.Second}

func AvatarBucket() string {
	if b := os.Getenv("AVATAR_BUCKET"); b != "" {
		return b
	}
	return defaultAvatarBucket
}

// UploadObject stores a blob under bucket/path, overwriting any existing
// object at that path.
func UploadObject(bucket, path string, data []byte, contentType string) error {
	baseURL := strings.TrimRight(os.Getenv("STORAGE_URL"), "/")
	serviceKey := os.Getenv("STORAGE_SERVICE_KEY")

	if baseURL == "" || serviceKey == "" {
		log.Println("ERROR: storage not configured (STORAGE_URL / STORAGE_SERVICE_KEY missing)")
		return errors.New("storage not configured")
	}

	endpoint := fmt.Sprintf("%s/object/%s/%s", baseURL, bucket, path)

	req, err := http.NewRequest("POST", endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+serviceKey)
	req.Header.Set("Content-Type", contentType)
	// Overwrite semantics: the same user re-uploading replaces the old blob.
	req.Header.Set("x-upsert", "true")

	res, err := bucketHTTP.Do(req)
	if err != nil {
		log.Printf("ERROR: object upload failed: %v", err)
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		log.Printf("ERROR: object upload returned status %d: %s", res.StatusCode, string(body))
		return fmt.Errorf("object upload failed with status %d", res.StatusCode)
	}

	return nil
}

// PublicObjectURL resolves bucket/path into a fetchable URL for a public
// bucket. Returns "" when the path is empty or storage is not configured;
// callers fall back to their default asset.
func PublicObjectURL(bucket, path string) string {
	baseURL := strings.TrimRight(os.Getenv("STORAGE_URL"), "/")
	if baseURL == "" || path == "" {
		return ""
	}
	return fmt.Sprintf("%s/object/public/%s/%s", baseURL, bucket, path)
}
