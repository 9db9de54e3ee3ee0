// Package archive retains the activity feed of deleted lists in object
// storage. Deleting a list cascades its log rows away in Postgres, so the
// snapshot taken inside the delete transaction is the surviving record.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"sharelist/api/internal/activity"
	"sharelist/api/internal/store"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Snapshot struct {
	ListID     int64                `json:"list_id"`
	ListName   string               `json:"list_name"`
	OwnerID    int64                `json:"owner_id"`
	ArchivedAt time.Time            `json:"archived_at"`
	Entries    []activity.EntryView `json:"entries"`
}

type MinioArchiver struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// NewMinioArchiver connects to the endpoint and creates the bucket when it
// does not exist yet.
func NewMinioArchiver(ctx context.Context, cfg Config) (*MinioArchiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		log.Printf("archive: created bucket %s", cfg.Bucket)
	}
	return &MinioArchiver{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

// ArchiveList uploads the snapshot and returns its object key.
func (a *MinioArchiver) ArchiveList(ctx context.Context, list store.List, entries []store.ActivityEntry) (string, error) {
	snapshot := NewSnapshot(list, entries, a.now())
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	key := ObjectKey(list.ID, snapshot.ArchivedAt)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"list-id":  fmt.Sprintf("%d", list.ID),
			"owner-id": fmt.Sprintf("%d", list.OwnerID),
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

func NewSnapshot(list store.List, entries []store.ActivityEntry, at time.Time) Snapshot {
	return Snapshot{
		ListID:     list.ID,
		ListName:   list.Name,
		OwnerID:    list.OwnerID,
		ArchivedAt: at.UTC(),
		Entries:    activity.Views(entries),
	}
}

func ObjectKey(listID int64, at time.Time) string {
	return fmt.Sprintf("lists/%d/%s.json", listID, at.UTC().Format("20060102T150405.000000000Z"))
}

// Nop discards snapshots. It is used when object storage is not configured.
type Nop struct{}

func (Nop) ArchiveList(context.Context, store.List, []store.ActivityEntry) (string, error) {
	return "", nil
}
