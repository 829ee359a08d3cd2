// Package archive provides best-effort object-storage archival of raw
// ingested document content (component A6). Archival failure is logged
// and never blocks ingestion: it is a backup convenience, not part of
// the read path.
package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ragforge/ragindex/internal/config"
	"github.com/ragforge/ragindex/internal/domain"
)

// Archive wraps a MinIO client for a single bucket.
type Archive struct {
	client *minio.Client
	bucket string
}

// New connects to MinIO per cfg and ensures the bucket exists. Callers
// should check cfg.Enabled() first.
func New(ctx context.Context, cfg config.MinIOConfig) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, domain.Wrap(domain.KindRemoteService, "archive.New", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, domain.Wrap(domain.KindRemoteService, "archive.New", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, domain.Wrap(domain.KindRemoteService, "archive.New", err)
		}
	}

	return &Archive{client: client, bucket: cfg.BucketName}, nil
}

// documentKey is the object key raw document content is stored under.
func documentKey(documentID string) string {
	return fmt.Sprintf("documents/%s", documentID)
}

// StoreDocument archives a document's raw content, best-effort.
func (a *Archive) StoreDocument(ctx context.Context, documentID, content string) error {
	reader := strings.NewReader(content)
	_, err := a.client.PutObject(ctx, a.bucket, documentKey(documentID), reader, int64(len(content)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return domain.Wrap(domain.KindRemoteService, "archive.StoreDocument", err)
	}
	return nil
}

// DeleteDocument removes a document's archived content, mirroring
// DeleteDocument's cascade on the relational side.
func (a *Archive) DeleteDocument(ctx context.Context, documentID string) error {
	if err := a.client.RemoveObject(ctx, a.bucket, documentKey(documentID), minio.RemoveObjectOptions{}); err != nil {
		return domain.Wrap(domain.KindRemoteService, "archive.DeleteDocument", err)
	}
	return nil
}
