package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ktrade/whaleflow/internal/domain"
)

// JournalArchiver implements domain.JournalArchiver by uploading rotated
// journal files under a configurable key prefix:
//
//	{prefix}/trades_20250901.jsonl
type JournalArchiver struct {
	client *Client
	prefix string
}

// NewJournalArchiver creates an archiver that uploads into the given key
// prefix of the client's bucket.
func NewJournalArchiver(client *Client, prefix string) *JournalArchiver {
	return &JournalArchiver{client: client, prefix: prefix}
}

// ArchiveFile uploads the journal file at localPath. The upload manager
// splits large files into parts; a busy day's journal can run well past a
// single-shot upload. The local file is left in place; retention of local
// copies is the operator's decision.
func (a *JournalArchiver) ArchiveFile(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("s3blob: open journal file %s: %w", localPath, err)
	}
	defer f.Close()

	key := path.Join(a.prefix, filepath.Base(localPath))
	uploader := manager.NewUploader(a.client.S3())
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.client.Bucket()),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: upload %s: %w", key, err)
	}
	return nil
}

// ListArchived returns metadata for every journal file under the archiver's
// key prefix. Pagination is handled transparently.
func (a *JournalArchiver) ListArchived(ctx context.Context) ([]domain.ArchivedFile, error) {
	var files []domain.ArchivedFile

	paginator := s3.NewListObjectsV2Paginator(a.client.S3(), &s3.ListObjectsV2Input{
		Bucket: aws.String(a.client.Bucket()),
		Prefix: aws.String(a.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list prefix %s: %w", a.prefix, err)
		}
		for _, obj := range page.Contents {
			file := domain.ArchivedFile{
				Name: path.Base(aws.ToString(obj.Key)),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				file.LastModified = *obj.LastModified
			}
			files = append(files, file)
		}
	}
	return files, nil
}

// Restore downloads the named archived journal file into destDir and returns
// the local path. The download goes through a temp file so a partial transfer
// never leaves a torn journal on disk.
func (a *JournalArchiver) Restore(ctx context.Context, name, destDir string) (string, error) {
	key := path.Join(a.prefix, filepath.Base(name))
	out, err := a.client.S3().GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.client.Bucket()),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("s3blob: restore %s: %w", key, domain.ErrNotFound)
		}
		return "", fmt.Errorf("s3blob: restore %s: %w", key, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(destDir, ".restore-*")
	if err != nil {
		return "", fmt.Errorf("s3blob: restore %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("s3blob: restore %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("s3blob: restore %s: %w", key, err)
	}

	localPath := filepath.Join(destDir, filepath.Base(name))
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return "", fmt.Errorf("s3blob: restore %s: %w", key, err)
	}
	return localPath, nil
}

// isNotFound matches both the typed NoSuchKey error and the generic 404 some
// S3-compatible providers return.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	type httpResponseError interface {
		HTTPStatusCode() int
	}
	var httpErr httpResponseError
	return errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == 404
}

// Compile-time interface checks.
var (
	_ domain.JournalArchiver = (*JournalArchiver)(nil)
	_ domain.ArchiveBrowser  = (*JournalArchiver)(nil)
)
