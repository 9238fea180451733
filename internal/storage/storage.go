// Package storage publishes downloaded artifacts to a Google Cloud Storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var ErrNoCredentials = errors.New("google cloud credentials not found in environment (set GOOGLE_CLOUD_CREDENTIALS)")

const publicHost = "https://storage.googleapis.com"

// bucket is the slice of bucket operations the store needs.
type bucket interface {
	Name() string
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context, projectID string) error
	Write(ctx context.Context, object string, r io.Reader) error
	MakePublic(ctx context.Context, object string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

type Store struct {
	bucket bucket
	log    zerolog.Logger
	client *storage.Client
}

// New connects with service-account JSON and creates the bucket if missing.
func New(ctx context.Context, credentialsJSON []byte, bucketName string, log zerolog.Logger) (*Store, error) {
	if len(credentialsJSON) == 0 {
		return nil, ErrNoCredentials
	}
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, storage.ScopeFullControl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cloud credentials: %w", err)
	}

	client, err := storage.NewClient(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	s := &Store{
		bucket: &gcsBucket{handle: client.Bucket(bucketName), name: bucketName},
		log:    log,
		client: client,
	}
	if err := s.ensureBucket(ctx, creds.ProjectID); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func newStore(b bucket, log zerolog.Logger) *Store {
	return &Store{bucket: b, log: log}
}

func (s *Store) ensureBucket(ctx context.Context, projectID string) error {
	ok, err := s.bucket.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket.Name(), err)
	}
	if ok {
		return nil
	}
	if projectID == "" {
		return fmt.Errorf("bucket %s does not exist and credentials carry no project_id", s.bucket.Name())
	}
	if err := s.bucket.Create(ctx, projectID); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket.Name(), err)
	}
	s.log.Info().Str("bucket", s.bucket.Name()).Msg("created bucket")
	return nil
}

// Upload copies localPath to dest (the base name when empty), makes the
// object world-readable and returns its public URL.
func (s *Store) Upload(ctx context.Context, localPath, dest string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	if dest == "" {
		dest = filepath.Base(localPath)
	}

	if err := s.bucket.Write(ctx, dest, f); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", localPath, err)
	}
	if err := s.bucket.MakePublic(ctx, dest); err != nil {
		return "", fmt.Errorf("failed to make %s public: %w", dest, err)
	}

	publicURL := PublicURL(s.bucket.Name(), dest)
	s.log.Info().Str("path", localPath).Str("object", dest).Str("url", publicURL).Msg("uploaded")
	return publicURL, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	names, err := s.bucket.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.bucket.Name(), err)
	}
	return names, nil
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func PublicURL(bucketName, object string) string {
	parts := strings.Split(object, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return publicHost + "/" + bucketName + "/" + strings.Join(parts, "/")
}

type gcsBucket struct {
	handle *storage.BucketHandle
	name   string
}

func (b *gcsBucket) Name() string { return b.name }

func (b *gcsBucket) Exists(ctx context.Context) (bool, error) {
	_, err := b.handle.Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (b *gcsBucket) Create(ctx context.Context, projectID string) error {
	return b.handle.Create(ctx, projectID, nil)
}

func (b *gcsBucket) Write(ctx context.Context, object string, r io.Reader) error {
	w := b.handle.Object(object).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (b *gcsBucket) MakePublic(ctx context.Context, object string) error {
	return b.handle.Object(object).ACL().Set(ctx, storage.AllUsers, storage.RoleReader)
}

func (b *gcsBucket) List(ctx context.Context, prefix string) ([]string, error) {
	it := b.handle.Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		names = append(names, attrs.Name)
	}
}
