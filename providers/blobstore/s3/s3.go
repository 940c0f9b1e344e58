// Package s3store stores clinic attachments (exam images, PDF exports) in
// S3, encrypting the byte stream before it leaves the process. Objects are
// self-describing: a random IV followed by AES-CTR ciphertext. Attachments
// carry no blind index and are not searchable.
package s3store

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/helioscare/fieldcrypt"
)

// Client is the subset of the S3 client the store uses (allows mocking).
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store uploads and downloads encrypted attachments.
type Store struct {
	client Client
	bucket string
	engine *fieldcrypt.Engine
}

// New creates a store. The engine must come from an enabled policy; a nil
// engine means the caller skipped the Policy.Enabled check.
func New(client Client, bucket string, engine *fieldcrypt.Engine) (*Store, error) {
	if engine == nil {
		return nil, fieldcrypt.ErrDisabledPolicy
	}
	return &Store{client: client, bucket: bucket, engine: engine}, nil
}

// Upload encrypts body as a stream and stores it under a fresh object key,
// which is returned. Plaintext never reaches the wire.
func (s *Store) Upload(ctx context.Context, contentType string, body io.Reader) (string, error) {
	sealed, err := s.engine.SealedReader(body)
	if err != nil {
		return "", err
	}

	key := uuid.NewString()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        sealed,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading attachment %s: %w", key, err)
	}
	return key, nil
}

// Download fetches an object and returns the decrypted stream. The caller
// must close it.
func (s *Store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("downloading attachment %s: %w", key, err)
	}

	plaintext, err := s.engine.OpenSealedReader(out.Body)
	if err != nil {
		out.Body.Close()
		return nil, err
	}
	return readCloser{Reader: plaintext, closer: out.Body}, nil
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (r readCloser) Close() error {
	return r.closer.Close()
}
