package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioscare/fieldcrypt"
)

// mockS3 keeps uploaded objects in memory so the test can inspect what went
// over the wire.
type mockS3 struct {
	objects map[string][]byte
}

func newMockS3() *mockS3 {
	return &mockS3{objects: map[string][]byte{}}
}

func (m *mockS3) PutObject(_ context.Context, params *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(params.Key)] = data
	return &awss3.PutObjectOutput{}, nil
}

func (m *mockS3) GetObject(_ context.Context, params *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	data, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, fmt.Errorf("no such key %s", aws.ToString(params.Key))
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	mock := newMockS3()
	engine := fieldcrypt.NewTestEngine(t)
	store, err := New(mock, "clinic-attachments", engine)
	require.NoError(t, err)

	plaintext := strings.Repeat("exam report PDF bytes. ", 400)
	key, err := store.Upload(ctx, "application/pdf", strings.NewReader(plaintext))
	require.NoError(t, err)
	require.NotEmpty(t, key)

	// Ciphertext at rest: the stored object must not contain the plaintext.
	stored := mock.objects[key]
	require.NotEmpty(t, stored)
	assert.NotContains(t, string(stored), "exam report")
	assert.Greater(t, len(stored), len(plaintext), "IV prepended to ciphertext")

	body, err := store.Download(ctx, key)
	require.NoError(t, err)
	defer body.Close()

	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, plaintext, string(got))
}

func TestDownloadMissingKey(t *testing.T) {
	store, err := New(newMockS3(), "clinic-attachments", fieldcrypt.NewTestEngine(t))
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "missing")
	require.Error(t, err)
}

func TestNewRejectsNilEngine(t *testing.T) {
	_, err := New(newMockS3(), "clinic-attachments", nil)
	assert.ErrorIs(t, err, fieldcrypt.ErrDisabledPolicy)
}
