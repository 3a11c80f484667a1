package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/conduit/pkg/storage"
)

type mockS3Client struct {
	objects map[string][]byte
	types   map[string]string
	getErr  error
	putErr  error
	headErr error
}

func newMockS3Client() *mockS3Client {
	return &mockS3Client{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *mockS3Client) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	m.objects[key] = data
	m.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, m.headErr
}

func testConfig() storage.Config {
	cfg := storage.DefaultConfig()
	cfg.Type = storage.TypeS3
	cfg.S3Bucket = "plugins"
	cfg.Namespace = "host-a"
	return cfg
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mock := newMockS3Client()
	store := NewWithClient(mock, testConfig())
	assert.Equal(t, "conduit/host-a/saved-plugins.yaml", store.Key())

	state, err := store.LoadState(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.Plugins, "missing object is an empty state")

	require.NoError(t, store.SaveState(ctx, &storage.SavedState{Plugins: []string{"/p/a.so", "/p/b.lua"}}))
	assert.Equal(t, "application/yaml", mock.types["plugins/conduit/host-a/saved-plugins.yaml"])
	assert.Contains(t, string(mock.objects["plugins/conduit/host-a/saved-plugins.yaml"]), "- /p/a.so")

	state, err = store.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/a.so", "/p/b.lua"}, state.Plugins)
	assert.False(t, state.UpdatedAt.IsZero())
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	mock := newMockS3Client()
	store := NewWithClient(mock, testConfig())

	mock.getErr = errors.New("access denied")
	_, err := store.LoadState(ctx)
	assert.ErrorContains(t, err, "access denied")

	mock.putErr = errors.New("slow down")
	assert.ErrorContains(t, store.SaveState(ctx, &storage.SavedState{}), "slow down")

	mock.headErr = errors.New("no such bucket")
	assert.ErrorContains(t, store.HealthCheck(ctx), "no such bucket")

	mock.getErr = nil
	mock.objects["plugins/conduit/host-a/saved-plugins.yaml"] = []byte("plugins: {")
	_, err = store.LoadState(ctx)
	assert.Error(t, err)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.False(t, isNotFound(errors.New("NoSuchKey")))
}
