package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/viziopath-api/internal/config"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestSniffImage(t *testing.T) {
	img, err := SniffImage(bytes.NewReader(pngHeader), int64(len(pngHeader)), 1024)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, ".png", img.Extension)

	replayed, err := io.ReadAll(img.Reader)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, replayed)
}

func TestSniffImage_Rejects(t *testing.T) {
	_, err := SniffImage(strings.NewReader("hello world, plain text"), 23, 1024)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = SniffImage(bytes.NewReader(pngHeader), 2048, 1024)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = SniffImage(bytes.NewReader(nil), 0, 1024)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestAvatarKey(t *testing.T) {
	userID := uuid.New()
	key := AvatarKey("viziopath", userID, ".png")
	assert.True(t, strings.HasPrefix(key, "viziopath/avatars/"+userID.String()+"/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, AvatarKey("viziopath", userID, ".png"))
}

func TestOwnsKey(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	assert.Equal(t, "viziopath/avatars/"+owner.String()+"/", AvatarPrefix("viziopath", owner))
	assert.True(t, OwnsKey("viziopath", owner, AvatarKey("viziopath", owner, ".png")))

	for _, key := range []string{
		AvatarKey("viziopath", other, ".png"),
		"viziopath/avatars/" + owner.String(),
		"viziopath/avatars/" + owner.String() + "/../" + other.String() + "/a.png",
		"other/avatars/" + owner.String() + "/a.png",
	} {
		assert.False(t, OwnsKey("viziopath", owner, key), key)
	}
}

func TestKeyFromURL(t *testing.T) {
	key, err := keyFromURL("http://localhost:5000/uploads/", "http://localhost:5000/uploads/a/b.png")
	require.NoError(t, err)
	assert.Equal(t, "a/b.png", key)

	for _, url := range []string{
		"https://elsewhere.example.com/a/b.png",
		"http://localhost:5000/uploads/",
		"http://localhost:5000/uploads/../secret",
		"http://localhost:5000/uploads/a//b.png",
		"http://localhost:5000/uploads/a/./b.png",
	} {
		_, err := keyFromURL("http://localhost:5000/uploads", url)
		assert.ErrorIs(t, err, ErrForeignURL, url)
	}
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewLocalStorage(dir, "http://localhost:5000/uploads/")
	require.NoError(t, err)

	obj, err := s.Upload(ctx, "viziopath/avatars/u1/a.png", bytes.NewReader(pngHeader), int64(len(pngHeader)), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/uploads/viziopath/avatars/u1/a.png", obj.URL)
	assert.Equal(t, int64(len(pngHeader)), obj.Size)

	stored, err := os.ReadFile(filepath.Join(dir, "viziopath", "avatars", "u1", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)

	require.NoError(t, s.Delete(ctx, obj.URL))
	_, err = os.Stat(filepath.Join(dir, "viziopath", "avatars", "u1", "a.png"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine, foreign URLs are not
	assert.NoError(t, s.Delete(ctx, obj.URL))
	assert.ErrorIs(t, s.Delete(ctx, "https://cdn.example.com/a.png"), ErrForeignURL)
}

func TestLocalStorage_CanceledUploadLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://localhost:5000/uploads")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Upload(ctx, "a.png", bytes.NewReader(pngHeader), int64(len(pngHeader)), "image/png")
	require.Error(t, err)

	_, err = os.Stat(filepath.Join(dir, "a.png"))
	assert.True(t, os.IsNotExist(err))
}

type fakeS3 struct {
	put     *s3.PutObjectInput
	deleted *s3.DeleteObjectInput
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	return &s3.PutObjectOutput{}, f.err
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = in
	return &s3.DeleteObjectOutput{}, f.err
}

func TestS3Storage(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{}
	s := newS3Storage(client, config.StorageConfig{
		S3Bucket:       "avatars",
		S3BaseEndpoint: "http://minio:9000/",
	})

	obj, err := s.Upload(ctx, "viziopath/a.png", bytes.NewReader(pngHeader), int64(len(pngHeader)), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/avatars/viziopath/a.png", obj.URL)
	assert.Equal(t, "avatars", *client.put.Bucket)
	assert.Equal(t, "viziopath/a.png", *client.put.Key)
	assert.Equal(t, "image/png", *client.put.ContentType)

	require.NoError(t, s.Delete(ctx, obj.URL))
	assert.Equal(t, "viziopath/a.png", *client.deleted.Key)

	assert.ErrorIs(t, s.Delete(ctx, "https://res.cloudinary.com/x/image/upload/a.png"), ErrForeignURL)
}

func TestS3Storage_MissingObjectOnDelete(t *testing.T) {
	client := &fakeS3{err: &types.NoSuchKey{}}
	s := newS3Storage(client, config.StorageConfig{S3Bucket: "avatars", S3Region: "eu-west-1"})

	assert.NoError(t, s.Delete(context.Background(), "https://avatars.s3.eu-west-1.amazonaws.com/a.png"))
}

func TestS3PublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", s3PublicURL(config.StorageConfig{S3PublicURL: "https://cdn.example.com/", S3Bucket: "b"}))
	assert.Equal(t, "https://b.s3.us-east-1.amazonaws.com", s3PublicURL(config.StorageConfig{S3Bucket: "b", S3Region: "us-east-1"}))
}

type fakeCloudinary struct {
	params    uploader.UploadParams
	destroyed string
	result    *uploader.UploadResult
	err       error
}

func (f *fakeCloudinary) Upload(_ context.Context, _ interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeCloudinary) Destroy(_ context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	f.destroyed = params.PublicID
	return &uploader.DestroyResult{Result: "ok"}, f.err
}

func TestCloudinaryStorage(t *testing.T) {
	ctx := context.Background()
	fake := &fakeCloudinary{result: &uploader.UploadResult{
		PublicID:  "viziopath/avatars/u1/a",
		SecureURL: "https://res.cloudinary.com/demo/image/upload/v1700000000/viziopath/avatars/u1/a.png",
		Bytes:     42,
	}}
	s := &CloudinaryStorage{api: fake}

	obj, err := s.Upload(ctx, "viziopath/avatars/u1/a.png", bytes.NewReader(pngHeader), 42, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "viziopath/avatars/u1/a", fake.params.PublicID)
	assert.Equal(t, fake.result.SecureURL, obj.URL)

	require.NoError(t, s.Delete(ctx, obj.URL))
	assert.Equal(t, "viziopath/avatars/u1/a", fake.destroyed)
}

func TestCloudinaryStorage_APIError(t *testing.T) {
	fake := &fakeCloudinary{result: &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid image file"}}}
	s := &CloudinaryStorage{api: fake}

	_, err := s.Upload(context.Background(), "a.png", bytes.NewReader(pngHeader), 42, "image/png")
	assert.ErrorContains(t, err, "Invalid image file")

	fake.err = errors.New("network down")
	_, err = s.Upload(context.Background(), "a.png", bytes.NewReader(pngHeader), 42, "image/png")
	assert.ErrorContains(t, err, "network down")
}

func TestCloudinaryPublicID(t *testing.T) {
	id, err := cloudinaryPublicID("https://res.cloudinary.com/demo/image/upload/v123/folder/pic.jpg")
	require.NoError(t, err)
	assert.Equal(t, "folder/pic", id)

	_, err = cloudinaryPublicID("http://localhost:5000/uploads/pic.jpg")
	assert.ErrorIs(t, err, ErrForeignURL)
}
