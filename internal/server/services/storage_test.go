package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/mzheleznov/profilehub/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storageConfig() *sc.Config {
	return &sc.Config{
		S3AccessKey:    "ak",
		S3SecretKey:    "sk",
		S3Bucket:       "avatars",
		S3Region:       "us-east-1",
		S3BaseEndpoint: "http://127.0.0.1:9000/",
		PresignExpiry:  15 * time.Minute,
	}
}

func stubPresign(t *testing.T, putURL, getURL string, putErr, getErr error) {
	t.Helper()

	origPut, origGet := presignPutObject, presignGetObject
	t.Cleanup(func() {
		presignPutObject, presignGetObject = origPut, origGet
	})

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if putErr != nil {
			return nil, putErr
		}
		return &v4.PresignedHTTPRequest{URL: putURL + "/" + aws.ToString(in.Key)}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if getErr != nil {
			return nil, getErr
		}
		return &v4.PresignedHTTPRequest{URL: getURL + "/" + aws.ToString(in.Key)}, nil
	}
}

func TestAvatarKey(t *testing.T) {
	key := AvatarKey("uid-1", "png")
	assert.True(t, strings.HasPrefix(key, "avatars/uid-1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	// repeated calls produce distinct objects
	assert.NotEqual(t, key, AvatarKey("uid-1", "png"))
}

func TestAvatarKey_DefaultsExtension(t *testing.T) {
	assert.True(t, strings.HasSuffix(AvatarKey("uid-1", ""), ".jpg"))
	assert.True(t, strings.HasSuffix(AvatarKey("uid-1", ".jpeg"), ".jpeg"))
}

func TestOwnsKey(t *testing.T) {
	assert.True(t, OwnsKey("uid-1", "avatars/uid-1/a.jpg"))
	assert.False(t, OwnsKey("uid-1", "avatars/uid-2/a.jpg"))
	assert.False(t, OwnsKey("uid-1", "other/uid-1/a.jpg"))
}

func TestNewUploadURL(t *testing.T) {
	stubPresign(t, "https://s3-put", "https://s3-get", nil, nil)

	s := NewStorageService(storageConfig())
	key, url, err := s.NewUploadURL(context.Background(), "uid-1", "png", "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "avatars/uid-1/"))
	assert.Equal(t, "https://s3-put/"+key, url)
}

func TestNewUploadURL_PresignError(t *testing.T) {
	stubPresign(t, "", "", errors.New("sign failed"), nil)

	s := NewStorageService(storageConfig())
	_, _, err := s.NewUploadURL(context.Background(), "uid-1", "png", "image/png")
	require.Error(t, err)
}

func TestDownloadURL(t *testing.T) {
	stubPresign(t, "https://s3-put", "https://s3-get", nil, nil)

	s := NewStorageService(storageConfig())
	url, err := s.DownloadURL(context.Background(), "avatars/uid-1/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://s3-get/avatars/uid-1/a.jpg", url)
}

func TestDownloadURL_PresignError(t *testing.T) {
	stubPresign(t, "", "", nil, errors.New("sign failed"))

	s := NewStorageService(storageConfig())
	_, err := s.DownloadURL(context.Background(), "avatars/uid-1/a.jpg")
	require.Error(t, err)
}
