package objectclient

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/StudyCoach/internal/config"
)

func TestMaterialKey(t *testing.T) {
	assert.Equal(t, "materials/abc/notes.pdf", MaterialKey("abc", "notes.pdf"))
	assert.Equal(t, "materials/abc/evil.pdf", MaterialKey("abc", "../../evil.pdf"))
	assert.Equal(t, "materials/abc/x.pdf", MaterialKey("abc", `C:\Users\me\x.pdf`))
	assert.Equal(t, "materials/abc/document.pdf", MaterialKey("abc", ""))
}

func TestObjectURL(t *testing.T) {
	aws := &S3Client{region: "us-east-2"}
	assert.Equal(t, "https://b.s3.us-east-2.amazonaws.com/k.pdf", aws.objectURL("b", "k.pdf"))

	minio := &S3Client{region: "us-east-2", endpoint: "http://localhost:9000"}
	assert.Equal(t, "http://localhost:9000/b/k.pdf", minio.objectURL("b", "k.pdf"))
}

func TestNewS3ClientRequiresCredentials(t *testing.T) {
	_, err := NewS3Client(context.Background(), &config.Config{AwsRegion: "us-east-2", BucketName: "b"}, zerolog.Nop())
	require.Error(t, err)

	_, err = NewS3Client(context.Background(), &config.Config{AwsAccessKey: "a", AwsSecretKey: "s", BucketName: "b"}, zerolog.Nop())
	require.Error(t, err)

	c, err := NewS3Client(context.Background(), &config.Config{
		AwsAccessKey: "a", AwsSecretKey: "s", AwsRegion: "us-east-2", BucketName: "b", S3Endpoint: "http://localhost:9000/",
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", c.endpoint)
}
