package export

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileNames(t *testing.T) {
	assert.Equal(t, "cv.pdf", CVFileName(types.FormatPDF))
	assert.Equal(t, "cv.docx", CVFileName(types.FormatDOCX))
	assert.Equal(t, "cover-letter.pdf", LetterFileName(types.FormatPDF))
}

func TestDir_Put(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewDir(dir)

	loc, err := sink.Put(context.Background(), "cv.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cv.pdf"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))

	// replaced on second export
	_, err = sink.Put(context.Background(), "cv.pdf", "application/pdf", []byte("v2"))
	require.NoError(t, err)
	data, _ = os.ReadFile(loc)
	assert.Equal(t, "v2", string(data))
}

func TestDir_RejectsPaths(t *testing.T) {
	sink := NewDir(t.TempDir())
	for _, name := range []string{"", "..", "../cv.pdf", `a\b`} {
		_, err := sink.Put(context.Background(), name, "", nil)
		var exportErr *Error
		assert.ErrorAs(t, err, &exportErr, name)
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3_Put(t *testing.T) {
	fake := &fakeS3{}
	sink := newS3(fake, "exports", "users/ada")

	loc, err := sink.Put(context.Background(), "cv.docx", types.FormatDOCX.ContentType(), []byte("doc"))
	require.NoError(t, err)
	assert.Equal(t, "s3://exports/users/ada/cv.docx", loc)
	assert.Equal(t, "exports", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "users/ada/cv.docx", aws.ToString(fake.input.Key))
	assert.Equal(t, types.FormatDOCX.ContentType(), aws.ToString(fake.input.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(fake.input.ContentLength))
	assert.Equal(t, "doc", string(fake.body))
}

func TestS3_PutError(t *testing.T) {
	sink := newS3(&fakeS3{err: errors.New("access denied")}, "exports", "")
	_, err := sink.Put(context.Background(), "cv.pdf", "application/pdf", nil)
	var exportErr *Error
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, "cv.pdf", exportErr.Name)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestNewS3_StaticCredentials(t *testing.T) {
	sink, err := NewS3(context.Background(), S3Config{
		Bucket:          "exports",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "exports", sink.bucket)
}
