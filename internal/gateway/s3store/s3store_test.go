package s3store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"itsaportal/internal/gateway"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	put     *s3.PutObjectInput
	body    string
	err     error
	expires time.Duration
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.err
}

func (f *fakeS3) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var o s3.PresignOptions
	for _, fn := range optFns {
		fn(&o)
	}
	f.expires = o.Expires
	return &v4.PresignedHTTPRequest{
		URL:          "https://bucket.example/" + *in.Bucket + "/" + *in.Key + "?sig=x",
		Method:       http.MethodGet,
		SignedHeader: http.Header{},
	}, nil
}

func TestUploadSendsObject(t *testing.T) {
	f := &fakeS3{}
	st := New(f, f)
	err := st.Upload(context.Background(), "documents", "c1/1.pdf", strings.NewReader("pdf"), 3, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "documents", *f.put.Bucket)
	assert.Equal(t, "c1/1.pdf", *f.put.Key)
	assert.Equal(t, int64(3), *f.put.ContentLength)
	assert.Equal(t, "application/pdf", *f.put.ContentType)
	assert.Equal(t, "pdf", f.body)
}

func TestUploadFailureIsGatewayError(t *testing.T) {
	f := &fakeS3{err: errors.New("AccessDenied")}
	err := New(f, f).Upload(context.Background(), "documents", "k", strings.NewReader(""), 0, "")
	var ge *gateway.Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "AccessDenied", err.Error())
	assert.Nil(t, f.put.ContentLength)
	assert.Nil(t, f.put.ContentType)
}

func TestSignedURLUsesTTL(t *testing.T) {
	f := &fakeS3{}
	u, err := New(f, f).SignedURL(context.Background(), "documents", "c1/1.pdf", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "documents/c1/1.pdf")
	assert.Equal(t, 15*time.Minute, f.expires)
}
