package s3archive

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/QuizFox/internal/pkg/env"
)

type memObjects struct {
	objects map[string][]byte
	meta    map[string]map[string]string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, meta: map[string]map[string]string{}}
}

func (m *memObjects) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	m.objects[key] = b
	m.meta[key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func (m *memObjects) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (m *memObjects) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 5, time.FixedZone("WIB", 7*3600))
	cfg := &Config{Prefix: "webhooks"}

	assert.Equal(t, "webhooks/midtrans/2026/03/10/QF-42-PRO-1-1773108000000000005.json", cfg.ObjectKey("midtrans", "QF-42-PRO-1", at))
	assert.Equal(t, "midtrans/2026/03/10/a_b_c-1773108000000000005.json", (&Config{}).ObjectKey("midtrans", "a/b c", at))
}

func TestPutGetExists(t *testing.T) {
	api := newMemObjects()
	c := NewClientWithAPI(api, &Config{BucketName: "archive", Enabled: true})
	ctx := context.Background()

	exists, err := c.Exists(ctx, "k.json")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, c.Put(ctx, "k.json", []byte(`{"order_id":"x"}`), map[string]string{"order-id": "x"}))
	assert.Equal(t, "x", api.meta["archive/k.json"]["order-id"])

	exists, err = c.Exists(ctx, "k.json")
	require.NoError(t, err)
	assert.True(t, exists)

	body, err := c.Get(ctx, "k.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_id":"x"}`, string(body))
}

func TestLoadConfig(t *testing.T) {
	env.Env = map[string]string{"S3_ARCHIVE_ENABLED": "true", "S3_ACCESS_KEY_ID": "id"}
	t.Cleanup(func() { env.Env = nil })

	_, err := LoadConfig()
	assert.Error(t, err)

	env.Env["S3_SECRET_ACCESS_KEY"] = "secret"
	env.Env["S3_BUCKET_NAME"] = "quizfox-archive"
	env.Env["S3_ARCHIVE_PREFIX"] = "/raw/"
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, "raw", cfg.Prefix)
}
