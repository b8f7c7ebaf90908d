package store

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 records puts and serves heads/gets from memory.
type fakeS3 struct {
	objects map[string][]byte
	puts    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func testS3(t *testing.T) (*S3, *fakeS3) {
	t.Helper()
	fake := newFakeS3()
	st := &S3{client: fake, cfg: normalizeS3Config(S3Config{
		Bucket:        "assets",
		Region:        "us-east-1",
		KeyPrefix:     "news-img",
		PublishPrefix: "cache",
		PublicBaseURL: "https://assets.example.com/",
	})}
	return st, fake
}

func TestS3ExistsWriteRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, fake := testS3(t)

	ok, err := st.Exists(ctx, "abc", ".png")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatal("expected miss before write")
	}

	if err := st.Write(ctx, "abc", ".png", []byte("img"), "image/png"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := fake.objects["news-img/abc.png"]; !ok {
		t.Fatalf("object stored under unexpected key: %v", keys(fake.objects))
	}

	ok, err = st.Exists(ctx, "abc", ".png")
	if err != nil {
		t.Fatalf("exists after write: %v", err)
	}
	if !ok {
		t.Error("expected hit after write")
	}
}

func TestS3PublicRef(t *testing.T) {
	st, _ := testS3(t)
	want := "https://assets.example.com/news-img/abc.png"
	if got := st.PublicRef("abc", ".png"); got != want {
		t.Errorf("PublicRef = %q, want %q", got, want)
	}
}

func TestS3PublishRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, fake := testS3(t)

	payload := []byte(`{"updatedAt":"x"}`)
	if err := st.Publish(ctx, "prices.json", payload, "application/json"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, ok := fake.objects["cache/prices.json"]; !ok {
		t.Fatalf("payload stored under unexpected key: %v", keys(fake.objects))
	}

	got, err := st.ReadPublished(ctx, "prices.json")
	if err != nil {
		t.Fatalf("read published: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func keys(m map[string][]byte) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}
