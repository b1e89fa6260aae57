package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"payorledger/internal/blob/core"
)

type fakeObject struct {
	body        []byte
	contentType string
	meta        map[string]string
}

// fakeAPI is an in-memory bucket that pages listings one object at a time.
type fakeAPI struct {
	objs    map[string]fakeObject
	puts    int
	deletes int
	failPut error
}

func newFake() *fakeAPI { return &fakeAPI{objs: make(map[string]fakeObject)} }

var stamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	o, ok := f.objs[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(o.body))),
		ContentType:   aws.String(o.contentType),
		ETag:          aws.String(`"etag"`),
		Metadata:      o.meta,
		LastModified:  aws.Time(stamp),
	}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	o, ok := f.objs[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(o.body)),
		ContentLength: aws.Int64(int64(len(o.body))),
		ContentType:   aws.String(o.contentType),
		LastModified:  aws.Time(stamp),
	}, nil
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts++
	f.objs[aws.ToString(in.Key)] = fakeObject{body: b, contentType: aws.ToString(in.ContentType), meta: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes++
	delete(f.objs, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objs {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if start < len(keys) {
		k := keys[start]
		out.Contents = []types.Object{{Key: aws.String(k), Size: aws.Int64(int64(len(f.objs[k].body)))}}
		if start+1 < len(keys) {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(keys[start+1])
		}
	}
	return out, nil
}

func TestPutGetHead(t *testing.T) {
	ctx := context.Background()
	api := newFake()
	s := NewWithAPI(api, "ledger")
	info, err := s.Put(ctx, "backups/a.json", strings.NewReader("{}"), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"rows": "1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 2 || info.Checksum != "etag" || info.Metadata["rows"] != "1" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "backups/a.json", strings.NewReader("{}"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if api.puts != 1 {
		t.Fatalf("duplicate put reached the bucket")
	}
	_, rc, err := s.Get(ctx, "backups/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "{}" {
		t.Fatalf("unexpected body %q", b)
	}
	if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPaginates(t *testing.T) {
	ctx := context.Background()
	s := NewWithAPI(newFake(), "ledger")
	for _, k := range []string{"backups/c", "backups/a", "backups/b", "other/x"} {
		if _, err := s.Put(ctx, k, strings.NewReader(k), core.PutOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := s.List(ctx, "backups/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Key != "backups/a" || list[2].Key != "backups/c" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestDeleteProbesExistence(t *testing.T) {
	ctx := context.Background()
	api := newFake()
	s := NewWithAPI(api, "ledger")
	if ok, err := s.Delete(ctx, "nope"); ok || err != nil {
		t.Fatalf("missing key: %v %v", ok, err)
	}
	if api.deletes != 0 {
		t.Fatalf("missing key should not reach the bucket")
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("v"), core.PutOptions{}); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Delete(ctx, "k"); !ok || err != nil {
		t.Fatalf("delete: %v %v", ok, err)
	}
}

func TestPutFailurePropagates(t *testing.T) {
	api := newFake()
	api.failPut = errors.New("denied")
	s := NewWithAPI(api, "ledger")
	if _, err := s.Put(context.Background(), "k", strings.NewReader("v"), core.PutOptions{}); err == nil || !strings.Contains(err.Error(), "denied") {
		t.Fatalf("expected put failure, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}
