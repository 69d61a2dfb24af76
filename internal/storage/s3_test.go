package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// apiError implements smithy.APIError for test assertions.
type apiError struct {
	code string
}

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// mockS3 is a thread-safe in-memory S3 backend.
type mockS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	putErr       error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte), contentTypes: make(map[string]string)}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	if in.ContentType != nil {
		m.contentTypes[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*in.Key]; !ok {
		return nil, &apiError{code: "NotFound"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3WriteReadWithPrefix(t *testing.T) {
	mock := newMockS3()
	s := NewS3(mock, "bucket", "rx")

	writeString(t, s, "answer.mp3", "mp3 data")
	if _, ok := mock.objects["rx/answer.mp3"]; !ok {
		t.Fatalf("object not stored under prefix: %v", mock.objects)
	}
	if got := readString(t, s, "answer.mp3"); got != "mp3 data" {
		t.Fatalf("got %q", got)
	}
}

func TestS3ReadNotFound(t *testing.T) {
	s := NewS3(newMockS3(), "bucket", "")
	_, err := s.Read(context.Background(), "nope")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestS3ExistsAndDelete(t *testing.T) {
	s := NewS3(newMockS3(), "bucket", "")
	ctx := context.Background()

	writeString(t, s, "k", "v")
	if ok, err := s.Exists(ctx, "k"); err != nil || !ok {
		t.Fatalf("Exists() = %v, %v", ok, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Exists(ctx, "k"); err != nil || ok {
		t.Fatalf("Exists() after delete = %v, %v", ok, err)
	}
}

func TestS3WriteSurfacesUploadError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("access denied")
	s := NewS3(mock, "bucket", "")

	w, err := s.Write(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("data"))
	if err := w.Close(); err == nil {
		t.Fatal("expected upload error on Close")
	}
}

func TestS3UploadSetsContentType(t *testing.T) {
	mock := newMockS3()
	s := NewS3(mock, "bucket", "")

	if err := s.Upload(context.Background(), "a.mp3", bytes.NewReader([]byte("x")), "audio/mpeg"); err != nil {
		t.Fatal(err)
	}
	if mock.contentTypes["a.mp3"] != "audio/mpeg" {
		t.Errorf("content type = %q", mock.contentTypes["a.mp3"])
	}
}
