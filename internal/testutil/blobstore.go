package testutil

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/bigkaa/fileshare/internal/storage/blob"
)

// BlobStore — in-memory blob.Store со счётчиками вызовов.
type BlobStore struct {
	mu      sync.Mutex
	objects map[string]storedObject

	GetCalls    int
	PutCalls    int
	DeleteCalls int

	// PutErr, GetErr, PingErr — ошибки соответствующих методов
	PutErr  error
	GetErr  error
	PingErr error
	// DeleteFailFor — ключи, удаление которых завершается ошибкой
	DeleteFailFor map[string]error
}

type storedObject struct {
	data        []byte
	contentType string
	modTime     time.Time
}

var _ blob.Store = (*BlobStore)(nil)

// NewBlobStore создаёт пустое хранилище.
func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string]storedObject)}
}

// Seed кладёт объект напрямую.
func (s *BlobStore) Seed(key string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = storedObject{data: data, contentType: contentType, modTime: time.Now()}
}

// Has сообщает, есть ли объект.
func (s *BlobStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Data возвращает содержимое объекта.
func (s *BlobStore) Data(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key].data
}

// Len возвращает число объектов.
func (s *BlobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *BlobStore) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (int64, error) {
	s.mu.Lock()
	s.PutCalls++
	putErr := s.PutErr
	s.mu.Unlock()
	if putErr != nil {
		return 0, putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.Seed(key, data, contentType)
	return int64(len(data)), nil
}

func (s *BlobStore) Get(_ context.Context, key string) (*blob.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetCalls++
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	obj, ok := s.objects[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return &blob.Object{
		Body:        nopSeekCloser{bytes.NewReader(obj.data)},
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		ModTime:     obj.modTime,
	}, nil
}

func (s *BlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeleteCalls++
	if err := s.DeleteFailFor[key]; err != nil {
		return err
	}
	delete(s.objects, key)
	return nil
}

func (s *BlobStore) Ping(context.Context) error {
	return s.PingErr
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }
