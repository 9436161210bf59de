package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"golang.org/x/crypto/blake2b"

	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

const cidPrefix = "b2"

// Object - метаданные объекта хранилища.
type Object struct {
	CID         string `json:"cid"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// BlobStore - контент-адресуемое хранилище спецификаций, решений и отзывов.
type BlobStore interface {
	Put(ctx context.Context, content []byte) (Object, error)
	Get(ctx context.Context, cid string) (Object, []byte, error)
}

// ContentID вычисляет идентификатор содержимого: "b2" + hex(blake2b-256).
func ContentID(content []byte) string {
	sum := blake2b.Sum256(content)
	return cidPrefix + hex.EncodeToString(sum[:])
}

func parseCID(cid string) (string, error) {
	digest := strings.TrimPrefix(cid, cidPrefix)
	if len(digest) != 2*blake2b.Size256 || digest == cid {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный идентификатор содержимого")
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный идентификатор содержимого")
	}
	return digest, nil
}

// DetectContentType определяет MIME по сигнатуре, затем отличает JSON и текст.
func DetectContentType(content []byte) string {
	if kind, err := filetype.Match(content); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if json.Valid(content) {
		return "application/json"
	}
	if utf8.Valid(content) {
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}

// FSStore хранит объекты в каталоге: <root>/<первые 2 символа>/<digest>.
type FSStore struct {
	rootPath string
	maxBytes int64
}

func NewFSStore(rootPath string, maxMB int64) (*FSStore, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}
	return &FSStore{rootPath: rootPath, maxBytes: maxMB * 1024 * 1024}, nil
}

func (s *FSStore) path(digest string) string {
	return filepath.Join(s.rootPath, digest[:2], digest)
}

// Put сохраняет содержимое. Повторная запись того же содержимого ничего не меняет.
func (s *FSStore) Put(ctx context.Context, content []byte) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return Object{}, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("размер содержимого превышает лимит %d байт", s.maxBytes))
	}

	cid := ContentID(content)
	obj := Object{CID: cid, ContentType: DetectContentType(content), Size: int64(len(content))}
	target := s.path(strings.TrimPrefix(cid, cidPrefix))

	if _, err := os.Stat(target); err == nil {
		return obj, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Object{}, fmt.Errorf("storage: не удалось создать каталог: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(target), "put-*.tmp")
	if err != nil {
		return Object{}, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	tempPath := f.Name()
	if _, err := f.Write(content); err != nil {
		f.Close()
		_ = os.Remove(tempPath)
		return Object{}, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return Object{}, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tempPath, target); err != nil {
		_ = os.Remove(tempPath)
		return Object{}, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}
	return obj, nil
}

func (s *FSStore) Get(ctx context.Context, cid string) (Object, []byte, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, nil, err
	}
	digest, err := parseCID(cid)
	if err != nil {
		return Object{}, nil, err
	}
	content, err := os.ReadFile(s.path(digest))
	if os.IsNotExist(err) {
		return Object{}, nil, apperror.ErrBlobNotFound
	}
	if err != nil {
		return Object{}, nil, fmt.Errorf("storage: не удалось прочитать файл: %w", err)
	}
	return Object{CID: cid, ContentType: DetectContentType(content), Size: int64(len(content))}, content, nil
}

// MemoryStore - BlobStore в памяти для STORE_DRIVER=memory и тестов.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, content []byte) (Object, error) {
	cid := ContentID(content)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[cid]; !ok {
		s.objects[cid] = append([]byte(nil), content...)
	}
	return Object{CID: cid, ContentType: DetectContentType(content), Size: int64(len(content))}, nil
}

func (s *MemoryStore) Get(_ context.Context, cid string) (Object, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.objects[cid]
	if !ok {
		return Object{}, nil, apperror.ErrBlobNotFound
	}
	out := append([]byte(nil), content...)
	return Object{CID: cid, ContentType: DetectContentType(out), Size: int64(len(out))}, out, nil
}
