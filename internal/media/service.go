// Package media keeps the bot-wide lists of saved links (images, media and
// files) and persists them through a Persister.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

type Kind string

const (
	Images Kind = "images"
	Media  Kind = "media"
	Files  Kind = "files"
)

var Kinds = []Kind{Images, Media, Files}

var (
	ErrInvalidLink = errors.New("not a valid link, must start with 'http'")
	ErrEmptyList   = errors.New("list is empty")
	ErrUnknownKind = errors.New("unknown list kind")
)

// Key is the name the list is persisted under.
func (k Kind) Key() string {
	return strings.ToUpper(string(k))
}

func (k Kind) Label() string {
	switch k {
	case Images:
		return "Image"
	case Media:
		return "Media"
	case Files:
		return "File"
	}
	return string(k)
}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

type Persister interface {
	LoadList(ctx context.Context, key string) ([]string, error)
	SaveList(ctx context.Context, key string, links []string) error
}

type Service struct {
	mu    sync.RWMutex
	lists map[Kind][]string
	store Persister
}

// NewService returns an empty service. A nil store keeps lists in memory only.
func NewService(store Persister) *Service {
	return &Service{lists: make(map[Kind][]string), store: store}
}

func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range Kinds {
		links, err := s.store.LoadList(ctx, k.Key())
		if err != nil {
			return fmt.Errorf("load %s: %w", k.Key(), err)
		}
		s.lists[k] = links
	}
	return nil
}

// commit persists next as the list of kind k and makes it current. On a
// persistence error the previous list stays. Must be called with s.mu held.
func (s *Service) commit(ctx context.Context, k Kind, next []string) error {
	if s.store != nil {
		if err := s.store.SaveList(ctx, k.Key(), next); err != nil {
			logger.Error("Failed to persist list", "kind", k, "error", err)
			return fmt.Errorf("save %s: %w", k.Key(), err)
		}
	}
	s.lists[k] = next
	return nil
}

// Add appends link and returns the new list length.
func (s *Service) Add(ctx context.Context, k Kind, link string) (int, error) {
	link = strings.TrimSpace(link)
	if !strings.HasPrefix(link, "http") {
		return 0, ErrInvalidLink
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[k]
	next := append(list[:len(list):len(list)], link)
	if err := s.commit(ctx, k, next); err != nil {
		return len(list), err
	}
	return len(next), nil
}

// At returns the link at index after wrapping it into range, the wrapped
// index and the list length.
func (s *Service) At(k Kind, index int) (string, int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.lists[k]
	if len(list) == 0 {
		return "", 0, 0, ErrEmptyList
	}
	i := HandleIndex(index, len(list))
	return list[i], i, len(list), nil
}

// Remove deletes the link at index (wrapped into range) and returns how many remain.
func (s *Service) Remove(ctx context.Context, k Kind, index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[k]
	if len(list) == 0 {
		return 0, ErrEmptyList
	}
	i := HandleIndex(index, len(list))
	next := append(list[:i:i], list[i+1:]...)
	if err := s.commit(ctx, k, next); err != nil {
		return len(list), err
	}
	return len(next), nil
}

func (s *Service) Clear(ctx context.Context, k Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, k, nil)
}

func (s *Service) Len(k Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lists[k])
}

// List returns a copy of the links of kind k.
func (s *Service) List(k Kind) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.lists[k]...)
}

// HandleIndex wraps index into [0, n), so -1 is the last element and n the first.
func HandleIndex(index, n int) int {
	if n <= 0 {
		return 0
	}
	index %= n
	if index < 0 {
		index += n
	}
	return index
}
