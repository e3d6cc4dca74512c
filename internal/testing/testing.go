// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/services"
)

// MockCatalog is a test double for [services.Catalog] and [services.PlaylistLister].
//
// Search answers from Results keyed by query, falling back to the "*" key.
// PlaylistPage answers from Pages keyed by page token ("" is the first page).
type MockCatalog struct {
	mu sync.Mutex

	ServiceName string
	Results     map[string][]models.CatalogResult
	SearchErr   error
	Delay       time.Duration
	Pages       map[string]*services.PlaylistPage
	PageErr     error
	InsertErr   error

	Queries   []string
	PageCalls []string
	Inserted  []string
}

func (m *MockCatalog) Name() string {
	if m.ServiceName == "" {
		return "mock"
	}
	return m.ServiceName
}

func (m *MockCatalog) Search(ctx context.Context, query string, limit int) ([]models.CatalogResult, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	delay := m.Delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	results, ok := m.Results[query]
	if !ok {
		results = m.Results["*"]
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MockCatalog) PlaylistPage(ctx context.Context, playlistID, pageToken string) (*services.PlaylistPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PageCalls = append(m.PageCalls, pageToken)
	if m.PageErr != nil {
		return nil, m.PageErr
	}
	if page, ok := m.Pages[pageToken]; ok {
		return page, nil
	}
	return &services.PlaylistPage{}, nil
}

func (m *MockCatalog) AddToPlaylist(ctx context.Context, playlistID, trackRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.Inserted = append(m.Inserted, trackRef)
	return nil
}

// SearchCount returns the number of Search calls so far.
func (m *MockCatalog) SearchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// SentMessage is one outbound message captured by [MockChat].
type SentMessage struct {
	ChatID   int64
	Text     string
	Photo    string
	Keyboard services.Keyboard
}

// SentPoll is one poll captured by [MockChat].
type SentPoll struct {
	ChatID   int64
	Question string
	Options  []string
	ReplyTo  int64
}

// MockChat is a recording test double for the Telegram transport.
type MockChat struct {
	mu sync.Mutex

	Members    int
	MembersErr error
	PollErr    error
	StopErr    error
	PhotoErr   error
	NextPollID string

	Messages  []SentMessage
	Edits     []string
	Deleted   []int64
	Answers   []string
	Polls     []SentPoll
	Stopped   []int64
	messageID int64
}

func (m *MockChat) nextID() int64 {
	m.messageID++
	return m.messageID
}

func (m *MockChat) MemberCount(ctx context.Context, chatID int64) (int, error) {
	if m.MembersErr != nil {
		return 0, m.MembersErr
	}
	return m.Members, nil
}

func (m *MockChat) SendPoll(ctx context.Context, chatID int64, question string, options []string, replyTo int64) (int64, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PollErr != nil {
		return 0, "", m.PollErr
	}
	m.Polls = append(m.Polls, SentPoll{ChatID: chatID, Question: question, Options: options, ReplyTo: replyTo})
	id := m.NextPollID
	if id == "" {
		id = fmt.Sprintf("poll-%d", len(m.Polls))
	}
	return m.nextID(), id, nil
}

func (m *MockChat) StopPoll(ctx context.Context, chatID, messageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Stopped = append(m.Stopped, messageID)
	return m.StopErr
}

func (m *MockChat) SendMessage(ctx context.Context, chatID int64, text string, keyboard services.Keyboard) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Messages = append(m.Messages, SentMessage{ChatID: chatID, Text: text, Keyboard: keyboard})
	return m.nextID(), nil
}

func (m *MockChat) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PhotoErr != nil {
		return 0, m.PhotoErr
	}
	m.Messages = append(m.Messages, SentMessage{ChatID: chatID, Text: caption, Photo: photoURL})
	return m.nextID(), nil
}

func (m *MockChat) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Edits = append(m.Edits, text)
	return nil
}

func (m *MockChat) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Deleted = append(m.Deleted, messageID)
	return nil
}

func (m *MockChat) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Answers = append(m.Answers, text)
	return nil
}

// Sent returns a copy of the captured messages.
func (m *MockChat) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.Messages...)
}

// StopCount returns the number of StopPoll calls.
func (m *MockChat) StopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Stopped)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
