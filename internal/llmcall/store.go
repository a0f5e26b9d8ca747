package llmcall

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
)

// FileStore appends call records to a JSONL file. Writes are queued and
// flushed by a background goroutine so recording never blocks a model call.
type FileStore struct {
	mu     sync.Mutex
	f      *os.File
	queue  chan *Call
	done   chan struct{}
	logger *slog.Logger
}

// NewFileStore opens (creating if needed) a JSONL call log.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &FileStore{
		f:      f,
		queue:  make(chan *Call, 256),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.drain()
	return s, nil
}

// Append queues a record for writing. Drops the record with a warning when
// the queue is full rather than blocking the caller.
func (s *FileStore) Append(call *Call) {
	select {
	case s.queue <- call:
	default:
		s.logger.Warn("llm call log queue full, dropping record", "call_id", call.ID)
	}
}

func (s *FileStore) drain() {
	defer close(s.done)
	for call := range s.queue {
		line, err := json.Marshal(call)
		if err != nil {
			s.logger.Warn("failed to marshal llm call record", "error", err)
			continue
		}
		s.mu.Lock()
		if _, err := s.f.Write(append(line, '\n')); err != nil {
			s.logger.Warn("failed to write llm call record", "error", err)
		}
		s.mu.Unlock()
	}
}

// Close flushes pending records and closes the file.
func (s *FileStore) Close() error {
	close(s.queue)
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
