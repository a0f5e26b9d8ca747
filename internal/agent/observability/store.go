package observability

import (
	"context"
	"encoding/json"
	"os"
	"sync"
)

// FileTraceStore appends agent runs to a JSONL file.
type FileTraceStore struct {
	mu sync.Mutex
	f  *os.File
}

// NewFileTraceStore opens (creating if needed) a JSONL trace file.
func NewFileTraceStore(path string) (*FileTraceStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileTraceStore{f: f}, nil
}

// SaveAgentRun appends one trace record.
func (s *FileTraceStore) SaveAgentRun(ctx context.Context, run *AgentRun) error {
	line, err := json.Marshal(run)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.f.Write(append(line, '\n'))
	return err
}

// Close closes the underlying file.
func (s *FileTraceStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// MemoryTraceStore collects runs in memory. Used in tests.
type MemoryTraceStore struct {
	mu   sync.Mutex
	runs []*AgentRun
}

// SaveAgentRun records the run.
func (s *MemoryTraceStore) SaveAgentRun(ctx context.Context, run *AgentRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

// Runs returns a copy of all recorded runs.
func (s *MemoryTraceStore) Runs() []*AgentRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*AgentRun, len(s.runs))
	copy(out, s.runs)
	return out
}
