// Package storage keeps per-guild bot state in a JSON datastore.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/keshon/datastore"
)

const (
	commandHistoryLimit = 20
	trackHistoryLimit   = 12
)

type Storage struct {
	ds     *datastore.DataStore
	cancel context.CancelFunc
	mu     sync.Mutex
}

type CommandHistoryRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Param     string    `json:"param"`
	Datetime  time.Time `json:"datetime"`
}

type TrackHistoryRecord struct {
	TrackID  string    `json:"track_id"`
	Title    string    `json:"title"`
	Source   string    `json:"source"`
	PlayedAt time.Time `json:"played_at"`
}

// Record is everything stored for one guild.
type Record struct {
	Volume          *float64               `json:"volume,omitempty"`
	CommandsHistory []CommandHistoryRecord `json:"cmd_history"`
	TracksHistory   []TrackHistoryRecord   `json:"track_history"`
	CommandHashes   map[string]string      `json:"command_hashes"`
}

// New opens the datastore at filePath. The store saves periodically until ctx
// is cancelled or Close is called.
func New(ctx context.Context, filePath string) (*Storage, error) {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	ds, err := datastore.New(ctx, filePath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	return &Storage{ds: ds, cancel: cancel}, nil
}

// Close stops the autosave loop and writes the store to disk.
func (s *Storage) Close() error {
	s.cancel()
	return s.ds.Close()
}

func (s *Storage) guildRecord(guildID string) (*Record, error) {
	var record Record
	if _, err := s.ds.Get(guildID, &record); err != nil {
		return nil, fmt.Errorf("load guild %s: %w", guildID, err)
	}
	if record.CommandHashes == nil {
		record.CommandHashes = map[string]string{}
	}
	return &record, nil
}

// update is a read-modify-write of one guild record.
func (s *Storage) update(guildID string, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.guildRecord(guildID)
	if err != nil {
		return err
	}
	fn(record)
	if err := s.ds.Set(guildID, record); err != nil {
		return fmt.Errorf("save guild %s: %w", guildID, err)
	}
	return nil
}

// Volume returns the saved volume of a guild, if any.
func (s *Storage) Volume(guildID string) (float64, bool, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return 0, false, err
	}
	if record.Volume == nil {
		return 0, false, nil
	}
	return *record.Volume, true, nil
}

func (s *Storage) SetVolume(guildID string, volume float64) error {
	return s.update(guildID, func(r *Record) { r.Volume = &volume })
}

// AppendCommandToHistory keeps the latest commandHistoryLimit entries.
func (s *Storage) AppendCommandToHistory(guildID string, rec CommandHistoryRecord) error {
	return s.update(guildID, func(r *Record) {
		r.CommandsHistory = appendCapped(r.CommandsHistory, rec, commandHistoryLimit)
	})
}

func (s *Storage) FetchCommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistory, nil
}

// AppendTrackToHistory keeps the latest trackHistoryLimit entries.
func (s *Storage) AppendTrackToHistory(guildID string, rec TrackHistoryRecord) error {
	return s.update(guildID, func(r *Record) {
		r.TracksHistory = appendCapped(r.TracksHistory, rec, trackHistoryLimit)
	})
}

// FetchTrackHistory returns played tracks, oldest first.
func (s *Storage) FetchTrackHistory(guildID string) ([]TrackHistoryRecord, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.TracksHistory, nil
}

// CommandHashes returns the slash command definition hashes last pushed to
// Discord for a guild.
func (s *Storage) CommandHashes(guildID string) (map[string]string, error) {
	record, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandHashes, nil
}

func (s *Storage) SetCommandHashes(guildID string, hashes map[string]string) error {
	return s.update(guildID, func(r *Record) { r.CommandHashes = hashes })
}

func appendCapped[T any](list []T, item T, limit int) []T {
	list = append(list, item)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}
