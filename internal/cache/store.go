package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"holderscan/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
)

var (
	// ErrNotFound is returned by Load when no snapshot was ever saved.
	ErrNotFound = errors.New("cache: no snapshot")
	// ErrCacheUnavailable wraps storage and decoding failures. Callers treat it as a miss.
	ErrCacheUnavailable = errors.New("cache unavailable")
)

const fileExt = ".json"

// Snapshot holds every transfer of a token from deployment through MaxBlock inclusive.
type Snapshot struct {
	Events   []types.TransferEvent
	MaxBlock uint64
}

// Store persists transfer snapshots per network and token.
type Store interface {
	// Load returns the most advanced readable snapshot, or ErrNotFound.
	Load(ctx context.Context, network, token string) (*Snapshot, error)
	// Save writes snapshot as a new file. Older snapshots are kept.
	Save(ctx context.Context, network, token string, snapshot *Snapshot) error
}

// FileStore keeps one JSON file per snapshot under
// <root>/erc-20/<network>/<token>/transfers/<maxBlock>.json.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Dir returns the directory holding the snapshots of a token.
func (s *FileStore) Dir(network, token string) string {
	return filepath.Join(s.root, "erc-20", safeName(network), safeName(token), "transfers")
}

func (s *FileStore) Load(ctx context.Context, network, token string) (*Snapshot, error) {
	dir := s.Dir(network, token)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	files := snapshotFiles(entries)
	if len(files) == 0 {
		return nil, ErrNotFound
	}

	// newest first; an unreadable file falls back to the next older one
	logger := logx.WithContext(ctx)
	var lastErr error
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		snapshot, err := readSnapshot(path, file.block)
		if err != nil {
			lastErr = err
			logger.Errorf("skipping cache file %s: %v", path, err)
			continue
		}

		logger.Infof("loaded %d cached transfer events of %s/%s up to block %d",
			len(snapshot.Events), network, token, snapshot.MaxBlock)
		return snapshot, nil
	}
	return nil, fmt.Errorf("%w: no readable snapshot in %s: %v", ErrCacheUnavailable, dir, lastErr)
}

func readSnapshot(path string, block uint64) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	snapshot, err := decodeSnapshot(data, block)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return snapshot, nil
}

func (s *FileStore) Save(ctx context.Context, network, token string, snapshot *Snapshot) error {
	dir := s.Dir(network, token)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	name := strconv.FormatUint(snapshot.MaxBlock, 10) + fileExt
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}

	logx.WithContext(ctx).Infof("JSON successfully generated at %s (%d events)", path, len(snapshot.Events))
	return nil
}

type snapshotFile struct {
	name  string
	block uint64
}

// snapshotFiles lists the <block>.json entries, highest block first.
// Anything else in the directory (.DS_Store, temp files) is ignored.
func snapshotFiles(entries []os.DirEntry) []snapshotFile {
	var files []snapshotFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		block, err := strconv.ParseUint(strings.TrimSuffix(entry.Name(), fileExt), 10, 64)
		if err != nil {
			continue
		}
		files = append(files, snapshotFile{name: entry.Name(), block: block})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].block > files[j].block
	})
	return files
}

func safeName(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
