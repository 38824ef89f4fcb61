package station

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

const (
	DefaultPollInterval = 200 * time.Millisecond

	// maxFrameSide bounds frames before decoding; phone captures are far
	// larger than a QR code needs.
	maxFrameSide = 1600
)

var ErrSourceClosed = errors.New("frame source closed")

var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// DirectorySource reads frames that a capture tool drops into a directory.
// Files already present when the source opens are ignored.
type DirectorySource struct {
	dir             string
	pollInterval    time.Duration
	removeProcessed bool

	mu      sync.Mutex
	open    bool
	seen    map[string]struct{}
	pending []string
}

func NewDirectorySource(dir string, pollInterval time.Duration, removeProcessed bool) *DirectorySource {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &DirectorySource{
		dir:             dir,
		pollInterval:    pollInterval,
		removeProcessed: removeProcessed,
	}
}

func (s *DirectorySource) Open(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("open frames dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("open frames dir: %s is not a directory", s.dir)
	}

	names, err := s.frameNames()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = make(map[string]struct{}, len(names))
	for _, n := range names {
		s.seen[n] = struct{}{}
	}
	s.pending = nil
	s.open = true
	return nil
}

func (s *DirectorySource) Next(ctx context.Context) (image.Image, error) {
	for {
		path, err := s.nextPath()
		if err != nil {
			return nil, err
		}

		if path != "" {
			img, err := s.load(path)
			if err != nil {
				// usually a frame still being written; it will not be retried
				slog.Warn("Skipping unreadable frame", "path", path, "error", err)
				continue
			}
			return img, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

func (s *DirectorySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = false
	s.pending = nil
	return nil
}

// nextPath returns the oldest unseen frame, or "" when there is none yet.
func (s *DirectorySource) nextPath() (string, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return "", ErrSourceClosed
	}
	if len(s.pending) == 0 {
		s.mu.Unlock()

		names, err := s.frameNames()
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		for _, n := range names {
			if _, ok := s.seen[n]; ok {
				continue
			}
			s.seen[n] = struct{}{}
			s.pending = append(s.pending, n)
		}
	}
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return "", nil
	}
	next := s.pending[0]
	s.pending = s.pending[1:]
	return filepath.Join(s.dir, next), nil
}

func (s *DirectorySource) load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if s.removeProcessed {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			slog.Warn("os.Remove()", "path", path, "error", rmErr)
		}
	}
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() > maxFrameSide || b.Dy() > maxFrameSide {
		img = imaging.Fit(img, maxFrameSide, maxFrameSide, imaging.Linear)
	}
	return img, nil
}

// frameNames lists image files sorted by name, which capture tools number
// in order.
func (s *DirectorySource) frameNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
