package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// FileWalker provides parallel file system traversal for workspace scans
type FileWalker struct {
	workers    int
	bufferSize int
}

// NewFileWalker creates a new file walker optimized for performance
func NewFileWalker() *FileWalker {
	return &FileWalker{
		workers:    runtime.NumCPU() * 2, // 2x CPU cores for I/O bound work
		bufferSize: 1000,                 // Channel buffer size
	}
}

// FileScope describes what a walk should visit
type FileScope struct {
	Path     string
	Include  []string // doublestar patterns; empty means **/*.lua
	Exclude  []string // doublestar patterns
	MaxBytes int64    // 0 means unlimited
	MaxDepth int      // 0 means unlimited
}

// WalkResult represents a discovered file
type WalkResult struct {
	Path  string
	Info  fs.FileInfo
	Error error
}

// Walk performs parallel directory traversal with pattern matching
func (fw *FileWalker) Walk(ctx context.Context, scope FileScope) (<-chan WalkResult, error) {
	if err := fw.validateScope(scope); err != nil {
		return nil, err
	}

	results := make(chan WalkResult, fw.bufferSize)
	paths := make(chan string, fw.bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < fw.workers; i++ {
		wg.Add(1)
		go fw.worker(ctx, paths, results, scope, &wg)
	}

	go func() {
		defer close(paths)
		fw.scanDirectory(ctx, scope.Path, scope, paths, 0)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results, nil
}

func (fw *FileWalker) validateScope(scope FileScope) error {
	if scope.Path == "" {
		return fmt.Errorf("scope path is required")
	}

	info, err := os.Stat(scope.Path)
	if err != nil {
		return fmt.Errorf("scope path is not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("scope path is not a directory: %s", scope.Path)
	}

	return nil
}

func (fw *FileWalker) scanDirectory(
	ctx context.Context, dir string, scope FileScope, paths chan<- string, depth int,
) {
	if scope.MaxDepth > 0 && depth >= scope.MaxDepth {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		name := entry.Name()
		full := filepath.Join(dir, name)

		if entry.IsDir() {
			// Hidden and dependency directories are never interesting.
			if strings.HasPrefix(name, ".") || name == "node_modules" {
				continue
			}
			fw.scanDirectory(ctx, full, scope, paths, depth+1)
			continue
		}

		paths <- full
	}
}

func (fw *FileWalker) worker(
	ctx context.Context, paths <-chan string, results chan<- WalkResult,
	scope FileScope, wg *sync.WaitGroup,
) {
	defer wg.Done()

	for path := range paths {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !fw.matches(path, scope) {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			results <- WalkResult{Path: path, Error: err}
			continue
		}

		if scope.MaxBytes > 0 && info.Size() > scope.MaxBytes {
			continue
		}

		results <- WalkResult{Path: path, Info: info}
	}
}

// matches applies the include and exclude patterns to a path
func (fw *FileWalker) matches(path string, scope FileScope) bool {
	rel, err := filepath.Rel(scope.Path, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	include := scope.Include
	if len(include) == 0 {
		include = []string{"**/*.lua"}
	}

	for _, pattern := range scope.Exclude {
		if matched, err := doublestar.PathMatch(pattern, rel); err == nil && matched {
			return false
		}
		if matched, err := doublestar.PathMatch(pattern, filepath.Base(path)); err == nil && matched {
			return false
		}
	}

	for _, pattern := range include {
		if matched, err := doublestar.PathMatch(pattern, rel); err == nil && matched {
			return true
		}
		if matched, err := doublestar.PathMatch(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
