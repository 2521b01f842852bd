package project

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Subdirectories every project carries.
const (
	VideosDir   = "videos"
	CaptionsDir = "captions"
	BurnedDir   = "burned"
)

// Static errors for project management.
var (
	ErrProjectExists   = errors.New("project: already exists")
	ErrProjectNotFound = errors.New("project: not found")
	ErrNotAProject     = errors.New("project: directory does not look like a project")
)

// Project summarizes one project directory.
type Project struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	VideoCount   int    `json:"video_count"`
	CaptionCount int    `json:"caption_count"`
	BurnedCount  int    `json:"burned_count"`
}

// FileStat describes one file inside a project subdirectory.
type FileStat struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	Modified  time.Time `json:"modified"`
}

// DirStats aggregates the files of one project subdirectory.
type DirStats struct {
	Count          int        `json:"count"`
	TotalSizeBytes int64      `json:"total_size_bytes"`
	Files          []FileStat `json:"files"`
}

// Stats is the detailed view of a project.
type Stats struct {
	Name         string     `json:"name"`
	Videos       DirStats   `json:"videos"`
	Captions     DirStats   `json:"captions"`
	Burned       DirStats   `json:"burned"`
	LastActivity *time.Time `json:"last_activity"`
}

// Manager performs project CRUD under a root directory.
type Manager struct {
	root           string
	defaultProject string
	logger         *slog.Logger
}

// NewManager creates a Manager rooted at root. defaultProject is created
// by EnsureDefault when the root holds no projects.
func NewManager(root, defaultProject string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{root: root, defaultProject: defaultProject, logger: logger}
}

// Root returns the directory holding all projects.
func (m *Manager) Root() string {
	return m.root
}

// Dir returns the directory of a sanitized project name.
func (m *Manager) Dir(name string) (string, error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.root, clean), nil
}

// Create makes a new project with its videos, captions and burned subdirectories.
func (m *Manager) Create(name string) (Project, error) {
	dir, err := m.Dir(name)
	if err != nil {
		return Project{}, err
	}
	if _, err := os.Stat(dir); err == nil {
		return Project{}, fmt.Errorf("%w: %s", ErrProjectExists, filepath.Base(dir))
	}

	for _, sub := range []string{VideosDir, CaptionsDir, BurnedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return Project{}, fmt.Errorf("project: create %s: %w", sub, err)
		}
	}

	m.logger.Info("project created", slog.String("project", filepath.Base(dir)))
	return m.summarize(dir), nil
}

// List returns all projects sorted by name.
func (m *Manager) List() ([]Project, error) {
	entries, err := os.ReadDir(m.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []Project{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project: list: %w", err)
	}

	projects := make([]Project, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		projects = append(projects, m.summarize(filepath.Join(m.root, e.Name())))
	}
	return projects, nil
}

// Get returns one project.
func (m *Manager) Get(name string) (Project, error) {
	dir, err := m.Dir(name)
	if err != nil {
		return Project{}, err
	}
	if !isDir(dir) {
		return Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, filepath.Base(dir))
	}
	return m.summarize(dir), nil
}

// Delete removes a project and everything in it. Directories without the
// videos and captions subdirectories are refused.
func (m *Manager) Delete(name string) error {
	dir, err := m.Dir(name)
	if err != nil {
		return err
	}
	if !isDir(dir) {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, filepath.Base(dir))
	}
	if !isDir(filepath.Join(dir, VideosDir)) || !isDir(filepath.Join(dir, CaptionsDir)) {
		return fmt.Errorf("%w: %s", ErrNotAProject, dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("project: delete: %w", err)
	}

	m.logger.Info("project deleted", slog.String("project", filepath.Base(dir)))
	return nil
}

// Stats returns per-subdirectory file listings and the latest file change.
func (m *Manager) Stats(name string) (Stats, error) {
	dir, err := m.Dir(name)
	if err != nil {
		return Stats{}, err
	}
	if !isDir(dir) {
		return Stats{}, fmt.Errorf("%w: %s", ErrProjectNotFound, filepath.Base(dir))
	}

	st := Stats{
		Name:     filepath.Base(dir),
		Videos:   dirStats(filepath.Join(dir, VideosDir)),
		Captions: dirStats(filepath.Join(dir, CaptionsDir)),
		Burned:   dirStats(filepath.Join(dir, BurnedDir)),
	}
	for _, ds := range []DirStats{st.Videos, st.Captions, st.Burned} {
		for _, f := range ds.Files {
			if st.LastActivity == nil || f.Modified.After(*st.LastActivity) {
				mod := f.Modified
				st.LastActivity = &mod
			}
		}
	}
	return st, nil
}

// EnsureDefault guarantees at least one project exists. It returns the
// default project when present, otherwise the first existing project, and
// creates the default only when the root is empty.
func (m *Manager) EnsureDefault() (Project, error) {
	projects, err := m.List()
	if err != nil {
		return Project{}, err
	}
	for _, p := range projects {
		if p.Name == m.defaultProject {
			return p, nil
		}
	}
	if len(projects) > 0 {
		return projects[0], nil
	}
	return m.Create(m.defaultProject)
}

func (m *Manager) summarize(dir string) Project {
	return Project{
		Name:         filepath.Base(dir),
		Path:         dir,
		VideoCount:   countFiles(filepath.Join(dir, VideosDir)),
		CaptionCount: countFiles(filepath.Join(dir, CaptionsDir)),
		BurnedCount:  countFiles(filepath.Join(dir, BurnedDir)),
	}
}

// walkFiles visits every regular file below dir. Missing dirs yield nothing.
func walkFiles(dir string, fn func(rel string, info fs.FileInfo)) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		fn(filepath.ToSlash(rel), info)
		return nil
	})
}

func countFiles(dir string) int {
	n := 0
	walkFiles(dir, func(string, fs.FileInfo) { n++ })
	return n
}

func dirStats(dir string) DirStats {
	ds := DirStats{Files: []FileStat{}}
	walkFiles(dir, func(rel string, info fs.FileInfo) {
		ds.Files = append(ds.Files, FileStat{Name: rel, SizeBytes: info.Size(), Modified: info.ModTime()})
		ds.TotalSizeBytes += info.Size()
	})
	sort.Slice(ds.Files, func(i, j int) bool { return ds.Files[i].Name < ds.Files[j].Name })
	ds.Count = len(ds.Files)
	return ds
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
