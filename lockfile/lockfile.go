// Package lockfile implements locsync.lock, which persists two things
// between runs: the structural variant (flat or nested) of every JSON
// locale file, and checksums of the primary texts each locale file was
// last translated from. The former keeps a file's layout stable across
// runs even if its content becomes ambiguous; the latter enables
// incremental translation, so only new or changed texts are sent to a
// provider.
//
// The lock file is stored next to .locsync.yaml as locsync.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/locsync/jsonfile"
)

// LockFileName is the default lock file name.
const LockFileName = "locsync.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the locsync.lock file structure.
type LockFile struct {
	Version int `yaml:"version"`
	// Structures maps a locale file path (relative, slash-separated) to
	// its JSON structural variant.
	Structures map[string]string `yaml:"structures,omitempty"`
	// Checksums maps target file -> key -> md5 of the primary text.
	Checksums map[string]map[string]string `yaml:"checksums"`

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
	root string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads the lock file from the given directory. Returns an empty
// lock file if none exists.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:    Version,
		Structures: make(map[string]string),
		Checksums:  make(map[string]map[string]string),
		path:       path,
		root:       dir,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path
	lf.root = dir

	if lf.Structures == nil {
		lf.Structures = make(map[string]string)
	}
	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}
	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}
	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}
	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Structural variants
// ---------------------------------------------------------------------------

// fileKey normalizes an absolute locale path to the stored form,
// relative to the lock file's directory where possible.
func (lf *LockFile) fileKey(filePath string) string {
	if lf.root != "" {
		if rel, err := filepath.Rel(lf.root, filePath); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(filePath)
}

// HydrateRegistry seeds a parse registry with the variants recorded in
// the lock file, so serialization keeps a file's historical layout even
// before the file is re-parsed this run.
func (lf *LockFile) HydrateRegistry(reg *jsonfile.Registry) {
	lf.mu.Lock()
	variants := make(map[string]jsonfile.Structure, len(lf.Structures))
	for key, s := range lf.Structures {
		abs := key
		if lf.root != "" && !filepath.IsAbs(key) {
			abs = filepath.Join(lf.root, filepath.FromSlash(key))
		}
		variants[abs] = jsonfile.Structure(s)
	}
	lf.mu.Unlock()

	reg.Hydrate(variants)
}

// CaptureRegistry records the variants observed during this run.
func (lf *LockFile) CaptureRegistry(reg *jsonfile.Registry) {
	snapshot := reg.Snapshot()

	lf.mu.Lock()
	defer lf.mu.Unlock()
	for path, s := range snapshot {
		lf.Structures[lf.fileKey(path)] = string(s)
	}
}

// Structure returns the recorded variant for a locale file, if any.
func (lf *LockFile) Structure(filePath string) (jsonfile.Structure, bool) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	s, ok := lf.Structures[lf.fileKey(filePath)]
	if !ok {
		return "", false
	}
	return jsonfile.Structure(s), true
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// TargetKey builds a stable key for a target locale file.
func TargetKey(filePath string) string {
	return filepath.ToSlash(filePath)
}

// EntryContent builds the hashed content for a key-value pair. The key
// is included so renaming a key triggers re-translation.
func EntryContent(key, value string) string {
	return key + "\x00" + value
}

// IsChanged reports whether a primary text is new or changed since the
// last recorded translation into target.
func (lf *LockFile) IsChanged(target, key, sourceContent string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	keys, ok := lf.Checksums[target]
	if !ok {
		return true
	}
	oldHash, ok := keys[key]
	if !ok {
		return true
	}
	return oldHash != Hash(sourceContent)
}

// HasTarget reports whether the lock file has any checksum history for
// target. Without history, changed-text detection does not apply and
// existing translations are trusted.
func (lf *LockFile) HasTarget(target string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return len(lf.Checksums[target]) > 0
}

// Update records the checksum of one primary text after successful
// translation.
func (lf *LockFile) Update(target, key, sourceContent string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[target] == nil {
		lf.Checksums[target] = make(map[string]string)
	}
	lf.Checksums[target][key] = Hash(sourceContent)
}

// UpdateBatch records checksums for multiple keys after successful
// translation. entries maps key -> sourceContent.
func (lf *LockFile) UpdateBatch(target string, entries map[string]string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[target] == nil {
		lf.Checksums[target] = make(map[string]string)
	}
	for key, sourceContent := range entries {
		lf.Checksums[target][key] = Hash(sourceContent)
	}
}

// FilterChanged returns only the entries whose source content is new or
// changed. entries maps key -> sourceContent.
func (lf *LockFile) FilterChanged(target string, entries map[string]string) map[string]string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[target]
	changed := make(map[string]string)
	for key, content := range entries {
		if existing == nil || existing[key] != Hash(content) {
			changed[key] = content
		}
	}
	return changed
}

// Clean removes checksum entries whose keys no longer exist in the
// primary file.
func (lf *LockFile) Clean(target string, currentKeys []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[target]
	if existing == nil {
		return
	}
	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}
	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
}

// RemoveTarget removes all checksums for a target.
func (lf *LockFile) RemoveTarget(target string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Checksums, target)
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of targets and total keys in the lock file.
func (lf *LockFile) Stats() (targets, keys int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Targets returns the sorted list of target keys.
func (lf *LockFile) Targets() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets := make([]string, 0, len(lf.Checksums))
	for t := range lf.Checksums {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	targets, keys := lf.Stats()
	if targets == 0 {
		return "empty"
	}

	var parts []string
	for _, t := range lf.Targets() {
		lf.mu.Lock()
		n := len(lf.Checksums[t])
		lf.mu.Unlock()
		parts = append(parts, fmt.Sprintf("%s: %d keys", t, n))
	}
	return fmt.Sprintf("%d targets, %d keys (%s)", targets, keys, strings.Join(parts, ", "))
}
