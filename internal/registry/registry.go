// Package registry holds the virtual file space presented to the type-checking
// engine.
//
// Every logical file has exactly one Entry. Container files (.vue) are
// registered under two keys, their raw name and their compiler-facing name
// (see package identity), and both keys resolve to the same Entry. Entries are
// never removed: a file that disappears from disk stays registered with no
// text.
package registry

import (
	"bytes"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/conneroisu/vuedts/internal/identity"
	"github.com/conneroisu/vuedts/internal/sfc"
)

// Placeholder is the body given to containers that have no usable script
// block, so they stay valid but empty for compilation.
const Placeholder = "export default {}"

// Entry is the state of one logical file.
type Entry struct {
	// RawName is the identity with any compiler-facing suffix stripped.
	RawName string
	// SourcePath is set when the code was loaded from a file referenced by
	// the container's <script src>, empty otherwise.
	SourcePath string
	// Version increases by one every time Text changes.
	Version int
	// Text is the current source text. It is meaningful only when Loaded.
	Text string
	// Loaded is false when the file is missing or unreadable.
	Loaded bool
}

// Registry maps file identities to entries.
type Registry struct {
	fs       afero.Fs
	entries  []*Entry
	index    map[string]int
	mutex    sync.RWMutex
	watchers []chan Event
}

// EventType represents the type of registry event
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Event is published whenever an entry gets a new version.
type Event struct {
	Type      EventType
	Entry     Entry
	Timestamp time.Time
}

// New creates an empty registry reading files from fs.
func New(fs afero.Fs) *Registry {
	return &Registry{
		fs:       fs,
		index:    make(map[string]int),
		watchers: make([]chan Event, 0),
	}
}

// UpdateFile reloads name from its backing store. The entry version changes
// only when the text does. Missing files do not cause an error: the entry is
// left without text.
func (r *Registry) UpdateFile(name string) {
	r.ensure(name, true)
}

// Source returns the current text of name, loading and registering the file
// the first time it is asked for.
func (r *Registry) Source(name string) (string, bool) {
	entry := r.ensure(name, false)
	return entry.Text, entry.Loaded
}

// Version returns an opaque version token for name.
func (r *Registry) Version(name string) (string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, ok := r.index[name]
	if !ok {
		return "", false
	}
	return strconv.Itoa(r.entries[id].Version), true
}

// Get returns a copy of the entry registered under name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, ok := r.index[name]
	if !ok {
		return Entry{}, false
	}
	return *r.entries[id], true
}

// CanEmit reports whether name is known and has non-empty text. Emitting
// output for a missing or unsupported file would only produce engine errors.
func (r *Registry) CanEmit(name string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, ok := r.index[name]
	if !ok {
		return false
	}
	entry := r.entries[id]
	return entry.Loaded && entry.Text != ""
}

// FileNames returns every registered key with a supported script extension,
// sorted.
func (r *Registry) FileNames() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.index))
	for name := range r.index {
		if identity.IsSupported(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// HostContainers returns the containers whose code lives in name. A container
// identity is its own host; a plain source file is hosted by every container
// whose <script src> currently points at it.
func (r *Registry) HostContainers(name string) []string {
	if identity.IsContainerFile(name) {
		return []string{name}
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	name = filepath.Clean(name)
	hosts := make([]string, 0)
	for _, entry := range r.entries {
		if entry.SourcePath == name && identity.IsContainer(entry.RawName) {
			hosts = append(hosts, entry.RawName)
		}
	}
	sort.Strings(hosts)
	return hosts
}

// Len returns the number of distinct entries.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.entries)
}

// Watch returns a channel that receives version change events
func (r *Registry) Watch() <-chan Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan Event, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *Registry) UnWatch(ch <-chan Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// ensure returns the entry for name, loading it when it is unknown or when
// force is set. It is the single path through which entries change.
func (r *Registry) ensure(name string, force bool) *Entry {
	if !force {
		r.mutex.RLock()
		id, ok := r.index[name]
		r.mutex.RUnlock()
		if ok {
			return r.entryCopy(id)
		}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	id, known := r.index[name]
	if known && !force {
		entry := *r.entries[id]
		return &entry
	}

	var entry *Entry
	if known {
		entry = r.entries[id]
	} else {
		entry = &Entry{RawName: identity.RawName(name)}
	}

	changed := r.load(entry, name)
	if !known {
		id = r.register(entry)
	}

	if changed {
		eventType := EventTypeUpdated
		if !known {
			eventType = EventTypeAdded
		}
		r.notify(Event{Type: eventType, Entry: *entry, Timestamp: time.Now()})
	}

	copied := *r.entries[id]
	return &copied
}

func (r *Registry) entryCopy(id int) *Entry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	entry := *r.entries[id]
	return &entry
}

// load reads the backing file of entry and updates its text, source path and
// version. It reports whether the version changed.
func (r *Registry) load(entry *Entry, name string) bool {
	readPath := entry.RawName
	if !identity.HasExtension(name) {
		readPath = entry.RawName + identity.ContainerExt
	}

	text, ok := r.readText(readPath)
	if ok && identity.IsContainer(readPath) {
		text, ok, entry.SourcePath = r.extract([]byte(text), readPath)
	} else if !ok && identity.IsContainer(readPath) {
		entry.SourcePath = ""
	}

	switch {
	case !ok && !entry.Loaded:
		return false
	case !ok:
		entry.Text = ""
		entry.Loaded = false
	case entry.Loaded && entry.Text == text:
		return false
	default:
		entry.Text = text
		entry.Loaded = true
	}
	entry.Version++
	return true
}

// extract returns the script code of a container along with the path of the
// external file that supplied it, if any.
func (r *Registry) extract(src []byte, containerPath string) (string, bool, string) {
	script := sfc.ParseScript(src)
	if script == nil || !script.Supported() {
		return Placeholder, true, ""
	}

	if script.Src != "" && !identity.IsSupported(script.Src) {
		return Placeholder, true, ""
	}

	if script.Src != "" {
		srcPath := script.Src
		if !filepath.IsAbs(srcPath) {
			srcPath = filepath.Join(filepath.Dir(containerPath), srcPath)
		}
		srcPath = filepath.Clean(srcPath)
		text, ok := r.readText(srcPath)
		return text, ok, srcPath
	}

	return script.Padded(), true, ""
}

// register adds the index keys for a new entry and returns its id.
func (r *Registry) register(entry *Entry) int {
	id := len(r.entries)
	r.entries = append(r.entries, entry)

	if identity.IsContainerFile(entry.RawName) {
		r.index[identity.Normalize(entry.RawName)] = id
	}
	r.index[entry.RawName] = id
	return id
}

func (r *Registry) notify(event Event) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

var boms = [][]byte{
	{0xEF, 0xBB, 0xBF},
	{0xFE, 0xFF},
	{0xFF, 0xFE},
}

// readText reads a file as text, honouring a UTF-8 or UTF-16 byte order mark.
func (r *Registry) readText(path string) (string, bool) {
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return "", false
	}

	for _, bom := range boms {
		if bytes.HasPrefix(data, bom) {
			decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
			decoded, _, err := transform.Bytes(decoder, data)
			if err != nil {
				return "", false
			}
			return string(decoded), true
		}
	}
	return string(data), true
}
