// internal/prompts/prompts.go
// Package prompts holds the named prompt templates used by the pipeline.
// Templates ship embedded in the binary and can be overridden per name by
// <name>.txt files in a directory, which is watched for changes.
package prompts

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.yaml.in/yaml/v3"

	"github.com/mwiater/adjudicator/internal/logging"
)

// Template names.
const (
	Analyze          = "analyze"
	Evaluate         = "evaluate"
	Judge            = "judge"
	FormatEvaluation = "format_evaluation"
	FormatJudgment   = "format_judgment"
	Summarizer       = "summarizer"
	System           = "system"
	Principles       = "principles"
)

// Roles accepted by SystemPrompt.
const (
	RoleSummarizer = "summarizer"
	RoleSystem     = "system"
	RoleCopywriter = "copywriter"
)

// reloadDebounce is how long Watch waits for the directory to settle before rereading it.
const reloadDebounce = 100 * time.Millisecond

// ErrUnknownPrompt is returned for a template name that is not in the library.
var ErrUnknownPrompt = errors.New("unknown prompt")

//go:embed bundle.yaml
var bundle []byte

// Library resolves template names to text.
type Library struct {
	mu        sync.RWMutex
	base      map[string]string
	overrides map[string]string
	dir       string
}

// Load returns a Library backed by the embedded bundle and, when dir is not
// empty, the override files in dir.
func Load(dir string) (*Library, error) {
	base := map[string]string{}
	if err := yaml.Unmarshal(bundle, &base); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}
	for name, text := range base {
		base[name] = strings.TrimSpace(text)
	}
	lib := &Library{base: base, overrides: map[string]string{}, dir: dir}
	if dir != "" {
		if err := lib.reload(); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// Names lists every known template name.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.base))
	for name := range l.base {
		names = append(names, name)
	}
	for name := range l.overrides {
		if _, ok := l.base[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Get returns the raw text of a template.
func (l *Library) Get(name string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if text, ok := l.overrides[name]; ok {
		return text, nil
	}
	if text, ok := l.base[name]; ok {
		return text, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
}

// Render substitutes {key} placeholders in the named template.
func (l *Library) Render(name string, vars map[string]string) (string, error) {
	text, err := l.Get(name)
	if err != nil {
		return "", err
	}
	return Substitute(text, vars), nil
}

// Substitute replaces each {key} in text with vars[key] in a single pass.
// Placeholders without a value, like {first party name}, are left untouched,
// and substituted values are never rescanned.
func Substitute(text string, vars map[string]string) string {
	if len(vars) == 0 {
		return text
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(vars)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// SystemPrompt builds the persona for a role. The summarizer role has its
// own persona; every other role gets the general persona with the
// principles filled in.
func (l *Library) SystemPrompt(role string) (string, error) {
	if role == RoleSummarizer {
		return l.Get(Summarizer)
	}
	principles, err := l.Get(Principles)
	if err != nil {
		return "", err
	}
	return l.Render(System, map[string]string{"principles": principles})
}

// reload rereads every <name>.txt override in the directory. Blank files are
// skipped so the embedded entry of the same name stays in effect.
func (l *Library) reload() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("read prompts dir %q: %w", l.dir, err)
	}
	overrides := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".txt" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read prompt %q: %w", entry.Name(), err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			logging.LogEvent("prompts: ignoring empty override %s", entry.Name())
			continue
		}
		overrides[strings.TrimSuffix(entry.Name(), ".txt")] = text
	}
	l.mu.Lock()
	l.overrides = overrides
	l.mu.Unlock()
	return nil
}

// Watch reloads overrides whenever a file in the override directory changes.
// Bursts of events are coalesced so a file is reread only once its writer
// has gone quiet. It blocks until ctx is done. Reload errors are logged and
// the previous overrides stay in effect.
func (l *Library) Watch(ctx context.Context, onReload func()) error {
	if l.dir == "" {
		<-ctx.Done()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompts watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("watch prompts dir %q: %w", l.dir, err)
	}

	var (
		settle  <-chan time.Time
		changed string
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".txt" {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			changed = filepath.Base(event.Name)
			settle = time.After(reloadDebounce)
		case <-settle:
			settle = nil
			if err := l.reload(); err != nil {
				logging.LogError("prompts: reload after change to %s: %v", changed, err)
				continue
			}
			logging.LogEvent("prompts: reloaded overrides (%s)", changed)
			if onReload != nil {
				onReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.LogError("prompts: watcher error: %v", err)
		}
	}
}
