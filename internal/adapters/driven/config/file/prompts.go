package file

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/custodia-labs/lenscore/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// promptExt is the file extension of prompt templates on disk.
const promptExt = ".tmpl"

// PromptStore loads prompt templates from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]*template.Template
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default templates.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptCriterion: `You are an experienced photography instructor assessing one aspect of a photo: {{.Criterion}} ({{.Focus}}).

Photo:
{{.Photo}}
{{if .Evidence}}
Reference material:
{{range .Evidence}}[{{.Index}}] {{.Source}}
{{.Content}}

{{end}}Ground your assessment in the reference material where it applies.
{{else}}
No reference material is available; rely on established photographic practice.
{{end}}
Score the photo on {{.Criterion}} from {{.Min}} to {{.Max}} (half points allowed).
Answer with a JSON object only:
{"score": <number>, "feedback": "<two or three sentences>", "suggestions": ["<concrete improvement>", "..."]}`,

	driven.PromptCorrective: `Your previous answer for {{.Criterion}} could not be used: {{.Problem}}.

Previous answer:
{{.Previous}}

Answer again with a JSON object only, with a numeric score from {{.Min}} to {{.Max}}:
{"score": <number>, "feedback": "<two or three sentences>", "suggestions": ["<concrete improvement>"]}`,

	driven.PromptSummary: `Write a short overall assessment (three sentences at most) of this photo for its author.

Photo:
{{.Photo}}

Scores out of {{.Max}}:
{{range .Scores}}- {{.Criterion}}: {{if .Scored}}{{.Score}}. {{.Feedback}}{{else}}not assessed{{end}}
{{end}}
Mention the strongest aspect and the most useful improvement. Reply with the assessment only.`,

	driven.PromptTranslate: `Translate the following text from {{.Source}} to {{.Target}}.
Keep photographic terms accurate and preserve numbers. Reply with the translation only.

{{.Text}}`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.lenscore/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, DefaultDirName, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]*template.Template),
	}, nil
}

// Load returns the raw template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Falls back to the embedded default if the file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr == nil {
		if prompt, err := s.loadFromFile(name); err == nil {
			return prompt, nil
		}
	}
	if prompt, ok := defaultPrompts[name]; ok {
		return prompt, nil
	}
	if s.initErr != nil {
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}
	return "", fmt.Errorf("load prompt %q: unknown prompt", name)
}

// Render executes the named template with data. Parsed templates are
// cached until Reload.
func (s *PromptStore) Render(name string, data any) (string, error) {
	tmpl, err := s.template(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (s *PromptStore) template(name string) (*template.Template, error) {
	s.mu.RLock()
	tmpl, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	text, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	tmpl, err = template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %q: %w", name, err)
	}

	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		tmpl = cached
	} else {
		s.cache[name] = tmpl
	}
	s.mu.Unlock()
	return tmpl, nil
}

// Reload clears the template cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]*template.Template)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+promptExt)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+promptExt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	names := make([]string, 0, len(defaultPrompts))
	for name := range defaultPrompts {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# lenscore prompts\n\n")
	b.WriteString("Templates used to assess photos and translate feedback.\n\n## Files\n\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- `%s%s`\n", name, promptExt)
	}
	b.WriteString(`
## Customisation

Templates use Go text/template syntax ({{.Criterion}}, {{range .Evidence}}).
Edit any file to change model behaviour; changes apply on the next command.
The criterion and corrective prompts must keep asking for a JSON object with
score, feedback and suggestions.
`)
	return os.WriteFile(path, []byte(b.String()), 0600)
}
