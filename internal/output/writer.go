package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lorenzotomasdiez/agora/internal/debate"
	"github.com/lorenzotomasdiez/agora/internal/session"
)

const maxSlugLen = 50

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug turns a title into a lowercase dash-separated folder name.
func GenerateSlug(title string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		slug = "debate"
	}
	return slug
}

// CreateOutputDir creates base/slug-YYYYMMDD-HHMMSS.
func CreateOutputDir(base, slug string) (string, error) {
	dir := filepath.Join(base, slug+"-"+time.Now().Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Report is the content of debate.json.
type Report struct {
	Debate      *debate.Debate    `json:"debate"`
	Arguments   []debate.Argument `json:"arguments"`
	Tally       debate.Tally      `json:"tally"`
	Open        bool              `json:"open"`
	Winner      debate.Winner     `json:"winner,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// NewReport captures a session snapshot.
func NewReport(snap session.Snapshot) *Report {
	return &Report{
		Debate:      snap.Debate,
		Arguments:   snap.Arguments,
		Tally:       snap.Tally,
		Open:        snap.Open,
		Winner:      snap.Winner,
		Summary:     snap.Summary,
		GeneratedAt: snap.At,
	}
}

// Writer writes report files into one directory. Log entries are appended
// to session.log as they arrive.
type Writer struct {
	dir string

	mu      sync.Mutex
	entries []string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir is the output directory.
func (w *Writer) Dir() string { return w.dir }

// Log records a timestamped line and appends it to session.log.
func (w *Writer) Log(line string) {
	entry := fmt.Sprintf("%s %s", time.Now().Format(time.RFC3339), line)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entry)
	f, err := os.OpenFile(filepath.Join(w.dir, "session.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, entry)
}

// LogEvent records a session event.
func (w *Writer) LogEvent(e session.Event) { w.Log(EventLine(e)) }

// WriteLog rewrites session.log with every entry logged so far.
func (w *Writer) WriteLog() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var b strings.Builder
	for _, e := range w.entries {
		b.WriteString(e)
		b.WriteByte('\n')
	}
	return os.WriteFile(filepath.Join(w.dir, "session.log"), []byte(b.String()), 0o644)
}

// WriteJSON writes debate.json.
func (w *Writer) WriteJSON(r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.dir, "debate.json"), data, 0o644)
}

// WriteMarkdown writes debate.md.
func (w *Writer) WriteMarkdown(r *Report) error {
	var b strings.Builder
	d := r.Debate
	fmt.Fprintf(&b, "# %s\n\n", d.Title)
	if d.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", d.Description)
	}
	fmt.Fprintf(&b, "- **Category:** %s\n", d.Category)
	if len(d.Tags) > 0 {
		fmt.Fprintf(&b, "- **Tags:** %s\n", strings.Join(d.Tags, ", "))
	}
	fmt.Fprintf(&b, "- **Created:** %s by %s\n", d.CreatedAt.UTC().Format(time.RFC1123), d.Creator.DisplayName())
	fmt.Fprintf(&b, "- **Ends:** %s\n", d.EndTime().UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, "- **Score:** support %d, oppose %d\n\n", r.Tally.Support, r.Tally.Oppose)

	b.WriteString("## Outcome\n\n")
	switch {
	case r.Open:
		b.WriteString("Debate still in progress.\n\n")
	case r.Winner == debate.Tie:
		b.WriteString("Tie.\n\n")
	default:
		fmt.Fprintf(&b, "Winner: **%s**\n\n", r.Winner)
	}
	if r.Summary != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", r.Summary)
	}

	support, oppose := debate.BySide(r.Arguments)
	writeSection(&b, "Support", support)
	writeSection(&b, "Oppose", oppose)

	return os.WriteFile(filepath.Join(w.dir, "debate.md"), []byte(b.String()), 0o644)
}

func writeSection(b *strings.Builder, title string, args []debate.Argument) {
	fmt.Fprintf(b, "## %s Arguments\n\n", title)
	if len(args) == 0 {
		b.WriteString("_None._\n\n")
		return
	}
	for _, a := range args {
		fmt.Fprintf(b, "- %s (+%d / -%d) by %s\n", a.Text, a.Upvotes, a.Downvotes, a.Author.DisplayName())
	}
	b.WriteByte('\n')
}
