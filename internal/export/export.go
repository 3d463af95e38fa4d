package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agent-chat/internal/chat"

	"github.com/charmbracelet/x/ansi"
)

type Labels struct {
	User      string
	Assistant string
}

func DefaultLabels() Labels {
	return Labels{User: "You", Assistant: "Agent"}
}

type Exporter struct {
	overrideDir string
	cwd         string
	labels      Labels
}

func New(overrideDir string, labels Labels) (*Exporter, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve cwd: %w", err)
	}
	return &Exporter{overrideDir: strings.TrimSpace(overrideDir), cwd: cwd, labels: labels}, nil
}

// Export writes the transcript to a new Markdown file and returns its path.
func (e *Exporter) Export(sessionID, endpoint string, messages []chat.Message) (string, error) {
	now := time.Now().UTC()
	path := e.outputPath(sessionID, now)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	body := BuildTranscriptMarkdown(messages, e.labels)
	md := BuildSessionMarkdown(sessionID, endpoint, len(messages), body, now)
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

// BuildTranscriptMarkdown renders messages oldest first, one section per turn.
// Terminal escape sequences from the remote side are stripped.
func BuildTranscriptMarkdown(messages []chat.Message, labels Labels) string {
	labels = withDefaults(labels)
	var b strings.Builder
	for _, m := range messages {
		content := strings.TrimSpace(ansi.Strip(m.Content))
		switch m.Role {
		case chat.RoleUser:
			b.WriteString("## " + labels.User + "\n\n")
		case chat.RoleAssistant:
			b.WriteString("## " + labels.Assistant + "\n\n")
		default:
			b.WriteString("## " + string(m.Role) + "\n\n")
		}
		if content == "" {
			content = "_(empty)_"
		}
		b.WriteString(content + "\n\n")
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return ""
	}
	return out + "\n"
}

func BuildSessionMarkdown(sessionID, endpoint string, count int, transcript string, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Chat session " + safeValue(sessionID) + "\n\n")
	b.WriteString("Exported: " + now.Format(time.RFC3339) + "\n\n")
	b.WriteString("```text\n")
	b.WriteString("endpoint: " + safeValue(endpoint) + "\n")
	b.WriteString(fmt.Sprintf("message_count: %d\n", count))
	b.WriteString("```\n\n")
	b.WriteString(transcript)
	if !strings.HasSuffix(transcript, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

func (e *Exporter) outputPath(sessionID string, now time.Time) string {
	dir := filepath.Join(e.cwd, "transcripts")
	if e.overrideDir != "" {
		dir = e.overrideDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(e.cwd, dir)
		}
	}
	name := "chat-" + now.Format("20060102-150405") + "-" + safeFileName(shortID(sessionID)) + ".md"
	return filepath.Join(dir, name)
}

func withDefaults(l Labels) Labels {
	d := DefaultLabels()
	if strings.TrimSpace(l.User) == "" {
		l.User = d.User
	}
	if strings.TrimSpace(l.Assistant) == "" {
		l.Assistant = d.Assistant
	}
	return l
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func safeFileName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "session"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(s)
}

func safeValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "n/a"
	}
	return s
}
