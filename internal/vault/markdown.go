package vault

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// Matches the frontmatter block and the remaining body.
	frontmatterRegex = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n?(.*)`)
)

// LoadEntityFromFile reads an entity from a markdown file. The given
// path is stored on the entity relative to baseDir.
func LoadEntityFromFile(baseDir, path string) (*Entity, error) {
	content, err := os.ReadFile(filepath.Join(baseDir, path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	entity, err := ParseEntityMarkdown(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	entity.Path = path
	if entity.Title == "" {
		entity.Title = entity.Name()
	}
	return entity, nil
}

// ParseEntityMarkdown parses markdown content into an Entity.
func ParseEntityMarkdown(content string) (*Entity, error) {
	matches := frontmatterRegex.FindStringSubmatch(content)
	if len(matches) != 3 {
		return nil, fmt.Errorf("invalid markdown format: missing frontmatter")
	}

	frontmatter := matches[1]
	body := matches[2]

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(frontmatter), &fm); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	entity := &Entity{Frontmatter: fm}

	// First H1 becomes the title; everything else is body.
	lines := strings.Split(body, "\n")
	bodyLines := make([]string, 0, len(lines))
	for _, line := range lines {
		if entity.Title == "" && strings.HasPrefix(line, "# ") {
			entity.Title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			continue
		}
		bodyLines = append(bodyLines, line)
	}
	entity.Body = strings.TrimSpace(strings.Join(bodyLines, "\n"))

	return entity, nil
}

// SaveEntityToFile writes an entity to its markdown file under baseDir.
func SaveEntityToFile(entity *Entity, baseDir string) error {
	filePath := filepath.Join(baseDir, entity.Path)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	content, err := FormatEntityMarkdown(entity)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// FormatEntityMarkdown formats an entity as markdown with frontmatter.
func FormatEntityMarkdown(entity *Entity) (string, error) {
	var buf bytes.Buffer

	buf.WriteString("---\n")
	frontmatter, err := yaml.Marshal(entity.Frontmatter)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}
	buf.Write(frontmatter)
	buf.WriteString("---\n\n")

	buf.WriteString(fmt.Sprintf("# %s\n", entity.Title))

	if entity.Body != "" {
		buf.WriteString("\n")
		buf.WriteString(entity.Body)
		buf.WriteString("\n")
	}

	return buf.String(), nil
}
