package core

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SectionMeta is the optional YAML frontmatter of a prompt section file.
type SectionMeta struct {
	Description string `yaml:"description,omitempty"`
}

// DirSectionResolver resolves prompt sections from markdown files in a
// directory: prompts/<id>.md, with optional YAML frontmatter above the body.
type DirSectionResolver struct {
	dir string
}

// NewDirSectionResolver creates a resolver reading sections from dir.
func NewDirSectionResolver(dir string) *DirSectionResolver {
	return &DirSectionResolver{dir: dir}
}

// Resolve returns the body of the section file for id, stripped of
// frontmatter. A missing file surfaces as SectionNotFoundError.
func (r *DirSectionResolver) Resolve(id string) (string, error) {
	if !validSectionID(id) {
		return "", fmt.Errorf("invalid section id %q", id)
	}
	path := filepath.Join(r.dir, id+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &SectionNotFoundError{ID: id}
		}
		return "", fmt.Errorf("reading section %q: %w", id, err)
	}
	_, body, err := splitFrontmatter(string(data))
	if err != nil {
		return "", fmt.Errorf("section %q: %w", id, err)
	}
	return strings.TrimRight(body, "\n"), nil
}

// Meta returns the parsed frontmatter for a section, for operator-facing
// listings. Sections without frontmatter yield a zero SectionMeta.
func (r *DirSectionResolver) Meta(id string) (*SectionMeta, error) {
	if !validSectionID(id) {
		return nil, fmt.Errorf("invalid section id %q", id)
	}
	data, err := os.ReadFile(filepath.Join(r.dir, id+".md"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &SectionNotFoundError{ID: id}
		}
		return nil, fmt.Errorf("reading section %q: %w", id, err)
	}
	meta, _, err := splitFrontmatter(string(data))
	if err != nil {
		return nil, fmt.Errorf("section %q: %w", id, err)
	}
	return meta, nil
}

// validSectionID rejects ids that would escape the prompts directory.
func validSectionID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}

// splitFrontmatter separates an optional `---` delimited YAML header from the
// body. Content without a leading delimiter is returned whole.
func splitFrontmatter(content string) (*SectionMeta, string, error) {
	meta := &SectionMeta{}
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "---" {
		return meta, content, nil
	}

	var header []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			closed = true
			break
		}
		header = append(header, line)
	}
	if !closed {
		return nil, "", fmt.Errorf("unterminated frontmatter")
	}

	var body []string
	for scanner.Scan() {
		body = append(body, scanner.Text())
	}

	if err := yaml.Unmarshal([]byte(strings.Join(header, "\n")), meta); err != nil {
		return nil, "", fmt.Errorf("parsing frontmatter: %w", err)
	}
	return meta, strings.Join(body, "\n"), nil
}
