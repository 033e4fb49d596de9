// Package batch runs a file of named questions through the ask pipeline
// concurrently and writes one result CSV per question.
package batch

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Question is one named entry in a batch file. The name becomes the output
// CSV filename.
type Question struct {
	Name     string `yaml:"name"`
	Question string `yaml:"question"`
}

type questionsFile struct {
	Questions []Question `yaml:"questions"`
}

// LoadQuestions parses a batch file:
//
//	questions:
//	  - name: cheap_nikes
//	    question: Nike products under 50 dollars
//
// Every entry needs a non-empty question; missing names are derived from the
// entry's position.
func LoadQuestions(r io.Reader) ([]Question, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}

	var raw questionsFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse questions YAML: %w", err)
	}
	if len(raw.Questions) == 0 {
		return nil, fmt.Errorf("questions file has no entries")
	}

	out := make([]Question, 0, len(raw.Questions))
	seen := make(map[string]struct{}, len(raw.Questions))
	for i, q := range raw.Questions {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			return nil, fmt.Errorf("entry %d: question is required", i+1)
		}
		q.Name = sanitizeName(q.Name)
		if q.Name == "" {
			q.Name = fmt.Sprintf("question_%d", i+1)
		}
		if _, dup := seen[q.Name]; dup {
			return nil, fmt.Errorf("duplicate question name %q", q.Name)
		}
		seen[q.Name] = struct{}{}
		out = append(out, q)
	}
	return out, nil
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
