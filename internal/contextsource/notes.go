// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package contextsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/heytcass/jasper/internal/contextmodel"
)

// NoteSource reads Markdown notes with YAML frontmatter from a local
// vault directory (e.g. an Obsidian vault), grounded on
// original_source's ObsidianVaultSource. Only files whose frontmatter
// sets a due_date within the horizon window become context items —
// most notes carry no scheduling information and are irrelevant to the
// significance engine.
type NoteSource struct {
	vaultPath      string
	ignoredFolders []string
}

// NewNoteSource creates a NoteSource rooted at vaultPath.
func NewNoteSource(vaultPath string, ignoredFolders []string) *NoteSource {
	return &NoteSource{vaultPath: vaultPath, ignoredFolders: ignoredFolders}
}

func (s *NoteSource) ID() string { return "notes" }

type noteFrontMatter struct {
	Name     string `yaml:"name"`
	Status   string `yaml:"status"`
	DueDate  string `yaml:"due_date"`
	Priority int    `yaml:"priority"`
}

func (s *NoteSource) Fetch(ctx context.Context, horizonStart, horizonEnd time.Time) ([]contextmodel.Item, error) {
	var items []contextmodel.Item

	err := filepath.WalkDir(s.vaultPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if s.isIgnored(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".md") {
			return nil
		}

		item, ok, err := s.parseNote(path, horizonStart, horizonEnd)
		if err != nil {
			return fmt.Errorf("contextsource: parsing %s: %w", path, err)
		}
		if ok {
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *NoteSource) isIgnored(path string) bool {
	rel, err := filepath.Rel(s.vaultPath, path)
	if err != nil {
		return false
	}
	for _, folder := range s.ignoredFolders {
		if rel == folder || strings.HasPrefix(rel, folder+string(filepath.Separator)) {
			return true
		}
	}
	return strings.HasPrefix(filepath.Base(path), ".")
}

func (s *NoteSource) parseNote(path string, horizonStart, horizonEnd time.Time) (contextmodel.Item, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return contextmodel.Item{}, false, err
	}

	front, body, ok := splitFrontMatter(string(data))
	if !ok || front.DueDate == "" {
		return contextmodel.Item{}, false, nil
	}

	dueAt, err := time.Parse("2006-01-02", front.DueDate)
	if err != nil {
		return contextmodel.Item{}, false, nil
	}
	if dueAt.Before(horizonStart) || dueAt.After(horizonEnd) {
		return contextmodel.Item{}, false, nil
	}

	title := front.Name
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), ".md")
	}

	return contextmodel.Item{
		SourceID:  s.ID(),
		Kind:      contextmodel.KindNote,
		StartsAt:  &dueAt,
		Title:     title,
		Body:      body,
		SourceUID: path,
	}, true, nil
}

// splitFrontMatter parses a leading "---\n...\n---\n" YAML block. ok is
// false if the file has no frontmatter block.
func splitFrontMatter(content string) (noteFrontMatter, string, bool) {
	const delimiter = "---"
	if !strings.HasPrefix(content, delimiter) {
		return noteFrontMatter{}, content, false
	}

	rest := content[len(delimiter):]
	end := strings.Index(rest, "\n"+delimiter)
	if end == -1 {
		return noteFrontMatter{}, content, false
	}

	var front noteFrontMatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &front); err != nil {
		return noteFrontMatter{}, content, false
	}

	body := strings.TrimPrefix(rest[end+len("\n"+delimiter):], "\n")
	return front, body, true
}
