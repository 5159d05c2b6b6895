// Package resumable drives chunked, resumable uploads of large media payloads.
// It retries transient transport failures with full jitter exponential backoff
// and stops on fatal errors, cancellation or an exhausted retry budget.
package resumable

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Visibility is the privacy level of the uploaded media.
type Visibility string

// Supported visibility levels.
const (
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
)

// ParseVisibility ...
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case VisibilityPublic, VisibilityPrivate, VisibilityUnlisted:
		return v, nil
	default:
		return "", fmt.Errorf("invalid visibility %q, valid values: %s, %s, %s", s, VisibilityPublic, VisibilityPrivate, VisibilityUnlisted)
	}
}

// Metadata describes the uploaded media at its destination.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Visibility  Visibility
}

// Validate ...
func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if _, err := ParseVisibility(string(m.Visibility)); err != nil {
		return err
	}
	return nil
}

// ParseTags splits a comma separated keyword list into tags.
// Blank items are dropped, an empty input yields nil.
func ParseTags(keywords string) []string {
	var tags []string
	for _, item := range strings.Split(keywords, ",") {
		if tag := strings.TrimSpace(item); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Task is a single upload: the payload and where it goes.
// It must not be modified once it was handed to a Driver.
type Task struct {
	// ID correlates log lines of one upload. Generated when empty.
	ID          string
	Payload     Payload
	ContentType string
	Metadata    Metadata
}

func (t Task) validate() error {
	if t.Payload == nil {
		return fmt.Errorf("payload must not be nil")
	}
	if t.Payload.Size() <= 0 {
		return fmt.Errorf("payload must not be empty")
	}
	if err := t.Metadata.Validate(); err != nil {
		return fmt.Errorf("invalid metadata: %w", err)
	}
	return nil
}

func (t Task) withDefaults() Task {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.ContentType == "" {
		t.ContentType = defaultContentType
		if f, ok := t.Payload.(*File); ok && f.ContentType() != "" {
			t.ContentType = f.ContentType()
		}
	}
	return t
}
