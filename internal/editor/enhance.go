package editor

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"docforms/internal/datapath"
	"docforms/internal/form"
	"docforms/internal/jobs"
	"docforms/pkg/models"
)

// Enhancement is an improved value waiting for the user's decision.
type Enhancement struct {
	Path     string
	Original string
	Improved string
}

// Enhancing returns the path being enhanced or awaiting review, or "".
func (s *Session) Enhancing() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enhancing
}

// Pending returns the staged enhancement, if any.
func (s *Session) Pending() (Enhancement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged == nil {
		return Enhancement{}, false
	}
	return *s.staged, true
}

// EnhanceField asks the backend to improve the text at path and stages the
// result for Accept or Reject. The buffer is not touched.
func (s *Session) EnhanceField(ctx context.Context, path, instructions string, onProgress func(models.Job)) (*Enhancement, error) {
	const op = "editor.EnhanceField"

	s.mu.Lock()
	if s.enhancing != "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, ErrEnhanceInProgress)
	}
	original, ok := datapath.GetString(s.data, path)
	if !ok || strings.TrimSpace(original) == "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %s: %w", op, path, ErrNotEnhanceable)
	}
	s.enhancing = path
	s.mu.Unlock()

	improved, err := s.runEnhance(ctx, path, instructions, onProgress)
	if err != nil {
		s.mu.Lock()
		s.enhancing = ""
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e := &Enhancement{Path: path, Original: original, Improved: improved}
	s.mu.Lock()
	s.staged = e
	s.mu.Unlock()

	s.log.Info().Str("path", path).Msg("Enhancement ready for review")
	return e, nil
}

func (s *Session) runEnhance(ctx context.Context, path, instructions string, onProgress func(models.Job)) (string, error) {
	resp, err := s.backend.Enhance(ctx, s.key.DocumentID, models.EnhanceRequest{
		FieldPath:    path,
		TemplateID:   s.key.TemplateID,
		Instructions: instructions,
	})
	if err != nil {
		return "", err
	}

	target := jobs.Target{Kind: jobs.KindEnhance, DocumentID: s.key.DocumentID, TemplateID: s.key.TemplateID}
	s.tracker.Track(resp.JobID, target)
	job, err := s.tracker.Wait(ctx, resp.JobID, target, onProgress)
	if err != nil {
		return "", err
	}
	if err := jobs.Outcome(job); err != nil {
		return "", err
	}

	raw, err := s.backend.GetStructuredDataRaw(ctx, s.key.DocumentID, s.key.TemplateID)
	if err != nil {
		return "", err
	}
	improved := gjson.GetBytes(raw, improvedQuery(path))
	if !improved.Exists() || improved.Type == gjson.Null || improved.String() == "" {
		return "", fmt.Errorf("%s: %w", path, ErrImprovedValueMissing)
	}
	return improved.String(), nil
}

// improvedQuery builds the gjson path of "<path>_improved" inside structured_data.
func improvedQuery(path string) string {
	segs := datapath.Split(path + form.ImprovedSuffix)
	escaped := make([]string, 0, len(segs)+1)
	escaped = append(escaped, "structured_data")
	for _, seg := range segs {
		escaped = append(escaped, escapeGJSON(seg))
	}
	return strings.Join(escaped, ".")
}

func escapeGJSON(seg string) string {
	var b strings.Builder
	for _, r := range seg {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', '(', ')', '[', ']', '{', '}', ',', '"', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Accept applies the staged improvement. value replaces the improved text
// when the user adjusted it; pass "" to take it as is.
func (s *Session) Accept(value string) (Enhancement, error) {
	s.mu.Lock()
	staged := s.staged
	if staged == nil {
		s.mu.Unlock()
		return Enhancement{}, ErrNoPendingEnhancement
	}
	s.staged = nil
	s.enhancing = ""
	s.mu.Unlock()

	if value == "" {
		value = staged.Improved
	}
	s.HandleFieldChange(staged.Path, value)
	s.log.Info().Str("path", staged.Path).Msg("Enhancement applied")
	return *staged, nil
}

// Reject drops the staged improvement and leaves the buffer alone.
func (s *Session) Reject() (Enhancement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged == nil {
		return Enhancement{}, ErrNoPendingEnhancement
	}
	staged := *s.staged
	s.staged = nil
	s.enhancing = ""
	return staged, nil
}
