package collab

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"realtime-canvas/internal/canvas"
)

// Fixed user-facing texts when no summary can be produced
const (
	SummaryEmpty  = "Nothing to summarize yet: this project has no text, polls or images."
	SummaryFailed = "The summary could not be generated right now. Please try again later."
)

// Summarizer external summarization service
type Summarizer interface {
	Summarize(ctx context.Context, digest string) (string, error)
}

// Summaries builds project digests and asks the summarizer about them.
type Summaries struct {
	caches     *canvas.Caches
	summarizer Summarizer
	timeout    time.Duration
}

func NewSummaries(caches *canvas.Caches, summarizer Summarizer, timeout time.Duration) *Summaries {
	return &Summaries{caches: caches, summarizer: summarizer, timeout: timeout}
}

// Digest flattened text of every text box, poll and image name in the project.
func (s *Summaries) Digest(roomID, projectID string) string {
	var lines []string

	texts := s.caches.Texts.List(roomID, projectID)
	sort.Slice(texts, func(i, j int) bool { return texts[i].NodeID < texts[j].NodeID })
	for _, t := range texts {
		if c := strings.TrimSpace(t.Content); c != "" {
			lines = append(lines, "Text: "+c)
		}
	}

	polls := s.caches.Polls.List(roomID, projectID)
	sort.Slice(polls, func(i, j int) bool { return polls[i].NodeID < polls[j].NodeID })
	for _, p := range polls {
		var labels []string
		for _, c := range p.Choices {
			if c.Label != "" {
				labels = append(labels, c.Label)
			}
		}
		if p.Title == "" && len(labels) == 0 {
			continue
		}
		line := "Poll: " + p.Title
		if len(labels) > 0 {
			line += " (" + strings.Join(labels, ", ") + ")"
		}
		lines = append(lines, line)
	}

	images := s.caches.Images.List(roomID, projectID)
	sort.Slice(images, func(i, j int) bool { return images[i].NodeID < images[j].NodeID })
	for _, img := range images {
		if img.FileName != "" {
			lines = append(lines, "Image: "+img.FileName)
		}
	}

	return strings.Join(lines, "\n")
}

// Summarize never fails: an empty digest or a failed call yields a fixed text.
func (s *Summaries) Summarize(ctx context.Context, roomID, projectID string) string {
	digest := s.Digest(roomID, projectID)
	if digest == "" {
		return SummaryEmpty
	}
	if s.summarizer == nil {
		return SummaryFailed
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.summarizer.Summarize(ctx, digest)
	if err != nil {
		log.Warn().Err(err).Str("module", "collab").Str("room", roomID).Str("project", projectID).Msg("summarize failed")
		return SummaryFailed
	}
	return text
}
