// Package summarize asks a language model to describe each semantic
// cluster and renders the answers as markdown.
package summarize

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/panbanda/kindred/pkg/models"
)

// DefaultSampleSize is the number of member sources sent per cluster.
const DefaultSampleSize = 3

// Summary is the model's description of one cluster. Index is 1-based.
type Summary struct {
	Index int    `json:"index"`
	Size  int    `json:"size"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// Summarizer builds prompts from cluster samples and collects replies.
type Summarizer struct {
	completer  Completer
	prompt     *Prompt
	sampleSize int
	logger     *slog.Logger
	onProgress func(done, total int)
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithSampleSize limits how many member sources are sent per cluster.
func WithSampleSize(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.sampleSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Summarizer) {
		s.logger = l
	}
}

// WithPrompt replaces the embedded cluster prompt.
func WithPrompt(p *Prompt) Option {
	return func(s *Summarizer) {
		s.prompt = p
	}
}

// WithProgress registers a callback invoked after each cluster.
func WithProgress(fn func(done, total int)) Option {
	return func(s *Summarizer) {
		s.onProgress = fn
	}
}

// New creates a Summarizer using the embedded cluster prompt.
func New(c Completer, opts ...Option) (*Summarizer, error) {
	prompt, err := LoadPrompt("cluster")
	if err != nil {
		return nil, err
	}
	s := &Summarizer{
		completer:  c,
		prompt:     prompt,
		sampleSize: DefaultSampleSize,
		logger:     slog.Default(),
	}
	if prompt.Meta.SampleSize > 0 {
		s.sampleSize = prompt.Meta.SampleSize
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PromptFor renders the prompt for one cluster from its first members.
func (s *Summarizer) PromptFor(c models.Cluster) (string, error) {
	n := min(s.sampleSize, len(c))
	sources := make([]string, 0, n)
	for _, m := range c[:n] {
		sources = append(sources, m.Source)
	}
	return s.prompt.Render(sources)
}

// Summarize describes each cluster in order. A failed call is recorded in
// the Summary and as a summary_failure diagnostic; it does not stop the
// remaining clusters. Only a cancelled ctx ends the run early.
func (s *Summarizer) Summarize(ctx context.Context, clusters models.ClusterList) ([]Summary, []models.Diagnostic, error) {
	summaries := make([]Summary, 0, len(clusters))
	var diags []models.Diagnostic

	for i, c := range clusters {
		if err := ctx.Err(); err != nil {
			return summaries, diags, err
		}

		sum := Summary{Index: i + 1, Size: len(c)}
		s.logger.Info("summarizing cluster", "cluster", sum.Index, "classes", sum.Size)

		text, err := s.summarizeOne(ctx, c)
		if err != nil {
			sum.Error = err.Error()
			diag := models.Diagnostic{
				Kind:    models.DiagSummaryFailure,
				Message: fmt.Sprintf("cluster %d: %v", sum.Index, err),
			}
			if len(c) > 0 {
				diag.File = c.Seed().File
				diag.Class = c.Seed().ClassName
			}
			diags = append(diags, diag)
			s.logger.Warn("cluster summary failed", "cluster", sum.Index, "kind", models.DiagSummaryFailure, "err", err)
		} else {
			sum.Text = text
		}
		summaries = append(summaries, sum)

		if s.onProgress != nil {
			s.onProgress(i+1, len(clusters))
		}
	}
	return summaries, diags, nil
}

func (s *Summarizer) summarizeOne(ctx context.Context, c models.Cluster) (string, error) {
	if len(c) == 0 {
		return "", fmt.Errorf("empty cluster")
	}
	prompt, err := s.PromptFor(c)
	if err != nil {
		return "", err
	}
	return s.completer.Complete(ctx, prompt)
}

// WriteMarkdown renders summaries under a "# Cluster Summaries" heading.
func WriteMarkdown(w io.Writer, summaries []Summary) error {
	if _, err := fmt.Fprint(w, "# Cluster Summaries\n\n"); err != nil {
		return err
	}
	for _, s := range summaries {
		body := s.Text
		if s.Error != "" {
			body = fmt.Sprintf("_Summary unavailable: %s_", s.Error)
		}
		if _, err := fmt.Fprintf(w, "## Cluster %d (%d classes)\n%s\n\n", s.Index, s.Size, body); err != nil {
			return err
		}
	}
	return nil
}
