// Package document renders loan application data into PDF documents:
// template selection, placeholder substitution, and printing through a
// headless-browser renderer.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Kalion254/vyg-member-portal/internal/models"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrRender           = errors.New("document rendering failed")
)

// Pipeline renders a named template against application field data and
// writes the resulting PDF under the generated directory.
type Pipeline struct {
	templatesDir string
	generatedDir string
	renderer     Renderer
	timeout      time.Duration

	now func() time.Time
}

func NewPipeline(templatesDir, generatedDir string, renderer Renderer, timeout time.Duration) *Pipeline {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Pipeline{
		templatesDir: templatesDir,
		generatedDir: generatedDir,
		renderer:     renderer,
		timeout:      timeout,
		now:          time.Now,
	}
}

// Render produces the PDF for an application and saves it. It returns
// the document bytes and the generated filename. Attachment filenames
// are embedded into the rendered content; the attachment bytes are not.
func (p *Pipeline) Render(ctx context.Context, product, applicationID string, fields map[string]string, attachments []models.Attachment) ([]byte, string, error) {
	name := SelectTemplate(product)
	markup, err := os.ReadFile(filepath.Join(p.templatesDir, name+".html"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return nil, "", fmt.Errorf("failed to read template %s: %w", name, err)
	}

	merged := make(map[string]string, len(fields)+3)
	for k, v := range fields {
		merged[k] = v
	}
	merged["applicationId"] = applicationID
	merged["product"] = product
	merged["attachments"] = attachmentNames(attachments)

	html := Substitute(string(markup), merged)

	renderCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	pdf, err := p.renderer.RenderPDF(renderCtx, html)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrRender, err)
	}

	filename := slug(product) + "_" + strconv.FormatInt(p.now().UnixMilli(), 10) + ".pdf"
	if err := os.MkdirAll(p.generatedDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create generated dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.generatedDir, filename), pdf, 0o644); err != nil {
		return nil, "", fmt.Errorf("failed to save document: %w", err)
	}
	return pdf, filename, nil
}

func attachmentNames(attachments []models.Attachment) string {
	names := make([]string, 0, len(attachments))
	for _, a := range attachments {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func slug(product string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(product), "_")
}
