package parser

import (
	"context"
	"strings"
)

// TextParser handles plain text and markdown files.
type TextParser struct{}

func (p *TextParser) SupportedFormats() []string { return []string{"txt", "md"} }

func (p *TextParser) Parse(ctx context.Context, src Source) (*ParseResult, error) {
	data, err := readSource(src)
	if err != nil {
		return nil, err
	}

	content := string(data)
	res := &ParseResult{
		Text:     content,
		Pages:    1,
		Metadata: map[string]string{"format": "text"},
	}
	if strings.TrimSpace(content) == "" {
		return res, nil
	}
	if !strings.HasSuffix(content, "\n") {
		res.Text += "\n"
	}
	res.Sections = splitPageIntoSections(content, 1)
	return res, nil
}
