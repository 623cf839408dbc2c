package server

import (
	"bytes"
	"embed"
	"html/template"

	tutor "github.com/haowjy/meridian-tutor"
)

//go:embed web/index.html
var webFS embed.FS

var pageTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

type languageOption struct {
	Value string
	Label string
}

type pageData struct {
	Languages    []languageOption
	Models       []tutor.ModelInfo
	DefaultModel string
}

func (s *Server) renderPage() []byte {
	data := pageData{
		Models:       s.explainer.Models(),
		DefaultModel: s.defaultModel.String(),
	}
	for _, lang := range tutor.Languages() {
		data.Languages = append(data.Languages, languageOption{Value: string(lang), Label: lang.DisplayName()})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error().Err(err).Msg("render page")
		return []byte("tutor UI unavailable")
	}
	return buf.Bytes()
}
