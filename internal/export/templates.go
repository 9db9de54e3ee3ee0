package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var listTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"slug": func(s string) string {
			return strings.ReplaceAll(strings.ToLower(s), " ", "-")
		},
	}

	content, err := templateFS.ReadFile("templates/list.html")
	if err != nil {
		listTemplate = template.Must(template.New("list").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}
	listTemplate = template.Must(template.New("list").Funcs(funcMap).Parse(string(content)))
}

// TemplateData holds data for list template rendering
type TemplateData struct {
	Title       string
	Description template.HTML
	Color       string
	Archived    bool
	Owner       string
	GeneratedAt time.Time
	Tasks       []TemplateTask
	SharedWith  []TemplateGrant
	Activity    []TemplateActivity
}

type TemplateTask struct {
	Name        string
	Description template.HTML
	Status      string
	Priority    string
	DueDate     time.Time
	Completed   bool
	Tags        []TemplateTag
}

type TemplateTag struct {
	Name  string
	Color string
}

type TemplateGrant struct {
	Name  string
	Level string
}

type TemplateActivity struct {
	Actor  string
	Action string
	Entity string
	Name   string
	At     time.Time
}

// RenderListHTML renders the list template with provided data
func RenderListHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := listTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div>{{.Description}}</div>
  <ul>{{range .Tasks}}<li>{{.Name}} ({{.Status}}, due {{formatDate .DueDate "2006-01-02"}})</li>{{end}}</ul>
</body>
</html>`
