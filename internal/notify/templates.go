package notify

import (
	"bytes"
	"html/template"
)

var bodies = template.Must(template.New("mail").Parse(`
{{define "status"}}<p>Case <b>{{.CaseID}}</b> ({{.PatientName}}) was moved to <b>{{.Status}}</b> by {{.Actor}}.</p>{{end}}
{{define "comment"}}<p>{{.Actor}} commented on case <b>{{.CaseID}}</b> ({{.PatientName}}):</p><blockquote>{{.Text}}</blockquote>{{end}}
{{define "file"}}<p>{{.Actor}} attached <b>{{.Text}}</b> to case <b>{{.CaseID}}</b> ({{.PatientName}}).</p>{{end}}
`))

// CaseEvent fills the message templates. Text is the comment body or the
// file name, depending on the template.
type CaseEvent struct {
	CaseID      string
	PatientName string
	Status      string
	Actor       string
	Text        string
}

func render(name string, ev CaseEvent) string {
	var buf bytes.Buffer
	if err := bodies.ExecuteTemplate(&buf, name, ev); err != nil {
		// templates are static; a failure here means a broken build
		panic(err)
	}
	return buf.String()
}

// StatusChangedHTML renders the status transition notice.
func StatusChangedHTML(ev CaseEvent) string { return render("status", ev) }

// CommentAddedHTML renders the new-comment notice.
func CommentAddedHTML(ev CaseEvent) string { return render("comment", ev) }

// FileAddedHTML renders the new-file notice.
func FileAddedHTML(ev CaseEvent) string { return render("file", ev) }
