package relay

import (
	"html/template"
	"net/http"

	"github.com/Masterminds/sprig/v3"
)

// consentPageData feeds the consent dialog template. EncodedRequest is the
// already-serialized relay state; posting it back avoids re-parsing the
// original query parameters on approval.
type consentPageData struct {
	ClientName     string
	ClientID       string
	ProviderName   string
	Scope          string
	EncodedRequest string
}

var consentTemplate = template.Must(
	template.New("consent").Funcs(sprig.HtmlFuncMap()).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Authorize {{ .ClientName }}</title>
  <style>
    body { font-family: system-ui, sans-serif; background: #f4f4f5; margin: 0; }
    .card { max-width: 26rem; margin: 10vh auto; background: #fff; border-radius: 8px;
            box-shadow: 0 1px 4px rgba(0,0,0,.12); padding: 2rem; }
    h1 { font-size: 1.2rem; margin: 0 0 1rem; }
    p { color: #3f3f46; line-height: 1.5; }
    .client { font-weight: 600; }
    .scope { font-family: monospace; background: #f4f4f5; padding: .1rem .3rem; border-radius: 3px; }
    .actions { display: flex; gap: .75rem; margin-top: 1.5rem; }
    button { flex: 1; padding: .6rem; border-radius: 6px; border: 1px solid #d4d4d8;
             font-size: 1rem; cursor: pointer; }
    button.approve { background: #2563eb; border-color: #2563eb; color: #fff; }
  </style>
</head>
<body>
  <div class="card">
    <h1>Authorization request</h1>
    <p><span class="client">{{ .ClientName | default .ClientID }}</span> wants to access your
       {{ .ProviderName | title }} account{{ if .Scope }} with scope
       <span class="scope">{{ .Scope }}</span>{{ end }}.</p>
    <p>Approving remembers this choice on this browser and skips this dialog next time.</p>
    <form method="post" action="/authorize">
      <input type="hidden" name="request" value="{{ .EncodedRequest }}">
      <div class="actions">
        <button class="approve" type="submit" name="action" value="approve">Approve</button>
        <button type="submit" name="action" value="deny">Deny</button>
      </div>
    </form>
  </div>
</body>
</html>
`))

func renderConsentPage(w http.ResponseWriter, data consentPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := consentTemplate.Execute(w, data); err != nil {
		http.Error(w, "failed to render consent page", http.StatusInternalServerError)
	}
}
