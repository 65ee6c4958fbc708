package http

import "html/template"

// newTemplates parses the page and its fragments. t looks up a static label.
func newTemplates(labels map[string]string) *template.Template {
	funcs := template.FuncMap{
		"t": func(id string) string {
			if s, ok := labels[id]; ok {
				return s
			}
			return id
		},
	}
	return template.Must(template.New("page").Funcs(funcs).Parse(tmplPage + tmplSidebar + tmplStats + tmplHours + tmplAlert))
}

const tmplPage = `
{{define "page"}}<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{t "PageTitle"}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:system-ui,sans-serif;font-size:14px;color:#222;display:flex;height:100vh}
#map{flex:1}
aside{width:360px;overflow-y:auto;padding:12px;border-left:1px solid #ddd;background:#fafafa}
h1{font-size:18px;margin-bottom:8px}
h2{font-size:14px;margin:14px 0 6px;text-transform:uppercase;color:#555}
label{display:block;margin-top:6px;font-size:12px;color:#555}
input,select,textarea{width:100%;padding:4px;border:1px solid #ccc;border-radius:4px}
button{margin-top:8px;padding:6px 10px;border:0;border-radius:4px;background:#2d6cdf;color:#fff;cursor:pointer}
.row{display:flex;gap:6px}
.alert{padding:8px;border-radius:4px;margin-bottom:8px}
.alert.success{background:#e3f9e5;color:#1e7b34}
.alert.error{background:#fde8e8;color:#b42318}
.report{display:flex;gap:8px;padding:6px 0;border-bottom:1px solid #eee}
.dot{width:12px;height:12px;border-radius:50%;flex-shrink:0;margin-top:3px}
.dim{color:#777;font-size:12px}
.err{color:#b42318}
.stat{padding:4px 0;border-bottom:1px solid #eee}
.hour{display:flex;align-items:center;gap:6px;font-size:12px}
.hour .bar{height:8px;background:#2d6cdf;border-radius:2px}
.hour.peak .bar{background:#b42318}
</style>
</head>
<body>
<div id="map"></div>
<aside>
<h1>{{t "PageTitle"}}</h1>
{{template "alert" .Page.Alert}}
<h2>{{t "FormHeading"}}</h2>
<form method="post" action="/reports" id="report-form">
<label for="tipo">{{t "FieldTipo"}}</label>
<select name="tipo" id="tipo" required>
{{- $tipo := .Page.Form.Tipo}}
{{- range .Page.Categories}}
<option value="{{.}}"{{if eq . $tipo}} selected{{end}}>{{.}}</option>
{{- end}}
</select>
<label for="descripcion">{{t "FieldDescripcion"}}</label>
<textarea name="descripcion" id="descripcion" rows="3">{{.Page.Form.Descripcion}}</textarea>
<div class="row">
<div><label for="lat">{{t "FieldLat"}}</label><input name="lat" id="lat" value="{{.Page.Form.Lat}}" required></div>
<div><label for="lon">{{t "FieldLon"}}</label><input name="lon" id="lon" value="{{.Page.Form.Lon}}" required></div>
</div>
<label for="alcaldia">{{t "FieldAlcaldia"}}</label>
<input name="alcaldia" id="alcaldia" value="{{.Page.Form.Alcaldia}}">
<label for="colonia">{{t "FieldColonia"}}</label>
<input name="colonia" id="colonia" value="{{.Page.Form.Colonia}}">
<button type="submit">{{t "SubmitReport"}}</button>
</form>
<form method="post" action="/locate"><button type="submit">{{t "UseCurrentLocation"}}</button></form>
<h2>{{t "RecentReports"}}</h2>
<div id="sidebar">{{template "sidebar" .Page.Sidebar}}</div>
<form method="post" action="/stats"><button type="submit">{{t "LoadStats"}}</button></form>
<div id="stats">{{template "stats" .Page.Stats}}</div>
<form method="post" action="/stats/hours"><button type="submit">{{t "LoadHours"}}</button></form>
<div id="hours">{{template "hours" .Page.Hours}}</div>
</aside>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<script>
const view = {{.Page.View}};
const home = {{.Page.Home}};
const refreshMs = {{.RefreshMillis}};
const map = L.map('map').setView([view.center.lat, view.center.lng], view.zoom);
L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
L.marker([home.lat, home.lng]).addTo(map).bindPopup({{t "CenterMarker"}}).openPopup();

const layer = L.layerGroup().addTo(map);
function popup(p) {
  const el = document.createElement('div');
  for (const [tag, text] of [['strong', p.tipo], ['p', p.descripcion], ['small', p.location], ['br', ''], ['small', p.created_at]]) {
    const node = document.createElement(tag);
    node.textContent = text;
    el.appendChild(node);
  }
  return el;
}
function draw(markers) {
  layer.clearLayers();
  for (const m of markers) {
    L.circleMarker([m.position.lat, m.position.lng], m.style).bindPopup(popup(m.popup)).addTo(layer);
  }
}
draw({{.Page.Markers}});

map.on('click', (e) => {
  document.getElementById('lat').value = e.latlng.lat.toFixed(6);
  document.getElementById('lon').value = e.latlng.lng.toFixed(6);
  fetch('/map/click', {method: 'POST', body: new URLSearchParams({lat: e.latlng.lat, lng: e.latlng.lng})});
});

setInterval(async () => {
  const markers = await fetch('/api/markers').then((r) => r.json()).catch(() => null);
  if (markers) draw(markers);
  const sidebar = await fetch('/fragments/reports').then((r) => r.text()).catch(() => null);
  if (sidebar !== null) document.getElementById('sidebar').innerHTML = sidebar;
}, refreshMs);
</script>
</body>
</html>
{{end}}
`

const tmplSidebar = `
{{define "sidebar"}}
{{- if .Items}}
{{- range .Items}}
<div class="report">
<span class="dot" style="background:{{.Color}}"></span>
<div><strong>{{.Tipo}}</strong><div class="dim">{{.Location}}</div><div class="dim">{{.CreatedAt}}</div></div>
</div>
{{- end}}
{{- else}}
<p class="{{if .Error}}err{{else}}dim{{end}}">{{.Message}}</p>
{{- end}}
{{end}}
`

const tmplStats = `
{{define "stats"}}
{{- if .Requested}}
{{- if .Rows}}
<h2>{{.Heading}}</h2>
{{- range .Rows}}
<div class="stat"><strong>{{.Rank}}. {{.Zona}}</strong>: {{.Total}}<div class="dim">{{.Breakdown}}</div>
{{- with .CertificateURL}}<a class="dim" href="{{.}}">{{t "DownloadCertificate"}}</a>{{end}}</div>
{{- end}}
{{- else}}
<p class="{{if .Error}}err{{else}}dim{{end}}">{{.Message}}</p>
{{- end}}
{{- end}}
{{end}}
`

const tmplHours = `
{{define "hours"}}
{{- if .Requested}}
{{- if .Rows}}
<h2>{{.Heading}}</h2>
{{- range .Rows}}
<div class="hour{{if .Peak}} peak{{end}}" title="{{.Breakdown}}"><span>{{.Label}}</span><span class="bar" style="width:{{.Percent}}%"></span><span>{{.Total}}</span></div>
{{- end}}
{{- else}}
<p class="{{if .Error}}err{{else}}dim{{end}}">{{.Message}}</p>
{{- end}}
{{- end}}
{{end}}
`

const tmplAlert = `
{{define "alert"}}
{{- with .}}<div class="alert {{.Kind}}" role="alert">{{.Message}}</div>{{end}}
{{end}}
`
