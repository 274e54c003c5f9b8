package http

import (
	"net/http"
	"strconv"

	"github.com/couchcryptid/bf-mission-map/internal/domain"
	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"
)

// sliderScript swaps the map image when the slider moves.
const sliderScript = `
const slider = document.getElementById("year");
const label = document.getElementById("year-label");
const map = document.getElementById("map");
slider.addEventListener("input", () => {
  label.textContent = slider.value;
  map.src = "/map/" + slider.value + ".png";
});
`

const pageStyle = `
body { font-family: sans-serif; margin: 1.5rem; background: #fafafa; color: #222; }
.panels { display: flex; flex-wrap: wrap; gap: 1rem; }
.panels img { max-width: 100%; border: 1px solid #ddd; background: #fff; }
.slider { margin: 1rem 0; display: flex; align-items: center; gap: 0.75rem; }
.slider input { width: 24rem; }
.muted { color: #777; font-size: 0.9rem; }
`

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	table, err := s.tables.Table()
	if err != nil {
		renderHTML(w, http.StatusServiceUnavailable, page(
			html.P(gomponents.Text("The mission table is not loaded yet.")),
		))
		return
	}
	renderHTML(w, http.StatusOK, missionPage(table))
}

func missionPage(table *domain.MergedTable) gomponents.Node {
	years := table.Years()
	if len(years) == 0 {
		return page(html.P(gomponents.Text("The mission table has no years.")))
	}
	first := strconv.Itoa(years[0])
	latest := strconv.Itoa(years[len(years)-1])

	summary := strconv.Itoa(table.Len()) + " districts, " + strconv.Itoa(len(table.Unresolved())) + " without coordinates"
	if !table.BuiltAt.IsZero() {
		summary += ", built " + table.BuiltAt.Format("2006-01-02 15:04")
	}

	return page(
		html.Div(
			html.Class("slider"),
			html.Label(html.For("year"), gomponents.Text("Year")),
			html.Input(
				html.ID("year"),
				html.Type("range"),
				gomponents.Attr("min", first),
				gomponents.Attr("max", latest),
				gomponents.Attr("step", "1"),
				html.Value(first),
			),
			html.Strong(html.ID("year-label"), gomponents.Text(first)),
		),
		html.Div(
			html.Class("panels"),
			html.Img(html.ID("map"), html.Src("/map/"+first+".png"), html.Alt("Missions per district")),
			html.Img(html.Src("/chart.png"), html.Alt("Missions per year")),
		),
		html.P(html.Class("muted"), gomponents.Text(summary)),
		html.Script(gomponents.Raw(sliderScript)),
	)
}

func page(body ...gomponents.Node) gomponents.Node {
	return html.Doctype(
		html.HTML(
			html.Lang("de"),
			html.Head(
				html.Meta(html.Charset("utf-8")),
				html.Meta(html.Name("viewport"), html.Content("width=device-width, initial-scale=1")),
				html.TitleEl(gomponents.Text("Berliner Feuerwehr missions")),
				html.StyleEl(gomponents.Raw(pageStyle)),
			),
			html.Body(
				html.H1(gomponents.Text("Berliner Feuerwehr missions")),
				gomponents.Group(body),
			),
		),
	)
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}
