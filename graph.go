package dbn

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/awalterschulze/gographviz"
	"github.com/gorgonia/dbn/internal/linalg"
	"github.com/gorgonia/dbn/layer"
)

type layerNode struct {
	layer.Layer
	ID int
}

// ToDot returns the topology of the network in the DOT language: one node
// per layer and one edge per connection, labelled with its weight range.
func (d *DBN) ToDot() string {
	g := gographviz.NewGraph()
	if err := g.SetName("G"); err != nil {
		panic(err)
	}
	g.SetDir(true)
	g.AddAttr("G", "rankdir", "BT")

	var buf bytes.Buffer
	for i, l := range d.layers {
		tmpl.Execute(&buf, layerNode{Layer: l, ID: i})
		attrs := map[string]string{
			"fontname": "Monaco",
			"shape":    "none",
			"label":    buf.String(),
		}
		g.AddNode("G", nodeName(i), attrs)
		buf.Reset()
	}
	for i, c := range d.conns {
		min, max := linalg.MinMax(c.Weights())
		attrs := map[string]string{
			"label": fmt.Sprintf("\"W%d [%.3g, %.3g]\"", i, min, max),
		}
		g.AddEdge(nodeName(i), nodeName(i+1), true, attrs)
	}
	return g.String()
}

func nodeName(i int) string { return fmt.Sprintf("L%d", i) }

const tmplRaw = `<
<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0">
<TR><TD>Layer</TD><TD>{{.ID}}</TD></TR>
<TR><TD>Kind</TD><TD>{{.Kind}}</TD></TR>
<TR><TD>Nodes</TD><TD>{{.Nodes}}</TD></TR>
<TR><TD>Cost</TD><TD>{{printf "%.4g" .Cost}}</TD></TR>
</TABLE>
>
`

var tmpl *template.Template

func init() {
	tmpl = template.Must(template.New("name").Parse(tmplRaw))
}
