package htmltext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html/atom"
)

func TestVisibleText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "just text", "just text"},
		{"paragraphs get a blank line", "<p>a</p><p>b</p>", "a\n\nb"},
		{"inline formatting stays on the line", "<p>Hello <b>world</b></p>", "Hello world"},
		{"heading and list items", "<h1>T</h1><ul><li>x</li><li>y</li></ul>", "T\nx\ny"},
		{"line break", "line1<br>line2", "line1\nline2"},
		{"whitespace collapses", "<p>  many   spaces\n here </p>", "many spaces here"},
		{"script dropped", "<p>hi</p><script>x()</script>", "hi"},
		{"style dropped", "<style>p{color:red}</style><p>hi</p>", "hi"},
		{
			"table cells tab separated",
			"<table>\n<tr>\n<th>A</th> <th>B</th>\n</tr>\n<tr><td>1</td><td>2</td></tr>\n</table>",
			"A\tB\n1\t2",
		},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VisibleText(tt.in))
		})
	}
}

func TestNodeText(t *testing.T) {
	body, err := Parse("<table><tr><td> a <b>b</b>\n</td></tr></table>")
	require.NoError(t, err)

	td := First(body, atom.Td)
	require.NotNil(t, td)
	assert.Equal(t, "a b", NodeText(td))
}

func TestParseReturnsBody(t *testing.T) {
	body, err := Parse("<p>x</p>")
	require.NoError(t, err)
	assert.Equal(t, atom.Body, body.DataAtom)
	assert.NotNil(t, First(body, atom.P))
	assert.Nil(t, First(body, atom.Table))
}

func TestFindAllSkipsNested(t *testing.T) {
	body, err := Parse("<table><tr><td><table><tr><td>in</td></tr></table></td></tr></table><table><tr><td>2</td></tr></table>")
	require.NoError(t, err)

	tables := FindAll(body, atom.Table)
	assert.Len(t, tables, 2)
}

func TestIsBlock(t *testing.T) {
	assert.True(t, IsBlock(atom.P))
	assert.True(t, IsBlock(atom.Li))
	assert.False(t, IsBlock(atom.Span))
	assert.False(t, IsBlock(atom.B))
}

func TestRowsSkipsNestedTables(t *testing.T) {
	body, err := Parse(`<table>
<thead><tr><th>H</th></tr></thead>
<tbody>
<tr><td>a<table><tr><td>inner1</td></tr><tr><td>inner2</td></tr></table></td></tr>
<tr><td>b</td><td>c</td></tr>
</tbody>
<tfoot><tr><td>total</td></tr></tfoot>
</table>`)
	require.NoError(t, err)

	rows := Rows(First(body, atom.Table))
	require.Len(t, rows, 4)
	var got []string
	for _, tr := range rows {
		var cells []string
		for _, c := range Cells(tr) {
			cells = append(cells, NodeText(c))
		}
		got = append(got, strings.Join(cells, "|"))
	}
	assert.Equal(t, []string{"H", "a inner1 inner2", "b|c", "total"}, got)
}
