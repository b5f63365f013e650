package markup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pjfl/statetable/statetable/markup"
)

func Test_Element_HTML(t *testing.T) {
	row := markup.New("tr",
		markup.WithText("td", "a<b").Set("class", "cell"),
		markup.New("td", markup.New("a", markup.Text("x")).Set("href", "/u?a=1&b=2")),
		nil,
	)

	assert.Equal(t, `<tr><td class="cell">a&lt;b</td><td><a href="/u?a=1&amp;b=2">x</a></td></tr>`, row.HTML())
}

func Test_Element_VoidElementsHaveNoClosingTag(t *testing.T) {
	input := markup.New("input").Set("type", "checkbox").Set("checked", "checked")

	assert.Equal(t, `<input checked="checked" type="checkbox">`, input.HTML())
}

func Test_Element_ClassesAndSearch(t *testing.T) {
	table := markup.New("table", markup.New("tbody",
		markup.WithText("td", "one").AddClass("a"),
		markup.WithText("td", "two").AddClass("a").AddClass("b"),
	))
	table.Prepend(markup.WithText("caption", "Users"))

	cells := table.FindTag("td")
	assert.Len(t, cells, 2)
	assert.True(t, cells[1].HasClass("b"))
	assert.False(t, cells[0].HasClass("b"))
	assert.Equal(t, "a b", cells[1].Attr("class"))
	assert.Equal(t, "Usersonetwo", table.TextContent())
	assert.Equal(t, "caption", table.Children[0].Tag)
}
