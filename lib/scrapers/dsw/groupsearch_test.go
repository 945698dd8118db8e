package dsw

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const groupSearchFixture = `<table id="ZnajdzGrupeGrid_DXMainTable">
<tr class="dxgvDataRow_iOS">
	<td>INF-5-ST</td>
	<td><a href="/Plany/PlanyGrup/555">Informatyka sem 5</a></td>
	<td>
		<a href="/Plany/PlanyTokow/77">stacjonarne</a>
		<a href="/Plany/PlanyTokow/78">niestacjonarne</a>
	</td>
	<td>Informatyka</td>
	<td>Wydział Studiów Stosowanych</td>
</tr>
<tr class="dxgvDataRow_iOS">
	<td>PED-1-NST</td>
	<td><a href="/Plany/PlanyGrup/abc">Pedagogika sem 1</a></td>
	<td></td>
	<td>Pedagogika</td>
	<td>Wydział Nauk Społecznych</td>
</tr>
<tr class="dxgvDataRow_iOS">
	<td>krótki wiersz</td>
	<td>bez wymaganych kolumn</td>
</tr>
</table>`

func TestParseGroups(t *testing.T) {
	groups, err := NewParser().ParseGroups(context.Background(), groupSearchFixture)
	require.NoError(t, err)

	expect := []GroupInfo{
		{
			GroupId: 555,
			Code:    "INF-5-ST",
			Name:    "Informatyka sem 5",
			Tracks: []TrackInfo{
				{TrackId: 77, Title: "stacjonarne"},
				{TrackId: 78, Title: "niestacjonarne"},
			},
			Program: "Informatyka",
			Faculty: "Wydział Studiów Stosowanych",
		},
		{
			GroupId: -1,
			Code:    "PED-1-NST",
			Name:    "Pedagogika sem 1",
			Program: "Pedagogika",
			Faculty: "Wydział Nauk Społecznych",
		},
	}
	require.Empty(t, cmp.Diff(expect, groups))
}

func TestParseGroupsNoTable(t *testing.T) {
	groups, err := NewParser().ParseGroups(context.Background(), "<html><body>nic tu nie ma</body></html>")
	require.NoError(t, err)
	require.Empty(t, groups)
}
