package roles

import (
	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/statetable/table"
	"github.com/pjfl/statetable/statetable/trait"
)

const defaultDownloadFormat = "csv"

func downloadRole() trait.Trait[*table.Table] {
	return trait.Trait[*table.Table]{
		Initialise: func(t *table.Table, _ trait.Args) error {
			return extend(t, stateKey{key: resultset.KeyDownload, wire: WireDownload, defaultValue: ""})
		},
		Around: merge(
			controls(RoleDownload, table.LocationBottom, downloadControl),
			map[string]trait.Binder[*table.Table]{
				resultset.OpPrepareURL: paramStage(resultset.KeyDownload),
			},
		),
	}
}

func downloadControl(t *table.Table) *markup.Element {
	href, err := DownloadURL(t)
	if err != nil {
		return nil
	}

	label := roleConfig(t, RoleDownload).OptionString("label", "Download")

	return markup.WithText("a", label).Set("href", href).Set("download", "").AddClass("download")
}

// DownloadURL returns the request URL for the whole filtered and sorted result in the
// configured format. The table's state is not changed.
func DownloadURL(t *table.Table) (string, error) {
	if err := requireRole(t, RoleDownload); err != nil {
		return "", err
	}

	format := roleConfig(t, RoleDownload).OptionString("format", defaultDownloadFormat)

	return t.Resultset().PrepareURL(map[string]any{
		resultset.KeyDownload: format,
		resultset.KeyPage:     0,
		resultset.KeyPageSize: 0,
	})
}
