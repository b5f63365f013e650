package roles

import (
	"strconv"
	"time"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/advice"
	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/table"
	"github.com/pjfl/statetable/statetable/trait"
)

// CSS classes the built-in traits add.
const (
	ClassNumeric  = "numeric"
	ClassCheckbox = "checkbox"
	ClassInactive = "inactive"
)

const defaultDateFormat = "2006-01-02"

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

type cellValueOp = advice.Op[statetable.Record, statetable.CellValue]
type cellRenderOp = advice.Op[*markup.Element, *markup.Element]

// numericTrait right-aligns the cell and, with a "decimals" option, fixes the precision.
func numericTrait() trait.Trait[*table.Cell] {
	return trait.Trait[*table.Cell]{
		Around: map[string]trait.Binder[*table.Cell]{
			table.OpCellValue: trait.Bind(func(cell *table.Cell, original cellValueOp, record statetable.Record) statetable.CellValue {
				value := original(record)

				decimals := cell.Column().Config().OptionInt("decimals", -1)
				if decimals < 0 || !value.Present {
					return value
				}

				if number, err := strconv.ParseFloat(value.Text(), 64); err == nil {
					value.Value = strconv.FormatFloat(number, 'f', decimals, 64)
				}

				return value
			}),
			table.OpCellRender: trait.Bind(func(_ *table.Cell, original cellRenderOp, td *markup.Element) *markup.Element {
				return original(td.AddClass(ClassNumeric))
			}),
		},
	}
}

// checkboxTrait renders a checkbox carrying the cell value instead of the value text.
func checkboxTrait() trait.Trait[*table.Cell] {
	return trait.Trait[*table.Cell]{
		Around: map[string]trait.Binder[*table.Cell]{
			table.OpCellRender: trait.Bind(func(cell *table.Cell, _ cellRenderOp, td *markup.Element) *markup.Element {
				input := markup.New("input").
					Set("type", "checkbox").
					Set("name", cell.Column().Name()).
					Set("value", cell.Value().Text())

				return td.AddClass(ClassCheckbox).Append(input)
			}),
		},
	}
}

// dateTrait reformats date and timestamp values with the column's "format" option. Values
// that do not parse are left alone.
func dateTrait() trait.Trait[*table.Cell] {
	return trait.Trait[*table.Cell]{
		Around: map[string]trait.Binder[*table.Cell]{
			table.OpCellValue: trait.Bind(func(cell *table.Cell, original cellValueOp, record statetable.Record) statetable.CellValue {
				value := original(record)
				if !value.Present {
					return value
				}

				text := value.Text()
				for _, layout := range dateLayouts {
					parsed, err := time.Parse(layout, text)
					if err != nil {
						continue
					}

					value.Value = parsed.Format(cell.Column().Config().OptionString("format", defaultDateFormat))
					break
				}

				return value
			}),
		},
	}
}

// boolTrait renders truthy values with the "true" option and everything else with "false".
func boolTrait() trait.Trait[*table.Cell] {
	return trait.Trait[*table.Cell]{
		Around: map[string]trait.Binder[*table.Cell]{
			table.OpCellValue: trait.Bind(func(cell *table.Cell, original cellValueOp, record statetable.Record) statetable.CellValue {
				value := original(record)
				config := cell.Column().Config()

				if truthy(value.Value) {
					value.Value = config.OptionString("true", "Yes")
				} else {
					value.Value = config.OptionString("false", "No")
				}
				value.Present = true

				return value
			}),
		},
	}
}

// inactiveTrait marks rows whose "active" field is falsy.
func inactiveTrait() trait.Trait[*table.Row] {
	return trait.Trait[*table.Row]{
		Around: map[string]trait.Binder[*table.Row]{
			table.OpRowRender: trait.Bind(func(row *table.Row, original cellRenderOp, tr *markup.Element) *markup.Element {
				if active, exists := row.Record()["active"]; exists && !truthy(active) {
					tr.AddClass(ClassInactive)
				}

				return original(tr)
			}),
		},
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		return v != "" && v != "0" && v != "false"
	default:
		return true
	}
}
