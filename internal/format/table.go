package format

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"

	"github.com/duckmesh/duckask/internal/query"
)

const nullText = "NULL"

// Table renders result as a boxed grid with a header row.
func Table(result query.Result) (string, error) {
	if len(result.Columns) == 0 {
		return "(no columns)", nil
	}
	return pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithData(tableData(result)).
		Srender()
}

// Plain renders result without borders or colors. It is what the model sees
// when asked for a summary.
func Plain(result query.Result) (string, error) {
	if len(result.Columns) == 0 {
		return "(no columns)", nil
	}
	if len(result.Rows) == 0 {
		return "Empty result with columns: " + fmt.Sprint(result.Columns), nil
	}
	rendered, err := pterm.DefaultTable.
		WithHasHeader().
		WithSeparator("  ").
		WithData(tableData(result)).
		Srender()
	if err != nil {
		return "", err
	}
	return pterm.RemoveColorFromString(rendered), nil
}

func tableData(result query.Result) pterm.TableData {
	data := make(pterm.TableData, 0, len(result.Rows)+1)
	data = append(data, append([]string(nil), result.Columns...))
	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i := range cells {
			if i < len(row) {
				cells[i] = Value(row[i])
			}
		}
		data = append(data, cells)
	}
	return data
}

func Value(value any) string {
	switch typed := value.(type) {
	case nil:
		return nullText
	case string:
		return typed
	case time.Time:
		if typed.Hour() == 0 && typed.Minute() == 0 && typed.Second() == 0 && typed.Nanosecond() == 0 {
			return typed.Format(time.DateOnly)
		}
		return typed.Format(time.DateTime)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}
