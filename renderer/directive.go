package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/bookkeeper"
)

// Directive renders a directive to a one-line string for the log view.
func Directive(d bookkeeper.Directive) string {
	switch v := d.(type) {
	case bookkeeper.Transaction:
		accounts := make([]string, 0, len(v.Postings))
		for _, p := range v.Postings {
			accounts = append(accounts, fmt.Sprintf("%s %s", p.Account, p.Units))
		}
		return fmt.Sprintf("%s * %q  %s", v.Day, v.Narration, strings.Join(accounts, ", "))
	case bookkeeper.Balance:
		return fmt.Sprintf("%s balance %s = %s", v.Day, v.Account, v.Amount)
	case bookkeeper.Price:
		return fmt.Sprintf("%s price %s = %s", v.Day, v.Commodity, v.Amount)
	default:
		return string(d.Kind())
	}
}
