package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/domain/model/order"
)

// pickerItem is one row of the interactive order picker
type pickerItem struct {
	ID      int64
	Label   string
	Details string
}

func pickerItems(orders []order.ServiceOrder) []pickerItem {
	items := make([]pickerItem, 0, len(orders))
	for _, o := range orders {
		details := []string{o.Status.Label()}
		if o.Address != "" {
			details = append(details, o.Address)
		}
		if o.Phone != "" {
			details = append(details, o.Phone)
		}
		items = append(items, pickerItem{
			ID:      o.ID,
			Label:   fmt.Sprintf("#%d %s", o.ID, o.Client),
			Details: strings.Join(details, " · "),
		})
	}
	return items
}

// pickOrder asks the technician to choose one of the offered orders
func pickOrder(cmd *cobra.Command, orders []order.ServiceOrder) (int64, error) {
	const op = "start engagement"
	if len(orders) == 0 {
		return 0, apperr.Validation(op, "no service order can be started now")
	}

	items := pickerItems(orders)
	sel := promptui.Select{
		Label: "Service order",
		Items: items,
		Size:  10,
		Stdin: stdin(cmd),
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "▸ {{ .Label | cyan }}",
			Inactive: "  {{ .Label }}",
			Selected: "✓ {{ .Label }}",
			Details:  "{{ .Details }}",
		},
		Searcher: func(input string, index int) bool {
			return len(order.Search(orders[index:index+1], input)) == 1
		},
	}

	idx, _, err := sel.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return 0, apperr.Validation(op, "no service order chosen; pass the order id as an argument")
		}
		return 0, fmt.Errorf("order picker: %w", err)
	}
	return items[idx].ID, nil
}
