package google

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"finboard/internal/core"
	"finboard/internal/taxonomy"
)

// Header aliases of the transactions sheet, matched case-insensitively.
var transactionColumns = map[string][]string{
	"id":                {"id", "transaction_id"},
	"posted_at":         {"posted_at", "date", "posted"},
	"amount":            {"amount"},
	"transaction_type":  {"transaction_type", "type"},
	"main_category":     {"main_category", "main category"},
	"category":          {"category"},
	"subcategory":       {"subcategory"},
	"owner":             {"owner"},
	"bank_account_type": {"bank_account_type", "account", "account type"},
}

// parseTransactions converts a values matrix into transactions. Rows with a
// missing date or amount are kept but marked unusable; skipped counts them.
func parseTransactions(values [][]interface{}) ([]core.Transaction, int, error) {
	if len(values) == 0 {
		return nil, 0, nil
	}
	headers := toStrings(values[0])
	cols := make(map[string]int, len(transactionColumns))
	for field, aliases := range transactionColumns {
		cols[field] = indexOfAny(headers, aliases...)
	}
	var missing []string
	for _, required := range []string{"posted_at", "amount"} {
		if cols[required] == -1 {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, 0, fmt.Errorf("unexpected transactions header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	var out []core.Transaction
	skipped := 0
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		get := func(field string) string { return safeGet(row, cols[field]) }

		tx := core.Transaction{
			ID:              get("id"),
			Type:            core.TransactionType(strings.ToLower(get("transaction_type"))),
			MainCategory:    get("main_category"),
			Category:        get("category"),
			Subcategory:     get("subcategory"),
			Owner:           get("owner"),
			BankAccountType: get("bank_account_type"),
		}
		if tx.ID == "" {
			tx.ID = fmt.Sprintf("row-%d", i+1)
		}
		if ts, err := core.ParsePostedAt(get("posted_at")); err == nil {
			tx.PostedAt = ts
		}
		if amount, err := core.ParseAmount(get("amount")); err == nil {
			tx.Amount = amount
		} else {
			tx.MarkInvalid()
		}
		if !tx.Bucketable() {
			skipped++
		}
		out = append(out, tx)
	}
	return out, skipped, nil
}

// parseCategories converts the categories sheet into flat tree nodes.
// Columns: Type, Category, Subcategory, ID, ParentID, Color, Icon. The level
// of a row is the deepest non-empty name column.
func parseCategories(values [][]interface{}) ([]taxonomy.Node, error) {
	if len(values) == 0 {
		return nil, errors.New("categories sheet is empty")
	}
	headers := toStrings(values[0])
	colType := indexOf(headers, "Type")
	colCategory := indexOf(headers, "Category")
	colSubcategory := indexOf(headers, "Subcategory")
	colID := indexOf(headers, "ID")
	colParent := indexOfAny(headers, "ParentID", "Parent ID", "parent_id")
	colColor := indexOf(headers, "Color")
	colIcon := indexOf(headers, "Icon")
	if colType == -1 || colCategory == -1 || colSubcategory == -1 || colID == -1 || colParent == -1 {
		return nil, fmt.Errorf("unexpected categories header: want Type, Category, Subcategory, ID, ParentID; got headers=%v", headers)
	}

	var nodes []taxonomy.Node
	var errs []error
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		id, err := strconv.ParseInt(safeGet(row, colID), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: invalid id %q", i+1, safeGet(row, colID)))
			continue
		}
		n := taxonomy.Node{
			ID:    id,
			Color: safeGet(row, colColor),
			Icon:  safeGet(row, colIcon),
		}
		typeName := safeGet(row, colType)
		switch {
		case safeGet(row, colSubcategory) != "":
			n.Kind = taxonomy.KindSubcategory
			n.Name = safeGet(row, colSubcategory)
		case safeGet(row, colCategory) != "":
			n.Kind = taxonomy.KindCategory
			n.Name = safeGet(row, colCategory)
		case typeName != "":
			n.Kind = taxonomy.KindType
			n.Name = typeName
			n.Code = strings.ToLower(typeName)
		default:
			errs = append(errs, fmt.Errorf("row %d: no name", i+1))
			continue
		}
		if n.Kind != taxonomy.KindType {
			parent, err := strconv.ParseInt(safeGet(row, colParent), 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("row %d: invalid parent id %q", i+1, safeGet(row, colParent)))
				continue
			}
			n.ParentID = parent
		}
		nodes = append(nodes, n)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("parse categories sheet: %w", errors.Join(errs...))
	}
	return nodes, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func indexOfAny(arr []string, targets ...string) int {
	for _, t := range targets {
		if i := indexOf(arr, t); i != -1 {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
