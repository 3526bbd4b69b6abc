package main

import (
	"encoding/json"
	"fmt"

	"bartally/internal/domain/catalogs/item"
	"bartally/internal/domain/documents/stocktake"
	"bartally/internal/metadata"
)

func main() {
	reg := metadata.NewRegistry()

	// Register Item
	it := item.Item{}
	fmt.Println("Inspecting Item...")
	defItem := metadata.Inspect(it, "Item", metadata.TypeCatalog)

	// Add table name manually or extract from conventions (spike simplification)
	defItem.TableName = "cat_items"
	reg.Register(defItem)

	// Register Stocktake
	st := stocktake.Stocktake{}
	fmt.Println("Inspecting Stocktake...")
	defST := metadata.Inspect(st, "Stocktake", metadata.TypeDocument)
	defST.TableName = "doc_stocktakes"

	// Manual enhancements (simulating what would come from tags or translation files)
	defST.Label = "Count Sheet"

	// Fix Labels
	for i, f := range defST.Fields {
		switch f.Name {
		case "number":
			defST.Fields[i].Label = "Number"
		case "date":
			defST.Fields[i].Label = "Date"
		case "venueId":
			defST.Fields[i].Label = "Venue"
			defST.Fields[i].ReferenceType = "venue"
		case "periodId":
			defST.Fields[i].Label = "Period"
			defST.Fields[i].ReferenceType = "period"
		}
	}

	// Fix TableParts
	if len(defST.TableParts) > 0 {
		tp := &defST.TableParts[0]
		tp.Label = "Lines"
		for i, c := range tp.Columns {
			switch c.Name {
			case "itemId":
				tp.Columns[i].Label = "Item"
				tp.Columns[i].ReferenceType = "item"
			case "countedFull":
				tp.Columns[i].Label = "Full containers"
			case "countedPartial":
				tp.Columns[i].Label = "Partial fraction"
			}
		}
	}

	reg.Register(defST)

	// List all
	defaults := reg.List()

	// Print JSON
	bytes, _ := json.MarshalIndent(defaults, "", "  ")
	fmt.Println(string(bytes))
}
