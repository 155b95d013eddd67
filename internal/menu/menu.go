// Package menu parses the structured menu file and formats its records into
// retrievable documents, one per menu section.
package menu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"lockchun-chatbot/internal/vectorstore"
)

// Item is a single menu record. The concrete type is decided at parse time:
// a section holds either plain items or family dinner sets.
type Item interface {
	Format() string
}

// PriceOption is one size/price pair, in menu-file order.
type PriceOption struct {
	Size   string
	Amount float64
}

// PlainItem is a regular menu entry: fixed price or per-size prices, with
// optional quantity, spice flag and details.
type PlainItem struct {
	Name     string
	Price    float64 // 0 when Prices is set
	Prices   []PriceOption
	Quantity string // rendered label, e.g. "8 pcs"
	Spicy    bool
	Details  string
}

// Addition is the dish added to a family dinner for a given party size.
type Addition struct {
	Persons string
	Dish    string
}

// FamilyDinner is a per-person priced set meal with base items and additions
// keyed by party size.
type FamilyDinner struct {
	Name                 string
	PricePerPerson       float64
	MinimumPersons       int
	SubstitutionsAllowed bool
	Description          string
	BaseItems            []string
	Additions            []Addition
}

// Section is a named group of menu items, in menu-file order.
type Section struct {
	Name  string
	Items []Item
}

type plainItemJSON struct {
	Name     string             `json:"name"`
	Price    *float64           `json:"price"`
	Prices   json.RawMessage    `json:"prices"`
	Quantity json.RawMessage    `json:"quantity"`
	Spicy    bool               `json:"spicy"`
	Details  string             `json:"details"`
}

type familyDinnerJSON struct {
	Name                 string            `json:"name"`
	PricePerPerson       float64           `json:"price_per_person"`
	MinimumPersons       int               `json:"minimum_persons"`
	SubstitutionsAllowed bool              `json:"substitutions_allowed"`
	Description          string            `json:"description"`
	BaseItems            []string          `json:"base_items"`
	AdditionsByPerson    map[string]string `json:"additions_by_person"`
}

// ParseMenu decodes the menu file, preserving section order and deciding the
// item kind for every record up front.
func ParseMenu(data []byte) ([]Section, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse menu file: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("menu file must be a JSON object of sections")
	}

	var sections []Section
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse menu file: %w", err)
		}
		name := keyTok.(string)

		var rawItems []json.RawMessage
		if err := dec.Decode(&rawItems); err != nil {
			return nil, fmt.Errorf("section %q is not an array of items: %w", name, err)
		}

		section := Section{Name: name, Items: make([]Item, 0, len(rawItems))}
		for i, raw := range rawItems {
			item, err := parseItem(raw)
			if err != nil {
				return nil, fmt.Errorf("section %q item %d: %w", name, i, err)
			}
			section.Items = append(section.Items, item)
		}
		sections = append(sections, section)
	}

	return sections, nil
}

// parseItem sniffs the record shape: presence of the per-person price, base
// items and additions fields marks a family dinner set.
func parseItem(raw json.RawMessage) (Item, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("item is not an object: %w", err)
	}

	_, hasPerPerson := probe["price_per_person"]
	_, hasBaseItems := probe["base_items"]
	_, hasAdditions := probe["additions_by_person"]

	if hasPerPerson && hasBaseItems && hasAdditions {
		var fd familyDinnerJSON
		if err := json.Unmarshal(raw, &fd); err != nil {
			return nil, fmt.Errorf("invalid family dinner record: %w", err)
		}
		return &FamilyDinner{
			Name:                 fd.Name,
			PricePerPerson:       fd.PricePerPerson,
			MinimumPersons:       fd.MinimumPersons,
			SubstitutionsAllowed: fd.SubstitutionsAllowed,
			Description:          fd.Description,
			BaseItems:            fd.BaseItems,
			Additions:            sortedAdditions(fd.AdditionsByPerson),
		}, nil
	}

	var pi plainItemJSON
	if err := json.Unmarshal(raw, &pi); err != nil {
		return nil, fmt.Errorf("invalid menu item record: %w", err)
	}

	item := &PlainItem{
		Name:    pi.Name,
		Spicy:   pi.Spicy,
		Details: pi.Details,
	}
	if pi.Price != nil {
		item.Price = *pi.Price
	}
	if len(pi.Prices) > 0 {
		prices, err := parsePriceOptions(pi.Prices)
		if err != nil {
			return nil, err
		}
		item.Prices = prices
	}
	if len(pi.Quantity) > 0 {
		item.Quantity = quantityLabel(pi.Quantity)
	}
	return item, nil
}

// parsePriceOptions walks the prices object with a decoder to keep the
// size order of the menu file.
func parsePriceOptions(raw json.RawMessage) ([]PriceOption, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid prices: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("prices must be an object")
	}

	var options []PriceOption
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid prices: %w", err)
		}
		var amount float64
		if err := dec.Decode(&amount); err != nil {
			return nil, fmt.Errorf("invalid price for size %q: %w", keyTok, err)
		}
		options = append(options, PriceOption{Size: keyTok.(string), Amount: amount})
	}
	return options, nil
}

// quantityLabel renders the quantity field, which is a number (piece count)
// or a free-form string in the menu file.
func quantityLabel(raw json.RawMessage) string {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64) + " pcs"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func sortedAdditions(byPerson map[string]string) []Addition {
	additions := make([]Addition, 0, len(byPerson))
	for persons, dish := range byPerson {
		additions = append(additions, Addition{Persons: persons, Dish: dish})
	}
	sort.Slice(additions, func(i, j int) bool {
		a, errA := strconv.Atoi(additions[i].Persons)
		b, errB := strconv.Atoi(additions[j].Persons)
		if errA != nil || errB != nil {
			return additions[i].Persons < additions[j].Persons
		}
		return a < b
	})
	return additions
}

// Format renders one bullet line: name, price(s), quantity, details, spice.
func (p *PlainItem) Format() string {
	priceString := ""
	switch {
	case p.Price != 0:
		priceString = fmt.Sprintf("$%.2f", p.Price)
	case len(p.Prices) > 0:
		priceString = formatPrices(p.Prices)
	}

	quantityString := ""
	if p.Quantity != "" {
		quantityString = " (" + p.Quantity + ")"
	}
	detailsString := ""
	if p.Details != "" {
		detailsString = " – " + p.Details
	}
	spicyMarker := ""
	if p.Spicy {
		spicyMarker = " 🔥 spicy"
	}

	line := "• " + p.Name + " — " + priceString + quantityString + detailsString + spicyMarker
	line = strings.TrimSuffix(line, " — ")
	return strings.TrimSpace(line)
}

// formatPrices expands single-letter size keys and joins the options.
func formatPrices(options []PriceOption) string {
	parts := make([]string, 0, len(options))
	for _, opt := range options {
		label := opt.Size
		if len(label) == 1 {
			switch strings.ToUpper(label) {
			case "S":
				label = "Small"
			case "M":
				label = "Medium"
			case "L":
				label = "Large"
			}
		}
		parts = append(parts, fmt.Sprintf("%s $%.2f", label, opt.Amount))
	}
	return strings.Join(parts, " | ")
}

// Format renders the full per-person pricing block for a family dinner.
func (f *FamilyDinner) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: $%.2f Per Person\n", f.Name, f.PricePerPerson)
	fmt.Fprintf(&b, "- Minimum %d persons. %s\n", f.MinimumPersons, f.Description)
	b.WriteString("- Includes the following base items:\n")
	for _, item := range f.BaseItems {
		b.WriteString("  • " + item + "\n")
	}
	b.WriteString("- Additional items based on group size:\n")
	for i, add := range f.Additions {
		fmt.Fprintf(&b, "  For %s persons we add: %s", add.Persons, add.Dish)
		if i < len(f.Additions)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// BuildDocuments produces one retrievable document per menu section, section
// name carried as metadata.
func BuildDocuments(sections []Section) []vectorstore.Document {
	docs := make([]vectorstore.Document, 0, len(sections))
	for _, section := range sections {
		lines := make([]string, 0, len(section.Items))
		familyStyle := false
		for _, item := range section.Items {
			switch it := item.(type) {
			case *FamilyDinner:
				familyStyle = true
				lines = append(lines, it.Format())
			case *PlainItem:
				lines = append(lines, it.Format())
			}
		}

		separator := "\n"
		if familyStyle {
			separator = "\n\n"
		}
		content := section.Name + "\n" + strings.Join(lines, separator)

		docs = append(docs, vectorstore.Document{
			Content: strings.TrimSpace(content),
			Section: section.Name,
		})
	}
	return docs
}
