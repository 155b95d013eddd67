package menu

import (
	"strings"
	"testing"
)

const sampleMenu = `{
  "Appetizers": [
    { "name": "Spring Rolls", "price": 8.5, "quantity": 4 },
    { "name": "Pot Stickers", "price": 11.25, "quantity": 6, "details": "pan fried" }
  ],
  "Soup": [
    { "name": "Hot and Sour Soup", "prices": { "S": 9.5, "L": 12.95 }, "spicy": true }
  ],
  "Family Dinners": [
    {
      "name": "Family Dinner (A)",
      "price_per_person": 18.95,
      "minimum_persons": 2,
      "substitutions_allowed": false,
      "description": "No substitutions.",
      "base_items": ["Soup of the Day", "Spring Rolls"],
      "additions_by_person": { "4": "Mongolian Beef", "3": "Kung Pao Chicken" }
    }
  ]
}`

func TestParseMenuKinds(t *testing.T) {
	sections, err := ParseMenu([]byte(sampleMenu))
	if err != nil {
		t.Fatalf("ParseMenu: %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}

	// Section order follows the file
	if sections[0].Name != "Appetizers" || sections[2].Name != "Family Dinners" {
		t.Errorf("section order lost: %q, %q", sections[0].Name, sections[2].Name)
	}

	if _, ok := sections[0].Items[0].(*PlainItem); !ok {
		t.Errorf("appetizer should parse as a plain item")
	}
	fd, ok := sections[2].Items[0].(*FamilyDinner)
	if !ok {
		t.Fatalf("family dinner record not detected")
	}
	if fd.PricePerPerson != 18.95 || fd.MinimumPersons != 2 {
		t.Errorf("family dinner fields wrong: %+v", fd)
	}
	// Additions sorted by party size
	if fd.Additions[0].Persons != "3" || fd.Additions[1].Persons != "4" {
		t.Errorf("additions not ordered by party size: %+v", fd.Additions)
	}
}

func TestPlainItemFormat(t *testing.T) {
	item := &PlainItem{Name: "Pot Stickers", Price: 11.25, Quantity: "6 pcs", Details: "pan fried"}
	got := item.Format()
	want := "• Pot Stickers — $11.25 (6 pcs) – pan fried"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestPlainItemFormatSpicySizes(t *testing.T) {
	item := &PlainItem{
		Name:   "Hot and Sour Soup",
		Prices: []PriceOption{{Size: "S", Amount: 9.5}, {Size: "L", Amount: 12.95}},
		Spicy:  true,
	}
	got := item.Format()
	want := "• Hot and Sour Soup — Small $9.50 | Large $12.95 🔥 spicy"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestPlainItemFormatNoPrice(t *testing.T) {
	item := &PlainItem{Name: "Seasonal Vegetables"}
	got := item.Format()
	if got != "• Seasonal Vegetables" {
		t.Errorf("Format() = %q", got)
	}
}

func TestFamilyDinnerFormat(t *testing.T) {
	fd := &FamilyDinner{
		Name:           "Family Dinner (A)",
		PricePerPerson: 18.95,
		MinimumPersons: 2,
		Description:    "No substitutions.",
		BaseItems:      []string{"Soup of the Day", "Spring Rolls"},
		Additions: []Addition{
			{Persons: "3", Dish: "Kung Pao Chicken"},
			{Persons: "4", Dish: "Mongolian Beef"},
		},
	}

	got := fd.Format()
	for _, want := range []string{
		"Family Dinner (A): $18.95 Per Person",
		"- Minimum 2 persons. No substitutions.",
		"  • Soup of the Day",
		"  For 3 persons we add: Kung Pao Chicken",
		"  For 4 persons we add: Mongolian Beef",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Format() missing %q:\n%s", want, got)
		}
	}
}

func TestBuildDocuments(t *testing.T) {
	sections, err := ParseMenu([]byte(sampleMenu))
	if err != nil {
		t.Fatalf("ParseMenu: %v", err)
	}

	docs := BuildDocuments(sections)
	if len(docs) != 3 {
		t.Fatalf("expected one document per section, got %d", len(docs))
	}

	if docs[0].Section != "Appetizers" {
		t.Errorf("section metadata wrong: %q", docs[0].Section)
	}
	if !strings.HasPrefix(docs[0].Content, "Appetizers\n") {
		t.Errorf("document should start with the section title:\n%s", docs[0].Content)
	}
	if !strings.Contains(docs[0].Content, "• Spring Rolls — $8.50 (4 pcs)") {
		t.Errorf("plain item line missing:\n%s", docs[0].Content)
	}

	family := docs[2]
	if !strings.Contains(family.Content, "$18.95 Per Person") {
		t.Errorf("family dinner block missing:\n%s", family.Content)
	}
}

func TestParseMenuRejectsBadShape(t *testing.T) {
	if _, err := ParseMenu([]byte(`["not", "an", "object"]`)); err == nil {
		t.Fatalf("expected error for non-object menu")
	}
	if _, err := ParseMenu([]byte(`{"Soup": {"not": "a list"}}`)); err == nil {
		t.Fatalf("expected error for non-array section")
	}
}
