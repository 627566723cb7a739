// Package demo ships a small sample catalog and the helpers to load it into any backend.
package demo

import (
	"embed"
	"encoding/json"
	"fmt"
	"time"
)

//go:embed assets
var embeddedAssets embed.FS

// Fixture ids are local to the file; Seed maps them to whatever ids the backend assigns.
type (
	Fixtures struct {
		Users   []UserFixture   `json:"users"`
		Authors []AuthorFixture `json:"authors"`
		Genres  []GenreFixture  `json:"genres"`
		Books   []BookFixture   `json:"books"`
	}

	UserFixture struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	AuthorFixture struct {
		ID        int    `json:"id"`
		Name      string `json:"name"`
		BirthDate string `json:"birth_date,omitempty"`
	}
	GenreFixture struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	BookFixture struct {
		ISBN      string          `json:"isbn"`
		Title     string          `json:"title"`
		Published string          `json:"published,omitempty"`
		CreatedBy int             `json:"created_by"`
		Authors   []int           `json:"authors"`
		Genres    []int           `json:"genres"`
		Ratings   []RatingFixture `json:"ratings"`
		Reviews   []ReviewFixture `json:"reviews"`
	}
	RatingFixture struct {
		User  int `json:"user"`
		Value int `json:"value"`
	}
	ReviewFixture struct {
		User int    `json:"user"`
		Date string `json:"date,omitempty"`
		Text string `json:"text"`
	}
)

// LoadFixtures decodes the embedded sample catalog.
func LoadFixtures() (*Fixtures, error) {
	data, err := embeddedAssets.ReadFile("assets/catalog.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}

	var f Fixtures
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode embedded catalog: %w", err)
	}
	return &f, nil
}

// parseDate returns nil for an empty value.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return &t, nil
}
