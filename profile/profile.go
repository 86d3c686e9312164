// Package profile holds the static "about me" card content. The defaults
// match the shipped page; an optional config file overrides them.
package profile

import (
	"fmt"

	"github.com/spf13/viper"
)

// Link is an outbound profile link.
type Link struct {
	Label string `mapstructure:"label" json:"label"`
	Href  string `mapstructure:"href" json:"href"`
}

// StatRow is one label/value row in the stats box. Rows keep their order.
type StatRow struct {
	Label string `mapstructure:"label" json:"label"`
	Value string `mapstructure:"value" json:"value"`
}

// Badge is a small decorative icon on the card.
type Badge struct {
	Emoji string `mapstructure:"emoji" json:"emoji,omitempty"`
	Label string `mapstructure:"label" json:"label,omitempty"`
	Src   string `mapstructure:"src" json:"src,omitempty"`
	Big   bool   `mapstructure:"big" json:"big,omitempty"`
}

// Group is the little group blurb under the stats.
type Group struct {
	Name    string `mapstructure:"name" json:"name"`
	Members string `mapstructure:"members" json:"members"`
	Icon    string `mapstructure:"icon" json:"icon"`
}

// Card is everything the presentation layer needs to render the page.
type Card struct {
	Name       string    `mapstructure:"name" json:"name"`
	Tagline    string    `mapstructure:"tagline" json:"tagline"`
	Contact    string    `mapstructure:"contact" json:"contact"`
	Ages       int       `mapstructure:"ages" json:"ages"`
	Status     string    `mapstructure:"status" json:"status"`
	Accent     string    `mapstructure:"accent" json:"accent"`
	Avatar     string    `mapstructure:"avatar" json:"avatar"`
	Background string    `mapstructure:"background" json:"background"`
	Badges     []Badge   `mapstructure:"badges" json:"badges"`
	Stats      []StatRow `mapstructure:"stats" json:"stats"`
	Group      Group     `mapstructure:"group" json:"group"`
	Links      []Link    `mapstructure:"links" json:"links"`
}

func defaultCard() *Card {
	return &Card{
		Name:       "Letrongvang",
		Tagline:    "those who don't know dark · don't value the lights",
		Contact:    "discord.gg/letrongv4ng",
		Ages:       19,
		Status:     "Currently Busy",
		Accent:     "#cdcdcd6e",
		Avatar:     "assets/pfp.jpg",
		Background: "assets/background.jpg",
		Badges:     []Badge{},
		Stats: []StatRow{
			{Label: "University:", Value: "F right before the PT"},
			{Label: "Status:", Value: "67% Single and 33% Nicotine"},
			{Label: "Inventory:", Value: "Marlboro and one lighter"},
		},
		Group: Group{Name: "should we meet?", Members: "no", Icon: "O"},
		Links: []Link{
			{Label: "GitHub", Href: "https://github.com/letrongv4ng"},
			{Label: "Instagram", Href: "https://www.instagram.com/lil.haize"},
		},
	}
}

// Load returns the card, overridden by the config file at path when given.
func Load(path string) (*Card, error) {
	card := defaultCard()
	if path == "" {
		return card, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read profile config: %w", err)
	}
	if err := v.Unmarshal(card); err != nil {
		return nil, fmt.Errorf("parse profile config: %w", err)
	}
	return card, nil
}
