// Package feeditem converts feed items into Discord messages.
package feeditem

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ErikKalkoken/hookpost/internal/dhook"
	"github.com/ErikKalkoken/hookpost/internal/htmlconv"
)

const (
	embedMaxFieldLength       = 256 // title, author name, field names
	embedDescriptionMaxLength = 4096
	embedMaxImages            = 4
	avatarURL                 = "https://cdn.imgpile.com/f/aQ1yR7t_xl.png"
	username                  = "Hookpost"
)

// FeedItem represents a feed item to be posted to a webhook
type FeedItem struct {
	Description string
	FeedName    string
	FeedTitle   string
	FeedURL     string
	IconURL     string
	ImageURL    string
	IsUpdated   bool
	ItemURL     string
	Published   time.Time
	Title       string
}

// New returns a new FeedItem from a gofeed item.
func New(feedName string, feed *gofeed.Feed, item *gofeed.Item, isUpdated bool) FeedItem {
	fi := FeedItem{
		FeedName:  feedName,
		FeedTitle: feed.Title,
		FeedURL:   feed.Link,
		IsUpdated: isUpdated,
		ItemURL:   item.Link,
		Title:     item.Title,
	}
	if item.Content != "" {
		fi.Description = item.Content
	} else {
		fi.Description = item.Description
	}
	if feed.Image != nil {
		fi.IconURL = feed.Image.URL
	}
	if item.Image != nil {
		fi.ImageURL = item.Image.URL
	}
	if item.PublishedParsed != nil {
		fi.Published = *item.PublishedParsed
	}
	return fi
}

// ToDiscordMessage generates a Discord message from a FeedItem.
//
// Images found in the description are shown below the embed,
// as long as the item has an URL to group them.
func (fi FeedItem) ToDiscordMessage(brandingDisabled bool) (dhook.Message, error) {
	var dm dhook.Message
	description, err := htmlconv.ToMarkdown(fi.Description)
	if err != nil {
		return dm, err
	}
	desc, truncated := truncateString(description, embedDescriptionMaxLength)
	if truncated {
		slog.Warn("description was truncated", "title", fi.Title)
	}
	t := fi.Title
	if fi.IsUpdated {
		t = fmt.Sprintf("UPDATED: %s", t)
	}
	title, truncated := truncateString(t, embedMaxFieldLength)
	if truncated {
		slog.Warn("title was truncated", "title", fi.Title)
	}
	em := dhook.NewEmbed()
	em.Description = desc
	em.Title = title
	em.URL = fi.ItemURL
	if !fi.Published.IsZero() {
		em.Timestamp = dhook.TimestampOf(fi.Published)
	}
	if fi.FeedTitle != "" {
		name, truncated := truncateString(fi.FeedTitle, embedMaxFieldLength)
		if truncated {
			slog.Warn("author name was truncated", "FeedTitle", fi.FeedTitle)
		}
		em.Author = &dhook.EmbedAuthor{Name: name, URL: fi.FeedURL, IconURL: fi.IconURL}
	}
	images, err := fi.imageURLs()
	if err != nil {
		slog.Warn("Failed to extract images from description", "title", fi.Title, "error", err)
	}
	for _, u := range images {
		em.Images = append(em.Images, dhook.EmbedImage{URL: u})
	}
	if fi.FeedName != "" {
		em.Footer = &dhook.EmbedFooter{Text: fi.FeedName}
	}
	if !brandingDisabled {
		dm.Username = username
		dm.AvatarURL = avatarURL
	}
	dm.Embeds = []dhook.Embed{em}
	return dm, nil
}

// imageURLs returns the images to show for this item.
func (fi FeedItem) imageURLs() ([]string, error) {
	urls := make([]string, 0)
	if fi.ImageURL != "" {
		urls = append(urls, fi.ImageURL)
	}
	limit := embedMaxImages
	if fi.ItemURL == "" {
		limit = 1
	}
	x, err := htmlconv.ImageURLs(fi.Description)
	if err != nil {
		return urls[:min(len(urls), limit)], err
	}
	for _, u := range x {
		if u != fi.ImageURL {
			urls = append(urls, u)
		}
	}
	return urls[:min(len(urls), limit)], nil
}

// truncateString truncates a given string if it longer then a limit
// and also adds an ellipsis at the end of truncated strings.
// It returns the new string.
func truncateString(s string, maxLen int) (string, bool) {
	if maxLen < 3 {
		panic("max length can not be below 3")
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s, false
	}
	x := string(runes[0 : maxLen-3])
	return x + "...", true
}
