// Package msgfile reads Discord messages from TOML files.
//
// An example file:
//
//	content = "Hello"
//	notify = false
//
//	[[embeds]]
//	title = "Release 1.0"
//	url = "https://www.example.com/release"
//	description_html = "<p>Now <b>available</b></p>"
//	images = ["https://www.example.com/1.png", "https://www.example.com/2.png"]
//	timestamp = "now"
//
//	[[embeds.fields]]
//	name = "Version"
//	value = "1.0"
//	inline = true
//
// Embeds without a color get [dhook.DefaultColor].
package msgfile

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ErikKalkoken/hookpost/internal/dhook"
	"github.com/ErikKalkoken/hookpost/internal/htmlconv"
)

var ErrInvalidFile = errors.New("invalid message file")

type message struct {
	AvatarURL  string  `toml:"avatar_url"`
	Content    string  `toml:"content"`
	Embeds     []embed `toml:"embeds"`
	Notify     *bool   `toml:"notify"`
	ThreadName string  `toml:"thread_name"`
	Username   string  `toml:"username"`
}

type embed struct {
	Author          *author  `toml:"author"`
	Color           *int     `toml:"color"`
	Description     string   `toml:"description"`
	DescriptionHTML string   `toml:"description_html"`
	Fields          []field  `toml:"fields"`
	Footer          *footer  `toml:"footer"`
	Images          []string `toml:"images"`
	Thumbnail       string   `toml:"thumbnail"`
	Timestamp       any      `toml:"timestamp"`
	Title           string   `toml:"title"`
	URL             string   `toml:"url"`
}

type author struct {
	Name    string `toml:"name"`
	IconURL string `toml:"icon_url"`
	URL     string `toml:"url"`
}

type field struct {
	Name   string `toml:"name"`
	Value  string `toml:"value"`
	Inline bool   `toml:"inline"`
}

type footer struct {
	Text    string `toml:"text"`
	IconURL string `toml:"icon_url"`
}

// timestampFromTOML returns an embed timestamp from a TOML string or datetime.
func timestampFromTOML(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case time.Time:
		return dhook.TimestampOf(x), nil
	}
	return "", fmt.Errorf("unsupported timestamp type %T", v)
}

// Load reads a message from a TOML file.
func Load(path string) (dhook.Message, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return dhook.Message{}, err
	}
	return Parse(string(dat))
}

// Parse reads a message from TOML data.
func Parse(data string) (dhook.Message, error) {
	var m message
	md, err := toml.Decode(data, &m)
	if err != nil {
		return dhook.Message{}, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		s := make([]string, 0, len(keys))
		for _, k := range keys {
			s = append(s, k.String())
		}
		return dhook.Message{}, fmt.Errorf("%w: unknown keys: %s", ErrInvalidFile, strings.Join(s, ", "))
	}
	return m.toDiscordMessage()
}

func (m message) toDiscordMessage() (dhook.Message, error) {
	dm := dhook.Message{
		AvatarURL:  m.AvatarURL,
		Content:    m.Content,
		ThreadName: m.ThreadName,
		Username:   m.Username,
	}
	if m.Notify != nil && !*m.Notify {
		dm.SuppressNotifications = true
	}
	for i, x := range m.Embeds {
		em, err := x.toDiscordEmbed()
		if err != nil {
			return dhook.Message{}, fmt.Errorf("%w: embed %d: %w", ErrInvalidFile, i, err)
		}
		dm.Embeds = append(dm.Embeds, em)
	}
	return dm, nil
}

func (x embed) toDiscordEmbed() (dhook.Embed, error) {
	em := dhook.NewEmbed()
	if x.Color != nil {
		em.Color = dhook.ColorOf(*x.Color)
	}
	em.Title = x.Title
	em.URL = x.URL
	ts, err := timestampFromTOML(x.Timestamp)
	if err != nil {
		return em, err
	}
	em.Timestamp = ts
	switch {
	case x.Description != "" && x.DescriptionHTML != "":
		return em, errors.New("description and description_html are mutually exclusive")
	case x.DescriptionHTML != "":
		s, err := htmlconv.ToMarkdown(x.DescriptionHTML)
		if err != nil {
			return em, err
		}
		em.Description = s
	default:
		em.Description = x.Description
	}
	if x.Author != nil {
		em.Author = &dhook.EmbedAuthor{Name: x.Author.Name, IconURL: x.Author.IconURL, URL: x.Author.URL}
	}
	if x.Fields != nil {
		em.Fields = make([]dhook.EmbedField, 0, len(x.Fields))
		for _, f := range x.Fields {
			em.Fields = append(em.Fields, dhook.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
	}
	if x.Footer != nil {
		em.Footer = &dhook.EmbedFooter{Text: x.Footer.Text, IconURL: x.Footer.IconURL}
	}
	for _, u := range x.Images {
		em.Images = append(em.Images, dhook.EmbedImage{URL: u})
	}
	if x.Thumbnail != "" {
		em.Thumbnail = &dhook.EmbedThumbnail{URL: x.Thumbnail}
	}
	return em, nil
}
