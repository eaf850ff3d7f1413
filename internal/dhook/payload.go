package dhook

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrTooManyImages    = errors.New("too many images")
	ErrImagesRequireURL = errors.New("multiple images require an embed url")
)

// flagSuppressNotifications is the message flag for suppressing notifications.
const flagSuppressNotifications = 1 << 12

// payload represents the JSON document posted to a Discord webhook.
type payload struct {
	Username   string         `json:"username,omitempty"`
	AvatarURL  string         `json:"avatar_url,omitempty"`
	Content    string         `json:"content,omitempty"`
	ThreadName string         `json:"thread_name,omitempty"`
	Flags      int            `json:"flags,omitempty"`
	Embeds     []payloadEmbed `json:"embeds,omitempty"`
}

type payloadEmbed struct {
	Author      *payloadAuthor  `json:"author,omitempty"`
	Title       string          `json:"title,omitempty"`
	URL         string          `json:"url,omitempty"`
	Description string          `json:"description,omitempty"`
	Color       *int            `json:"color,omitempty"`
	Fields      *[]payloadField `json:"fields,omitempty"`
	Thumbnail   *payloadURL     `json:"thumbnail,omitempty"`
	Image       *payloadURL     `json:"image,omitempty"`
	Footer      *payloadFooter  `json:"footer,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
}

type payloadAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type payloadField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type payloadFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

type payloadURL struct {
	URL string `json:"url"`
}

// Build returns the JSON document for a message as expected by Discord's webhook API.
// The clock is used to resolve embed timestamps set to "now".
//
// Build fails with [ErrInvalidTimestamp], [ErrTooManyImages] or [ErrImagesRequireURL]
// when an embed can not be converted.
func Build(m Message, clock Clock) ([]byte, error) {
	p, err := newPayload(m, clock)
	if err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

func newPayload(m Message, clock Clock) (payload, error) {
	p := payload{
		Username:   m.Username,
		AvatarURL:  m.AvatarURL,
		Content:    m.Content,
		ThreadName: m.ThreadName,
	}
	if m.SuppressNotifications {
		p.Flags = flagSuppressNotifications
	}
	for i, em := range m.Embeds {
		x, err := buildEmbed(em, clock)
		if err != nil {
			return payload{}, fmt.Errorf("embed %d: %w", i, err)
		}
		p.Embeds = append(p.Embeds, x...)
	}
	return p, nil
}

// buildEmbed converts an embed into it's wire format.
//
// Discord shows only one image per embed. Additional images are therefore
// returned as extra embeds with the same URL, which Discord shows as one gallery.
func buildEmbed(em Embed, clock Clock) ([]payloadEmbed, error) {
	if len(em.Images) > imagesQuantity {
		return nil, fmt.Errorf("%d images, allowed are %d: %w", len(em.Images), imagesQuantity, ErrTooManyImages)
	}
	if len(em.Images) > 1 && em.URL == "" {
		return nil, ErrImagesRequireURL
	}
	ts, err := resolveTimestamp(em.Timestamp, clock)
	if err != nil {
		return nil, err
	}
	x := payloadEmbed{
		Title:       em.Title,
		URL:         em.URL,
		Description: em.Description,
		Color:       em.Color,
		Timestamp:   ts,
	}
	if em.Author != nil {
		x.Author = &payloadAuthor{Name: em.Author.Name, URL: em.Author.URL, IconURL: em.Author.IconURL}
	}
	if em.Fields != nil {
		fields := make([]payloadField, 0, len(em.Fields))
		for _, f := range em.Fields {
			fields = append(fields, payloadField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		x.Fields = &fields
	}
	if em.Thumbnail != nil {
		x.Thumbnail = &payloadURL{URL: em.Thumbnail.URL}
	}
	if em.Footer != nil {
		x.Footer = &payloadFooter{Text: em.Footer.Text, IconURL: em.Footer.IconURL}
	}
	if len(em.Images) == 0 {
		return []payloadEmbed{x}, nil
	}
	x.Image = &payloadURL{URL: em.Images[0].URL}
	r := []payloadEmbed{x}
	for _, img := range em.Images[1:] {
		r = append(r, payloadEmbed{URL: em.URL, Image: &payloadURL{URL: img.URL}})
	}
	return r, nil
}
