package dhook

import (
	"errors"
	"fmt"
)

var ErrInvalidMessage = errors.New("invalid message")

// Discord message limit
const (
	authorNameLength    = 256
	contentLength       = 2000
	descriptionLength   = 4096
	embedCombinedLength = 6000
	embedsQuantity      = 10
	fieldNameLength     = 256
	fieldsQuantity      = 25
	fieldValueLength    = 1024
	footerTextLength    = 2048
	imagesQuantity      = 4
	titleLength         = 256
	usernameLength      = 80
)

// DefaultColor is the color of embeds created with [NewEmbed].
const DefaultColor = 0xFF0000

// Message represents a message that can be send to a Discord webhook.
//
// Empty strings and nil pointers are treated as absent and not sent.
type Message struct {
	AvatarURL string
	Content   string
	Embeds    []Embed
	// SuppressNotifications prevents push and desktop notifications for this message.
	SuppressNotifications bool
	// ThreadName creates a new thread with this name. Only valid for forum channels.
	ThreadName string
	Username   string
}

// Validate checks the message against known Discord limits.
// Returns an [ErrInvalidMessage] error in case a limit is violated.
func (m Message) Validate() error {
	if len(m.Content) == 0 && len(m.Embeds) == 0 {
		return fmt.Errorf("need to contain content or embeds: %w", ErrInvalidMessage)
	}
	if length(m.Content) > contentLength {
		return fmt.Errorf("content too long: %w", ErrInvalidMessage)
	}
	if length(m.Username) > usernameLength {
		return fmt.Errorf("username too long: %w", ErrInvalidMessage)
	}
	if len(m.Embeds) > embedsQuantity {
		return fmt.Errorf("too many embeds: %w", ErrInvalidMessage)
	}
	var totalSize int
	for i, em := range m.Embeds {
		if err := em.validate(); err != nil {
			return fmt.Errorf("embed %d: %w", i, err)
		}
		totalSize += em.size()
	}
	if totalSize > embedCombinedLength {
		return fmt.Errorf("too many characters in combined embeds: %w", ErrInvalidMessage)
	}
	return nil
}

// Embed represents a Discord Embed.
type Embed struct {
	Author *EmbedAuthor
	// Color is a RGB value. Nil means no color.
	Color       *int
	Description string
	// Fields is sent as empty list when it is not nil, but empty.
	Fields    []EmbedField
	Footer    *EmbedFooter
	Images    []EmbedImage
	Thumbnail *EmbedThumbnail
	// Timestamp is either empty, "now" or a RFC 3339 time.
	Timestamp string
	Title     string
	URL       string
}

// NewEmbed returns a new embed with the default color.
func NewEmbed() Embed {
	return Embed{Color: ColorOf(DefaultColor)}
}

// ColorOf returns an embed color for a RGB value.
func ColorOf(rgb int) *int {
	return &rgb
}

func (em Embed) size() int {
	x := length(em.Title) + length(em.Description)
	if em.Author != nil {
		x += length(em.Author.Name)
	}
	if em.Footer != nil {
		x += length(em.Footer.Text)
	}
	for _, f := range em.Fields {
		x += f.size()
	}
	return x
}

func (em Embed) validate() error {
	if em.Author != nil {
		if err := em.Author.validate(); err != nil {
			return err
		}
	}
	if length(em.Description) > descriptionLength {
		return fmt.Errorf("embed description too long: %w", ErrInvalidMessage)
	}
	if em.Footer != nil {
		if err := em.Footer.validate(); err != nil {
			return err
		}
	}
	if len(em.Fields) > fieldsQuantity {
		return fmt.Errorf("embed has too many fields: %w", ErrInvalidMessage)
	}
	for _, f := range em.Fields {
		if err := f.validate(); err != nil {
			return err
		}
	}
	if len(em.Images) > imagesQuantity {
		return fmt.Errorf("embed has too many images: %w", ErrInvalidMessage)
	}
	for _, x := range em.Images {
		if x.URL == "" {
			return fmt.Errorf("embed image has no url: %w", ErrInvalidMessage)
		}
	}
	if em.Thumbnail != nil && em.Thumbnail.URL == "" {
		return fmt.Errorf("embed thumbnail has no url: %w", ErrInvalidMessage)
	}
	if length(em.Title) > titleLength {
		return fmt.Errorf("embed title too long: %w", ErrInvalidMessage)
	}
	if _, _, err := parseTimestamp(em.Timestamp); err != nil {
		return fmt.Errorf("embed timestamp: %w", ErrInvalidMessage)
	}
	return nil
}

type EmbedAuthor struct {
	Name    string
	IconURL string
	URL     string
}

func (ea EmbedAuthor) validate() error {
	if ea.Name == "" {
		return fmt.Errorf("embed author has no name: %w", ErrInvalidMessage)
	}
	if length(ea.Name) > authorNameLength {
		return fmt.Errorf("embed author name too long: %w", ErrInvalidMessage)
	}
	return nil
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

func (ef EmbedField) size() int {
	return length(ef.Name) + length(ef.Value)
}

func (ef EmbedField) validate() error {
	if ef.Name == "" || ef.Value == "" {
		return fmt.Errorf("embed field needs name and value: %w", ErrInvalidMessage)
	}
	if length(ef.Name) > fieldNameLength {
		return fmt.Errorf("embed field name too long: %w", ErrInvalidMessage)
	}
	if length(ef.Value) > fieldValueLength {
		return fmt.Errorf("embed field value too long: %w", ErrInvalidMessage)
	}
	return nil
}

// EmbedFooter is the footer of an embed. Text does not support markdown.
type EmbedFooter struct {
	Text    string
	IconURL string
}

func (ef EmbedFooter) validate() error {
	if ef.Text == "" {
		return fmt.Errorf("embed footer has no text: %w", ErrInvalidMessage)
	}
	if length(ef.Text) > footerTextLength {
		return fmt.Errorf("embed footer text too long: %w", ErrInvalidMessage)
	}
	return nil
}

type EmbedImage struct {
	URL string
}

type EmbedThumbnail struct {
	URL string
}

// length returns the number of runes in a string.
func length(s string) int {
	return len([]rune(s))
}
