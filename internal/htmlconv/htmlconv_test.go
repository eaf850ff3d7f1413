package htmlconv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ErikKalkoken/hookpost/internal/htmlconv"
)

func TestToMarkdown(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"can convert plain text", "description", "description"},
		{"can remove img tags", `alpha <img src="abc">bravo</img> charlie`, "alpha bravo charlie"},
		{"can sanitize mailto links", `<a href="mailto:info@example.com">info</a>`, "info"},
		{"can sanitize invalid URLs", `<a href="https://www.xgoogle.com">https://www.google.com</a>`, "[Link](https://www.xgoogle.com)"},
		{"should not impact valid URLs", `<a href="https://www.google.com">Google</a>`, "[Google](https://www.google.com)"},
		{"can convert bold text", `<b>bold</b>`, "**bold**"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := htmlconv.ToMarkdown(tc.in)
			if assert.NoError(t, err) {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestImageURLs(t *testing.T) {
	t.Run("can extract images in order", func(t *testing.T) {
		in := `<p>alpha <img src="https://www.example.com/1.png"> bravo</p><img src="http://www.example.com/2.png">`
		got, err := htmlconv.ImageURLs(in)
		if assert.NoError(t, err) {
			assert.Equal(t, []string{"https://www.example.com/1.png", "http://www.example.com/2.png"}, got)
		}
	})
	t.Run("should skip duplicates and invalid sources", func(t *testing.T) {
		in := `<img src="https://www.example.com/1.png"><img src="https://www.example.com/1.png"><img src="relative.png"><img src="data:image/png;base64,xx"><img>`
		got, err := htmlconv.ImageURLs(in)
		if assert.NoError(t, err) {
			assert.Equal(t, []string{"https://www.example.com/1.png"}, got)
		}
	})
	t.Run("should return empty list when there are no images", func(t *testing.T) {
		got, err := htmlconv.ImageURLs("no images")
		if assert.NoError(t, err) {
			assert.Empty(t, got)
		}
	})
}
