package dhook_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ErikKalkoken/hookpost/internal/dhook"
)

func TestWebhook(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	ctx := context.Background()
	url := "https://www.example.com/hook"
	c := dhook.NewClient(http.DefaultClient)
	t.Run("can post a message", func(t *testing.T) {
		httpmock.Reset()
		var body, contentType string
		httpmock.RegisterResponder(
			"POST",
			url,
			func(req *http.Request) (*http.Response, error) {
				dat, err := io.ReadAll(req.Body)
				if err != nil {
					return nil, err
				}
				body = string(dat)
				contentType = req.Header.Get("Content-Type")
				return httpmock.NewStringResponse(204, ""), nil
			},
		)
		wh := c.NewWebhook(url)
		err := wh.Execute(ctx, dhook.Message{Content: "Hello"})
		if assert.NoError(t, err) {
			assert.Equal(t, 1, httpmock.GetTotalCallCount())
			assert.Equal(t, `{"content":"Hello"}`, body)
			assert.Equal(t, "application/json", contentType)
		}
	})
	t.Run("should treat any 2xx response as success", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", url, httpmock.NewStringResponder(200, `{"id": "123"}`))
		wh := c.NewWebhook(url)
		err := wh.Execute(ctx, dhook.Message{Content: "Hello"})
		assert.NoError(t, err)
	})
	t.Run("should return http 404 as DeliveryError", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", url, httpmock.NewStringResponder(404, `{"message": "Unknown Webhook"}`))
		wh := c.NewWebhook(url)
		err := wh.Execute(ctx, dhook.Message{Content: "Hello"})
		var errDelivery dhook.DeliveryError
		if assert.ErrorAs(t, err, &errDelivery) {
			assert.Equal(t, 404, errDelivery.StatusCode)
		}
		assert.Equal(t, 1, httpmock.GetTotalCallCount())
	})
	t.Run("should not retry rate limited requests", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder(
			"POST",
			url,
			httpmock.NewStringResponder(429, "").HeaderSet(http.Header{"Retry-After": []string{"3"}}),
		)
		wh := c.NewWebhook(url)
		err := wh.Execute(ctx, dhook.Message{Content: "Hello"})
		var errDelivery dhook.DeliveryError
		if assert.ErrorAs(t, err, &errDelivery) {
			assert.Equal(t, 429, errDelivery.StatusCode)
		}
		assert.Equal(t, 1, httpmock.GetTotalCallCount())
	})
	t.Run("should return transport errors as DeliveryError", func(t *testing.T) {
		httpmock.Reset()
		errTransport := errors.New("connection refused")
		httpmock.RegisterResponder("POST", url, httpmock.NewErrorResponder(errTransport))
		wh := c.NewWebhook(url)
		err := wh.Execute(ctx, dhook.Message{Content: "Hello"})
		var errDelivery dhook.DeliveryError
		if assert.ErrorAs(t, err, &errDelivery) {
			assert.Equal(t, 0, errDelivery.StatusCode)
		}
		assert.ErrorIs(t, err, errTransport)
	})
	t.Run("should not send message which can not be built", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", url, httpmock.NewStringResponder(204, ""))
		wh := c.NewWebhook(url)
		m := dhook.Message{Embeds: []dhook.Embed{{Images: make([]dhook.EmbedImage, 5)}}}
		err := wh.Execute(ctx, m)
		assert.ErrorIs(t, err, dhook.ErrTooManyImages)
		assert.Equal(t, 0, httpmock.GetTotalCallCount())
	})
}

func TestWebhookPost(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	ctx := context.Background()
	url := "https://www.example.com/hook"
	t.Run("can post a built payload", func(t *testing.T) {
		httpmock.Reset()
		var body string
		httpmock.RegisterResponder("POST", url, func(req *http.Request) (*http.Response, error) {
			dat, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			body = string(dat)
			return httpmock.NewStringResponse(204, ""), nil
		})
		c := dhook.NewClient(http.DefaultClient)
		dat, err := c.Build(dhook.Message{Content: "Hello"})
		require.NoError(t, err)
		err = c.NewWebhook(url).Post(ctx, dat)
		if assert.NoError(t, err) {
			assert.Equal(t, string(dat), body)
		}
	})
	t.Run("should return failed posts as DeliveryError", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", url, httpmock.NewStringResponder(400, ""))
		c := dhook.NewClient(http.DefaultClient)
		err := c.NewWebhook(url).Post(ctx, []byte(`{"content":"Hello"}`))
		var errDelivery dhook.DeliveryError
		if assert.ErrorAs(t, err, &errDelivery) {
			assert.Equal(t, 400, errDelivery.StatusCode)
		}
	})
	t.Run("should use default http client when none given", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", url, httpmock.NewStringResponder(204, ""))
		c := dhook.NewClient(nil)
		err := c.NewWebhook(url).Execute(ctx, dhook.Message{Content: "Hello"})
		if assert.NoError(t, err) {
			assert.Equal(t, 1, httpmock.GetTotalCallCount())
		}
	})
}

func TestWebhookDispatch(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	ctx := context.Background()
	url := "https://www.example.com/hook"
	c := dhook.NewClient(http.DefaultClient)
	t.Run("can report success", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", url, httpmock.NewStringResponder(204, ""))
		errC, err := c.NewWebhook(url).Dispatch(ctx, dhook.Message{Content: "Hello"})
		if assert.NoError(t, err) {
			assert.NoError(t, <-errC)
			_, ok := <-errC
			assert.False(t, ok)
			assert.Equal(t, 1, httpmock.GetTotalCallCount())
		}
	})
	t.Run("can report failed delivery", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", url, httpmock.NewStringResponder(500, ""))
		errC, err := c.NewWebhook(url).Dispatch(ctx, dhook.Message{Content: "Hello"})
		if assert.NoError(t, err) {
			var errDelivery dhook.DeliveryError
			if assert.ErrorAs(t, <-errC, &errDelivery) {
				assert.Equal(t, 500, errDelivery.StatusCode)
			}
		}
	})
	t.Run("should report build errors immediately", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", url, httpmock.NewStringResponder(204, ""))
		m := dhook.Message{Embeds: []dhook.Embed{{Images: make([]dhook.EmbedImage, 2)}}}
		errC, err := c.NewWebhook(url).Dispatch(ctx, m)
		assert.ErrorIs(t, err, dhook.ErrImagesRequireURL)
		assert.Nil(t, errC)
		assert.Equal(t, 0, httpmock.GetTotalCallCount())
	})
	t.Run("can dispatch concurrently", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", url, httpmock.NewStringResponder(204, ""))
		wh := c.NewWebhook(url)
		g := new(errgroup.Group)
		for range 20 {
			g.Go(func() error {
				errC, err := wh.Dispatch(ctx, dhook.Message{Content: "Hello"})
				if err != nil {
					return err
				}
				return <-errC
			})
		}
		if assert.NoError(t, g.Wait()) {
			assert.Equal(t, 20, httpmock.GetTotalCallCount())
		}
	})
}
