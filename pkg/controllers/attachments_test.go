package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpad/stackpad/pkg/events"
	"github.com/stackpad/stackpad/pkg/socket"
	"github.com/stackpad/stackpad/pkg/uploads"
)

func TestAttachURLOrdering(t *testing.T) {
	sc, _ := newTestController()

	sc.AttachURL("https://cdn.example/a.png")
	sc.AttachURL("https://cdn.example/b.png")
	sc.AttachURL("https://cdn.example/c.png")

	assert.Equal(t, []string{
		"https://cdn.example/a.png",
		"https://cdn.example/b.png",
		"https://cdn.example/c.png",
	}, sc.Attachments())
}

func TestRemoveAttachmentPreservesOrder(t *testing.T) {
	sc, _ := newTestController()

	for i := 0; i < 5; i++ {
		sc.AttachURL(fmt.Sprintf("https://cdn.example/%d.png", i))
	}

	require.NoError(t, sc.RemoveAttachment(2))

	assert.Equal(t, []string{
		"https://cdn.example/0.png",
		"https://cdn.example/1.png",
		"https://cdn.example/3.png",
		"https://cdn.example/4.png",
	}, sc.Attachments())
}

func TestRemoveAttachmentOutOfRange(t *testing.T) {
	sc, _ := newTestController()
	sc.AttachURL("https://cdn.example/only.png")

	assert.Error(t, sc.RemoveAttachment(-1))
	assert.Error(t, sc.RemoveAttachment(1))
	assert.Len(t, sc.Attachments(), 1)
}

func TestAttachUploadsAndAppends(t *testing.T) {
	var signs atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			n := signs.Add(1)
			json.NewEncoder(w).Encode(uploads.SignResponse{
				UploadURL: fmt.Sprintf("%s/put/%d", srv.URL, n),
				URL:       fmt.Sprintf("%s/cdn/%d.png", srv.URL, n),
			})
		case http.MethodPut:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)

	bus := events.NewBus()
	manager := socket.NewManager("http://localhost:1", "")
	uploader := uploads.NewClient(srv.URL, "")
	sc := NewSessionController(manager, uploader, bus)

	var notified [][]string
	bus.Subscribe(events.EventAttachmentsChanged, func(event events.Event) {
		notified = append(notified, event.Payload.([]string))
	})

	err := sc.Attach(context.Background(), []uploads.Attachment{
		{Data: []byte("a"), ContentType: "image/png"},
		{Data: []byte("b"), ContentType: "image/png"},
	})
	require.NoError(t, err)

	assert.Len(t, sc.Attachments(), 2)
	require.Len(t, notified, 1)
	assert.Len(t, notified[0], 2)
}

func TestAttachFailureLeavesExistingAttachments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	bus := events.NewBus()
	manager := socket.NewManager("http://localhost:1", "")
	uploader := uploads.NewClient(srv.URL, "")
	sc := NewSessionController(manager, uploader, bus)

	sc.AttachURL("https://cdn.example/keep.png")

	err := sc.Attach(context.Background(), []uploads.Attachment{
		{Data: []byte("x"), ContentType: "image/png"},
	})
	require.Error(t, err)
	assert.Equal(t, []string{"https://cdn.example/keep.png"}, sc.Attachments())
}

func TestAttachWithoutUploader(t *testing.T) {
	sc, _ := newTestController()

	err := sc.Attach(context.Background(), []uploads.Attachment{
		{Data: []byte("x"), ContentType: "image/png"},
	})
	assert.Error(t, err)

	assert.NoError(t, sc.Attach(context.Background(), nil))
}

func TestClearAttachments(t *testing.T) {
	sc, _ := newTestController()
	sc.AttachURL("https://cdn.example/a.png")
	sc.AttachURL("https://cdn.example/b.png")

	sc.ClearAttachments()
	assert.Empty(t, sc.Attachments())
}
