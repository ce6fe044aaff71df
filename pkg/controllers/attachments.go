package controllers

import (
	"context"
	"fmt"

	"github.com/stackpad/stackpad/pkg/uploads"
)

// Attachments returns the pending attachment URLs in attach order
func (sc *SessionController) Attachments() []string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]string{}, sc.attachments...)
}

// AttachURL appends an already-uploaded attachment
func (sc *SessionController) AttachURL(url string) {
	sc.mu.Lock()
	sc.attachments = append(sc.attachments, url)
	sc.mu.Unlock()
	sc.publishAttachments()
}

// Attach uploads the given attachments and appends their URLs, in input
// order, once all uploads have completed. A failed batch leaves the
// already-attached list untouched.
func (sc *SessionController) Attach(ctx context.Context, atts []uploads.Attachment) error {
	if len(atts) == 0 {
		return nil
	}
	if sc.uploader == nil {
		return fmt.Errorf("no upload service configured")
	}

	urls, err := sc.uploader.UploadAll(ctx, atts)
	if err != nil {
		return fmt.Errorf("attachment upload failed: %w", err)
	}

	sc.mu.Lock()
	sc.attachments = append(sc.attachments, urls...)
	sc.mu.Unlock()
	sc.publishAttachments()
	return nil
}

// RemoveAttachment removes the pending attachment at the given index,
// preserving the relative order of the rest
func (sc *SessionController) RemoveAttachment(index int) error {
	sc.mu.Lock()
	if index < 0 || index >= len(sc.attachments) {
		sc.mu.Unlock()
		return fmt.Errorf("attachment index %d out of range", index)
	}
	sc.attachments = append(sc.attachments[:index], sc.attachments[index+1:]...)
	sc.mu.Unlock()

	sc.publishAttachments()
	return nil
}

// ClearAttachments drops all pending attachments
func (sc *SessionController) ClearAttachments() {
	sc.mu.Lock()
	sc.attachments = nil
	sc.mu.Unlock()
	sc.publishAttachments()
}
