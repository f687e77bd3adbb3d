package capsule

import (
	"context"

	"go.uber.org/zap"

	"git.sr.ht/~adnano/gemhost"
)

// Handler serves Gemini requests from the capsules found by a Locator.
type Handler struct {
	locator *Locator
	logger  *zap.Logger
}

// NewHandler returns a Handler that serves the capsules found by l.
// If logger is nil, logging is disabled.
func NewHandler(l *Locator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{locator: l, logger: logger}
}

// ServeGemini responds with the requested capsule content, or with
// 51 Not found if there is none.
func (h *Handler) ServeGemini(ctx context.Context, w *gemini.ResponseWriter, r *gemini.Request) {
	c, err := h.locator.Locate(ctx, r.URL)
	if err != nil {
		gemini.NotFound(w, r)
		return
	}
	resp, err := c.Serve(ctx, r.URL.Path)
	if err != nil {
		gemini.NotFound(w, r)
		return
	}
	defer resp.Body.Close()

	if err := w.WriteResponse(resp); err != nil {
		h.logger.Debug("writing response body",
			zap.String("url", r.URL.String()), zap.Error(err))
	}
}
