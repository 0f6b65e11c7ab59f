package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/keyx/internal/dom"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/logging"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/keyx/internal/protocol"
	"github.com/GriffinCanCode/keyx/internal/render"
	"github.com/GriffinCanCode/keyx/internal/sanitize"
)

// Element statuses reported by /render besides the render outcomes.
const (
	StatusSkipped = "skipped"
	ReasonNoKey   = "no_key"
)

// renderGrace is added to the decrypt timeout to bound a whole page.
const renderGrace = 2 * time.Second

// RenderRequest is the body of POST /render.
type RenderRequest struct {
	Markup string `json:"markup" binding:"required"`
	Key    string `json:"key,omitempty"`
}

// ElementStatus reports what happened to one content element.
type ElementStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// RenderResponse is the body returned by POST /render.
type RenderResponse struct {
	Markup   string          `json:"markup"`
	Elements []ElementStatus `json:"elements"`
}

// Render renders every content element of the posted markup.
func (h *Handlers) Render(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sanitize.MaxPayloadSize)

	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "markup too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid render request"})
		return
	}

	doc, err := dom.Parse([]byte(req.Markup))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid markup"})
		return
	}

	statuses := h.renderDocument(c.Request.Context(), doc, req.Key)

	markup, err := doc.HTML()
	if err != nil {
		h.logger.Error("Failed to serialize document",
			logging.Request(tracing.RequestID(c.Request.Context()).String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to serialize document"})
		return
	}

	c.JSON(http.StatusOK, RenderResponse{Markup: markup, Elements: statuses})
}

// renderDocument runs one pipeline over doc and waits for every submitted
// element.
func (h *Handlers) renderDocument(parent context.Context, doc *dom.Document, key string) []ElementStatus {
	ids := doc.IDs()

	timeout := h.deps.Options.DecryptTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(parent, timeout+renderGrace)
	defer cancel()

	outcomes := make(chan render.Outcome, len(ids))
	p := render.Start(ctx, doc, h.deps, render.WithNotify(func(o render.Outcome) {
		outcomes <- o
	}))
	defer p.Close()

	results := make(map[string]ElementStatus, len(ids))
	if key != "" {
		if err := p.SaveKey(ctx, []byte(key)); err != nil {
			h.logger.Warn("Failed to save key",
				logging.Request(tracing.RequestID(ctx).String()), zap.Error(err))
		}
	}

	expected := 0
	for _, elementID := range ids {
		el, _ := doc.Lookup(elementID)
		if el.Visibility() == dom.Private && key == "" {
			results[elementID] = ElementStatus{ID: elementID, Status: StatusSkipped, Reason: ReasonNoKey}
			continue
		}
		if err := p.Render(ctx, elementID, nil); err != nil {
			break
		}
		expected++
	}

	for expected > 0 {
		select {
		case o := <-outcomes:
			results[o.ElementID] = ElementStatus{ID: o.ElementID, Status: string(o.Status), Reason: o.Reason}
			expected--
		case <-ctx.Done():
			expected = 0
		}
	}

	statuses := make([]ElementStatus, 0, len(ids))
	for _, elementID := range ids {
		st, ok := results[elementID]
		if !ok {
			st = ElementStatus{ID: elementID, Status: string(render.StatusFailed), Reason: protocol.ReasonTimeout}
		}
		statuses = append(statuses, st)
	}
	return statuses
}
