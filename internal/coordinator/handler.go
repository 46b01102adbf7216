package coordinator

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mvasilyev/jean-claude-stopkran/internal/pending"
)

// maxRequestLine bounds the request line read from a connection. Tool
// inputs can carry whole file contents, so the cap is generous.
const maxRequestLine = 1 << 20

// Handler owns the lifetime of one hook connection: read the request,
// publish the prompt, suspend until a decision or the timeout, write the
// response, clean up. One goroutine per connection.
type Handler struct {
	registry    *pending.Registry
	notifier    Notifier
	owner       OwnerSource
	timeout     time.Duration
	readTimeout time.Duration
	logger      *slog.Logger
	metrics     Metrics
	tracer      trace.Tracer
}

// NewHandler creates a connection handler. metrics may be nil.
func NewHandler(registry *pending.Registry, notifier Notifier, owner OwnerSource, timeout, readTimeout time.Duration, logger *slog.Logger, metrics Metrics) *Handler {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Handler{
		registry:    registry,
		notifier:    notifier,
		owner:       owner,
		timeout:     timeout,
		readTimeout: readTimeout,
		logger:      logger,
		metrics:     metrics,
		tracer:      otel.Tracer("stopkran/coordinator"),
	}
}

// Handle serves a single connection. It always closes conn before
// returning. A malformed request drops the connection without a response,
// which makes the hook fall back to the interactive prompt.
func (h *Handler) Handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	req, err := h.readRequest(conn)
	if err != nil {
		h.logger.Warn("dropping connection", "error", err)
		return
	}

	ctx, span := h.tracer.Start(ctx, "coordinator.handle", trace.WithAttributes(
		attribute.String("request_id", req.RequestID),
		attribute.String("tool_name", req.ToolName),
	))
	defer span.End()

	h.metrics.RequestReceived()
	h.logger.Info("permission request",
		"request_id", req.RequestID,
		"tool", req.ToolName,
		"session", shortSession(req.SessionID),
	)

	if _, ok := h.owner.Owner(); !ok {
		h.metrics.DecisionRecorded(pending.Deny.String(), SourceAuto)
		h.logger.Warn("no approver registered, denying", "request_id", req.RequestID)
		h.writeResponse(conn, Response{
			Decision: pending.Deny.String(),
			Error:    "no approver registered, send /start to the bot",
		})
		return
	}

	questions := req.Questions()
	done, err := h.registry.Create(req.RequestID, questions)
	if err != nil {
		h.metrics.DecisionRecorded(pending.Deny.String(), SourceError)
		h.logger.Error("cannot track request", "request_id", req.RequestID, "error", err)
		h.writeResponse(conn, Response{
			Decision: pending.Deny.String(),
			Error:    fmt.Sprintf("cannot track request: %v", err),
		})
		return
	}
	defer h.registry.Delete(req.RequestID)

	prompt := RenderPrompt(req, questions)
	ref, err := h.notifier.Publish(ctx, prompt)
	if err != nil {
		// The approver never saw the request, so nobody can decide it.
		h.registry.Resolve(req.RequestID, pending.Deny, nil)
		h.metrics.DecisionRecorded(pending.Deny.String(), SourceError)
		h.logger.Error("prompt publish failed", "request_id", req.RequestID, "error", err)
		h.writeResponse(conn, Response{
			Decision: pending.Deny.String(),
			Error:    "could not notify approver",
		})
		return
	}
	if err := h.registry.SetNotification(req.RequestID, ref, prompt.Text); err != nil {
		h.logger.Warn("notification ref lost", "request_id", req.RequestID, "error", err)
	}

	h.await(ctx, req.RequestID, done)

	snap, err := h.registry.Snapshot(req.RequestID)
	if err != nil {
		h.logger.Error("entry vanished before response", "request_id", req.RequestID)
		return
	}
	span.SetAttributes(attribute.String("decision", snap.Decision.String()))
	h.writeResponse(conn, Response{
		Decision:     snap.Decision.String(),
		UpdatedInput: snap.Answer,
	})
}

// await suspends until a decision is recorded, the decision window
// elapses, or the daemon shuts down. Timeout and shutdown both try a
// compare-and-set deny; if a real decision landed first, it wins and the
// deny attempt is a no-op.
func (h *Handler) await(ctx context.Context, requestID string, done <-chan struct{}) {
	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		res, err := h.registry.Resolve(requestID, pending.Deny, nil)
		if err == nil && res.Won {
			h.metrics.DecisionRecorded(pending.Deny.String(), SourceTimeout)
			h.logger.Info("request timed out", "request_id", requestID, "timeout", h.timeout)
			h.finalizeTimeout(ctx, res)
		}
	case <-ctx.Done():
		res, err := h.registry.Resolve(requestID, pending.Deny, nil)
		if err == nil && res.Won {
			h.metrics.DecisionRecorded(pending.Deny.String(), SourceError)
			h.logger.Info("denying on shutdown", "request_id", requestID)
		}
	}
}

// finalizeTimeout marks the prompt message as expired. Best-effort: by
// now the deny is already recorded.
func (h *Handler) finalizeTimeout(ctx context.Context, res pending.Resolution) {
	if res.Ref.IsZero() {
		return
	}
	suffix := fmt.Sprintf("\n\n→ ⏰ Timed out at %s", res.DecidedAt.UTC().Format("15:04"))
	if err := h.notifier.Finalize(ctx, res.Ref, res.DisplayText+suffix); err != nil {
		h.logger.Debug("finalize failed", "error", err)
	}
}

func (h *Handler) readRequest(conn net.Conn) (*Request, error) {
	if err := conn.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	r := bufio.NewReaderSize(conn, 64<<10)
	line, err := readLine(r, maxRequestLine)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	// The deadline covered the read only; the decision wait is unbounded
	// from the connection's point of view.
	conn.SetReadDeadline(time.Time{})
	return ParseRequest(line)
}

func (h *Handler) writeResponse(conn net.Conn, resp Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("marshal response", "error", err)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(h.readTimeout))
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		h.logger.Warn("write response", "error", err)
	}
}

// readLine reads until '\n' or EOF, rejecting lines beyond max bytes.
// EOF without a newline is accepted when data was read, since the hook
// may close its write side immediately after the request.
func readLine(r *bufio.Reader, max int) ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > max {
			return nil, fmt.Errorf("%w: request line exceeds %d bytes", ErrMalformedRequest, max)
		}
		switch err {
		case nil:
			return buf[:len(buf)-1], nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			if len(buf) > 0 {
				return buf, nil
			}
			return nil, err
		default:
			return nil, err
		}
	}
}
